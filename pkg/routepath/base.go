package routepath

import "strings"

// NormalizeBase turns a deployment base path into its canonical form:
// a leading slash, no trailing slash, and "" for the root. "app/" and
// "/app" both become "/app"; "" and "/" both become "".
func NormalizeBase(base string) string {
	base = strings.TrimSpace(base)
	for strings.Contains(base, "//") {
		base = strings.ReplaceAll(base, "//", "/")
	}
	base = strings.TrimSuffix(base, "/")
	if base == "" {
		return ""
	}
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}

// JoinBase prefixes an in-app location with a normalized base.
func JoinBase(base, location string) string {
	if !strings.HasPrefix(location, "/") {
		location = "/" + location
	}
	if base == "" {
		return location
	}
	if location == "/" {
		return base + "/"
	}
	return base + location
}

// StripBase removes a normalized base from an href. The base only matches
// on a segment boundary, so "/application" is not under "/app". Hrefs
// outside the base are returned unchanged with ok == false.
func StripBase(base, href string) (location string, ok bool) {
	if base == "" {
		if href == "" {
			return "/", true
		}
		return href, true
	}
	if !strings.HasPrefix(href, base) {
		return href, false
	}
	rest := href[len(base):]
	switch {
	case rest == "":
		return "/", true
	case rest[0] == '/':
		return rest, true
	case rest[0] == '?' || rest[0] == '#':
		return "/" + rest, true
	}
	return href, false
}
