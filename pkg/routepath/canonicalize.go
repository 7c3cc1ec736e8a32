package routepath

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Location is a canonical in-app location split into its parts.
type Location struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Hash is the fragment without the leading "#".
	Hash string
}

// FullPath reassembles the location as path?query#hash.
func (l Location) FullPath() string {
	var b strings.Builder
	b.WriteString(l.Path)
	if l.Query != "" {
		b.WriteByte('?')
		b.WriteString(l.Query)
	}
	if l.Hash != "" {
		b.WriteByte('#')
		b.WriteString(l.Hash)
	}
	return b.String()
}

// Values parses the query string. Malformed pairs are dropped.
func (l Location) Values() url.Values {
	v, _ := url.ParseQuery(l.Query)
	return v
}

// Path canonicalization errors.
var (
	ErrInvalidPath           = errors.New("invalid path")
	ErrBackslashInPath       = errors.New("path contains backslash")
	ErrNullByteInPath        = errors.New("path contains null byte")
	ErrInvalidPercentEscape  = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot       = errors.New("path escapes root via ..")
	ErrEncodedSlashInSegment = errors.New("encoded slash (%2F) in path segment")

	// ErrExternalTarget matches ErrInvalidPath as well.
	ErrExternalTarget = fmt.Errorf("%w: target leaves the application", ErrInvalidPath)
)

// Canonicalize normalizes an in-app location.
//
// The path part is rewritten as follows:
//   - a leading "/" is added when missing
//   - repeated slashes collapse (/a//b -> /a/b)
//   - "." segments are dropped and ".." segments resolved
//   - a trailing slash is removed, except for the root "/"
//
// Backslashes, NUL bytes, malformed percent escapes and ".." above the root
// are rejected. Query and hash are split off and kept verbatim. changed
// reports whether the path part differs from the input.
func Canonicalize(input string) (loc Location, changed bool, err error) {
	rest, hash, _ := strings.Cut(input, "#")
	path, query, _ := strings.Cut(rest, "?")
	loc.Query = query
	loc.Hash = hash

	if path == "" {
		loc.Path = "/"
		return loc, true, nil
	}

	if strings.Contains(path, "\\") {
		return Location{}, false, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Location{}, false, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return Location{}, false, err
		}
	}

	var kept []string
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
		case "..":
			if len(kept) == 0 {
				return Location{}, false, ErrPathEscapesRoot
			}
			kept = kept[:len(kept)-1]
		default:
			kept = append(kept, seg)
		}
	}

	loc.Path = "/" + strings.Join(kept, "/")
	return loc, loc.Path != path, nil
}

// CanonicalizePath is Canonicalize for callers that only need the path.
func CanonicalizePath(input string) (string, error) {
	loc, _, err := Canonicalize(input)
	if err != nil {
		return "", err
	}
	return loc.Path, nil
}

// ValidateNavTarget canonicalizes a programmatic navigation target.
// Absolute URLs and scheme-relative targets ("//host") are rejected so a
// navigation can never leave the application.
func ValidateNavTarget(target string) (Location, bool, error) {
	if strings.HasPrefix(target, "//") || strings.Contains(target, "://") {
		return Location{}, false, ErrExternalTarget
	}
	return Canonicalize(target)
}

// validatePercentEscapes checks that every "%" is followed by two hex digits.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// Segments splits a canonical path into its segments. The root has none.
func Segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// DecodeSegment percent-decodes one path segment. A decoded "/" is an
// error because a single segment must never span a path boundary.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	if strings.Contains(decoded, "/") {
		return "", ErrEncodedSlashInSegment
	}
	return decoded, nil
}

// EncodeSegment escapes a parameter value for use as one path segment.
func EncodeSegment(value string) string {
	return url.PathEscape(value)
}
