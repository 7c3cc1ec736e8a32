package router

import (
	"fmt"
	"strings"

	"github.com/vango-dev/navroute/pkg/routepath"
)

// segment is one compiled pattern segment.
type segment struct {
	// literal is the exact text for static segments
	literal string

	// param is the bound name for dynamic segments
	param string
}

func (s segment) isParam() bool { return s.param != "" }

// pattern is a compiled route path.
type pattern struct {
	raw      string
	segments []segment
	params   []string
}

// compilePattern validates and compiles a route path. The returned error is
// the bare reason; the caller wraps it in a PatternError.
func compilePattern(raw string) (*pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty pattern")
	}
	if !strings.HasPrefix(raw, "/") {
		return nil, fmt.Errorf("pattern must start with /")
	}
	if strings.ContainsAny(raw, "?#") {
		return nil, fmt.Errorf("pattern must not contain a query or fragment")
	}
	if strings.Contains(raw, "//") {
		return nil, fmt.Errorf("empty segment")
	}

	p := &pattern{raw: raw}
	trimmed := strings.TrimSuffix(raw[1:], "/")
	if trimmed == "" {
		return p, nil
	}

	seen := make(map[string]bool)
	for _, seg := range strings.Split(trimmed, "/") {
		switch {
		case seg == "":
			return nil, fmt.Errorf("empty segment")
		case strings.HasPrefix(seg, ":"):
			name := seg[1:]
			if !isIdentifier(name) {
				return nil, fmt.Errorf("invalid parameter name %q", name)
			}
			if seen[name] {
				return nil, fmt.Errorf("parameter %q used twice", name)
			}
			seen[name] = true
			p.segments = append(p.segments, segment{param: name})
			p.params = append(p.params, name)
		case strings.ContainsAny(seg, ":*[]"):
			return nil, fmt.Errorf("segment %q mixes literal text with parameter syntax", seg)
		default:
			p.segments = append(p.segments, segment{literal: seg})
		}
	}
	return p, nil
}

// isIdentifier reports whether s is a valid parameter name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// match compares canonical path segments against the pattern. Dynamic
// segments bind the decoded value; empty values and encoded slashes fail.
func (p *pattern) match(segs []string) (map[string]string, bool) {
	if len(segs) != len(p.segments) {
		return nil, false
	}

	var params map[string]string
	for i, s := range p.segments {
		if !s.isParam() {
			if segs[i] != s.literal {
				return nil, false
			}
			continue
		}
		value, err := routepath.DecodeSegment(segs[i])
		if err != nil || value == "" {
			return nil, false
		}
		if params == nil {
			params = make(map[string]string, len(p.params))
		}
		params[s.param] = value
	}
	if params == nil {
		params = map[string]string{}
	}
	return params, true
}

// build fills the pattern with params and returns the path.
func (p *pattern) build(params map[string]string) (string, error) {
	if len(p.segments) == 0 {
		return "/", nil
	}

	var b strings.Builder
	for _, s := range p.segments {
		b.WriteByte('/')
		if !s.isParam() {
			b.WriteString(s.literal)
			continue
		}
		value := params[s.param]
		if value == "" {
			return "", fmt.Errorf("%w: %q", ErrMissingParam, s.param)
		}
		b.WriteString(routepath.EncodeSegment(value))
	}
	return b.String(), nil
}
