package router

import (
	"errors"
	"fmt"
)

// Table construction and resolution errors.
var (
	ErrDuplicateName    = errors.New("duplicate route name")
	ErrMalformedPattern = errors.New("malformed route pattern")
	ErrUnknownRoute     = errors.New("unknown route name")
	ErrMissingParam     = errors.New("missing route parameter")
)

// DuplicateNameError reports two routes sharing a name.
type DuplicateNameError struct {
	Name   string
	First  int // index of the first route using Name
	Second int // index of the offending route
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate route name %q (routes %d and %d)", e.Name, e.First, e.Second)
}

// Is lets errors.Is match ErrDuplicateName.
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}

// PatternError reports a route whose pattern or name cannot be compiled.
type PatternError struct {
	Index   int
	Name    string
	Pattern string
	Reason  string
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("route %d (%q): pattern %q: %s", e.Index, e.Name, e.Pattern, e.Reason)
}

// Is lets errors.Is match ErrMalformedPattern.
func (e *PatternError) Is(target error) bool {
	return target == ErrMalformedPattern
}
