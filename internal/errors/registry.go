package errors

import (
	stderrors "errors"

	"github.com/vango-dev/navroute/pkg/history"
	"github.com/vango-dev/navroute/pkg/navigation"
	"github.com/vango-dev/navroute/pkg/routepath"
	"github.com/vango-dev/navroute/pkg/router"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Path errors (N001-N009)
	"N001": {
		Category: CategoryPath,
		Message:  "Invalid path",
		Detail:   "The location could not be canonicalized. Paths must not contain backslashes, null bytes, malformed percent escapes, or climb above the root with \"..\".",
	},
	"N002": {
		Category: CategoryPath,
		Message:  "Encoded slash in path segment",
		Detail:   "A segment decoded to a value containing \"/\". Dynamic segments match exactly one path segment.",
	},
	"N003": {
		Category: CategoryPath,
		Message:  "External navigation target",
		Detail:   "Navigation targets are in-app paths. Scheme-relative (\"//host\") and absolute URLs are rejected.",
	},

	// Route table errors (N010-N019)
	"N010": {
		Category: CategoryRoute,
		Message:  "Malformed route pattern",
		Detail:   "Patterns start with \"/\" and contain literal segments or \":name\" parameters. Names are identifiers and may appear once per pattern.",
	},
	"N011": {
		Category: CategoryRoute,
		Message:  "Duplicate route name",
		Detail:   "Every route in a table needs a unique, non-empty name.",
	},
	"N012": {
		Category: CategoryRoute,
		Message:  "Unknown route",
		Detail:   "No route with this name is registered.",
	},
	"N013": {
		Category: CategoryRoute,
		Message:  "Missing route parameter",
		Detail:   "Building a path for a named route needs a non-empty value for every parameter in its pattern.",
	},

	// History and navigation errors (N020-N029)
	"N020": {
		Category: CategoryHistory,
		Message:  "History closed",
		Detail:   "The history adapter was closed; no further entries can be pushed or replaced.",
	},
	"N021": {
		Category: CategoryHistory,
		Message:  "Remote history handshake failed",
		Detail:   "The client did not send a valid hello frame with its current location.",
	},
	"N022": {
		Category: CategoryNavigation,
		Message:  "Navigation controller closed",
		Detail:   "The controller has been closed and rejects further navigation.",
	},

	// Config errors (N030-N039)
	"N030": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "navroute.json could not be read or parsed.",
	},
	"N031": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range or malformed.",
	},

	// Manifest errors (N040-N049)
	"N040": {
		Category: CategoryManifest,
		Message:  "Route manifest not found",
		Detail:   "The route manifest could not be read from the configured file or S3 location.",
	},
	"N041": {
		Category: CategoryManifest,
		Message:  "Route manifest is not valid JSON",
		Detail:   "The manifest must be a JSON object with a \"routes\" array.",
	},
	"N042": {
		Category: CategoryManifest,
		Message:  "Invalid route manifest",
		Detail:   "A route in the manifest is incomplete or conflicts with another route.",
	},

	// CLI errors (N050-N059)
	"N050": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
	"N051": {
		Category: CategoryCLI,
		Message:  "Server failed",
	},
}

// Register adds or replaces a code. Intended for use at init time.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}

// Lookup returns the template for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Classify maps a library error onto a registered code. Errors that are
// already *Error are returned unchanged; unrecognized errors are wrapped
// under fallback.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	code := fallback
	switch {
	case stderrors.Is(err, routepath.ErrExternalTarget):
		code = "N003"
	case stderrors.Is(err, routepath.ErrEncodedSlashInSegment):
		code = "N002"
	case stderrors.Is(err, routepath.ErrInvalidPath),
		stderrors.Is(err, routepath.ErrBackslashInPath),
		stderrors.Is(err, routepath.ErrNullByteInPath),
		stderrors.Is(err, routepath.ErrInvalidPercentEscape),
		stderrors.Is(err, routepath.ErrPathEscapesRoot):
		code = "N001"
	case stderrors.Is(err, router.ErrMalformedPattern):
		code = "N010"
	case stderrors.Is(err, router.ErrDuplicateName):
		code = "N011"
	case stderrors.Is(err, router.ErrUnknownRoute):
		code = "N012"
	case stderrors.Is(err, router.ErrMissingParam):
		code = "N013"
	case stderrors.Is(err, history.ErrClosed):
		code = "N020"
	case stderrors.Is(err, history.ErrHandshake):
		code = "N021"
	case stderrors.Is(err, navigation.ErrClosed):
		code = "N022"
	}
	return New(code).Wrap(err)
}
