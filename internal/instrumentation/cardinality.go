package instrumentation

// Cardinality management helpers for metrics.
// Label values must come from small fixed sets; these helpers map free-form
// values onto those sets.

// Operation types for Google API metrics and spans.
// Status, OAuth, and Service constants are defined in config.go.
const (
	OperationList          = "list"
	OperationListCalendars = "list_calendars"
	OperationGet           = "get"
	OperationCreateDraft   = "create_draft"
	OperationGetProfile    = "get_profile"
)

// knownPaths are the HTTP paths served by inboxbrief.
var knownPaths = map[string]bool{
	"/mcp":              true,
	"/healthz":          true,
	"/readyz":           true,
	"/healthz/detailed": true,
	"/metrics":          true,
}

// NormalizePath returns path when it is one of the served endpoints and
// "other" otherwise, so scanners probing random URLs cannot grow the
// http_requests_total label set.
//
// Example:
//
//	NormalizePath("/mcp")        // "/mcp"
//	NormalizePath("/wp-login")   // "other"
func NormalizePath(path string) string {
	if knownPaths[path] {
		return path
	}
	return "other"
}
