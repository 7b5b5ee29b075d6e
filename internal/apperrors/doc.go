// Package apperrors defines the error categories surfaced to callers of the
// inboxbrief tools.
//
// Every failure a tool invocation can produce falls into one of four kinds:
//   - ConfigurationError: missing or invalid credentials file, bad settings
//   - AuthorizationError: OAuth failure, missing or revoked token
//   - APIError: network or HTTP failure talking to Gmail or Calendar
//   - NotFoundError: unknown or malformed message identifier
//
// Errors are never retried. Describe renders any error as the human-readable
// text returned to the chat host; only the single invocation fails.
package apperrors
