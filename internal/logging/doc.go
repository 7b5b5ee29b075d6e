// Package logging provides the structured logging conventions used by
// inboxbrief.
//
// All logs go through log/slog. The process logger writes text records to
// stderr, because stdout carries MCP stdio traffic and CLI output.
//
//	logger := logging.New(os.Stderr, debug)
//	logging.WithService(logger, "gmail").Info("listed messages",
//	    logging.Operation("list"), logging.Count(n))
//
// Message recipients and senders are hashed with AnonymizeEmail before they
// are logged. OAuth tokens are never logged; SanitizeToken reports only their
// length.
package logging
