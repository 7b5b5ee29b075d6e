// Package gmail_tools provides the MCP tools for Gmail: listing messages,
// reading a single message and creating drafts or replies.
//
// create_draft only writes drafts; nothing is ever sent. It is not
// registered when the server runs in read-only mode.
package gmail_tools
