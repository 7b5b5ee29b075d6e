// Package cmd implements the command-line interface for inboxbrief.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio or streamable HTTP)
//   - auth: Authorize with Google, inspect or delete the stored token
//   - events, emails, message, draft: Run one tool and print its output
//   - menu: Interactive numbered menu over the same tools
//   - config: Write a default config file or print the effective config
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
