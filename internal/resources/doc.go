// Package resources exposes read-only MCP resources describing the
// authorized Google account and the running session.
package resources
