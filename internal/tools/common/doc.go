// Package common provides shared utilities for MCP tool implementations:
// the instrumented handler wrapper that turns errors into MCP error results,
// and argument parsing helpers.
package common
