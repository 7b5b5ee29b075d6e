// Package calendar_tools provides the MCP tool for Google Calendar:
// list_upcoming_events, which lists the next events across every calendar
// the user can see.
package calendar_tools
