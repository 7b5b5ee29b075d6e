// Package config loads inboxbrief settings from a TOML file and
// INBOXBRIEF_* environment variables.
//
// Precedence, lowest first: built-in defaults, the config file, environment
// variables. Command-line flags are applied on top by the cmd package.
//
// Example config.toml:
//
//	path_to_credentials = "/home/me/.config/inboxbrief/credentials.json"
//	token_path = "/home/me/.config/inboxbrief/token.json"
//	default_calendar_entries = 10
//	default_email_entries = 25
//	interactive_auth = true
//
//	[rate_limits]
//	gmail_rps = 2
//	gmail_burst = 5
//	calendar_rps = 5
//	calendar_burst = 10
package config
