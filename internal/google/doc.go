// Package google handles OAuth2 authorization against Google for inboxbrief.
//
// The client secret comes from a credentials file downloaded from the Google
// Cloud console. The authorized token is persisted to a token file; on first
// use the Authorizer runs an interactive loopback flow in the browser, and
// afterwards it refreshes the access token silently, writing every refreshed
// token back to the file.
//
// The package also carries the per-service RateLimiter used by the Gmail and
// Calendar clients, and WatchTokenFile, which reports changes made to the
// token file by other inboxbrief processes.
package google
