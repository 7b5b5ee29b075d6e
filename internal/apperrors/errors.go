package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Kind identifies the category of a failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindAuthorization Kind = "authorization"
	KindAPI           Kind = "api"
	KindNotFound      Kind = "not_found"
	KindUnknown       Kind = "unknown"
)

// ConfigurationError reports a missing or invalid setting, most commonly an
// unreadable credentials file.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(reason string, err error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}

// AuthorizationError reports an OAuth failure: no stored token, a rejected
// refresh (revoked grant) or insufficient scopes.
type AuthorizationError struct {
	Reason string
	Err    error
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// NewAuthorizationError creates an AuthorizationError.
func NewAuthorizationError(reason string, err error) *AuthorizationError {
	return &AuthorizationError{Reason: reason, Err: err}
}

// APIError reports a network or HTTP failure from a Google API.
type APIError struct {
	Service    string
	Operation  string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Service)
	if e.Operation != "" {
		sb.WriteString(" ")
		sb.WriteString(e.Operation)
	}
	sb.WriteString(" failed")
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown or malformed resource identifier.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string, err error) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, Err: err}
}

// FromGoogleAPI classifies an error returned by a Google API call.
func FromGoogleAPI(service, operation string, err error) error {
	return classify(service, operation, "", "", err)
}

// FromGoogleAPIForResource is like FromGoogleAPI but maps "not found" and
// "invalid id" responses to a NotFoundError for the named resource.
func FromGoogleAPIForResource(service, operation, resource, id string, err error) error {
	return classify(service, operation, resource, id, err)
}

func classify(service, operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return NewAuthorizationError("Google rejected the stored token; run `inboxbrief auth login` to re-authorize", err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return NewAuthorizationError("Google rejected the access token", err)
		case apiErr.Code == http.StatusForbidden && insufficientScope(apiErr):
			return NewAuthorizationError("the stored token lacks a required scope; run `inboxbrief auth login` again", err)
		case resource != "" && apiErr.Code == http.StatusNotFound:
			return NewNotFoundError(resource, id, err)
		case resource != "" && apiErr.Code == http.StatusBadRequest && invalidID(apiErr):
			return NewNotFoundError(resource, id, err)
		}
		return &APIError{Service: service, Operation: operation, StatusCode: apiErr.Code, Err: err}
	}

	return &APIError{Service: service, Operation: operation, Err: err}
}

func insufficientScope(e *googleapi.Error) bool {
	for _, item := range e.Errors {
		if item.Reason == "insufficientPermissions" {
			return true
		}
	}
	return strings.Contains(e.Message, "insufficient authentication scopes")
}

func invalidID(e *googleapi.Error) bool {
	if strings.Contains(strings.ToLower(e.Message), "invalid id") {
		return true
	}
	for _, item := range e.Errors {
		if strings.Contains(strings.ToLower(item.Message), "invalid id") {
			return true
		}
	}
	return false
}

// KindOf returns the category of err, or KindUnknown when err is not one of
// the package's error types.
func KindOf(err error) Kind {
	var (
		cfgErr   *ConfigurationError
		authErr  *AuthorizationError
		nfErr    *NotFoundError
		apiError *APIError
	)
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &authErr):
		return KindAuthorization
	case errors.As(err, &nfErr):
		return KindNotFound
	case errors.As(err, &apiError):
		return KindAPI
	}
	return KindUnknown
}

// Describe renders err as text for the chat host. The message is prefixed
// with the failure category so the model can tell the user what to fix.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var (
		cfgErr   *ConfigurationError
		authErr  *AuthorizationError
		nfErr    *NotFoundError
		apiError *APIError
	)
	switch {
	case errors.As(err, &cfgErr):
		return "Configuration error: " + cfgErr.Error()
	case errors.As(err, &authErr):
		return "Authorization error: " + authErr.Error()
	case errors.As(err, &nfErr):
		return "Not found: " + nfErr.Error()
	case errors.As(err, &apiError):
		return "Google API error: " + apiError.Error()
	}
	return "Error: " + err.Error()
}
