package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"
)

// Attribute keys shared by every package that logs.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyDomain    = "user_domain"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyPath      = "path"
	KeyCount     = "count"
)

// New returns the process logger: text records on w at Info, or Debug when
// debug is set.
func New(w io.Writer, debug bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// WithService scopes logger to one Google service.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

func Status(status string) slog.Attr { return slog.String(KeyStatus, status) }

// Path is a file path, such as the token or credentials file.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

// Err is omitted from the record when err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail hashes an address so log lines about the same recipient can
// be correlated without storing it.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(strings.ToLower(bareAddress(email))))
	return "user:" + hex.EncodeToString(sum[:8])
}

func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// Domain logs only the domain of an address.
func Domain(email string) slog.Attr {
	return slog.String(KeyDomain, ExtractDomain(email))
}

// ExtractDomain returns the domain of an address, accepting display-name
// forms such as "Jane <jane@example.com>". It returns "" for anything that
// is not a single address.
func ExtractDomain(email string) string {
	_, domain, ok := strings.Cut(bareAddress(email), "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return strings.ToLower(domain)
}

// SanitizeToken describes a token by length only.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

func bareAddress(s string) string {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return strings.TrimSpace(s)
}
