package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/teemow/inboxbrief/internal/config"
)

// UseDefaultLimit asks for the configured default entry count.
const UseDefaultLimit = -1

// ParseLimit reads an entry count from args[key]. An absent value or -1
// yields def. Anything else must be an integer in 1..config.MaxEntries.
func ParseLimit(args map[string]interface{}, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}

	var n int
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return 0, fmt.Errorf("%s must be between 1 and %d, got %v", key, config.MaxEntries, v)
		}
		n = int(v)
	case int:
		n = v
	case int64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, raw)
	}

	if n == UseDefaultLimit {
		return def, nil
	}
	if err := config.ValidateEntries(key, n); err != nil {
		return 0, err
	}
	return n, nil
}

// StringArg returns args[key] trimmed, or "" when absent or not a string.
func StringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// RequiredStringArg is StringArg that fails on an empty value.
func RequiredStringArg(args map[string]interface{}, key string) (string, error) {
	s := StringArg(args, key)
	if s == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return s, nil
}
