package instrumentation

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/mcp", "/mcp"},
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/healthz/detailed", "/healthz/detailed"},
		{"/metrics", "/metrics"},
		{"/", "other"},
		{"/mcp/extra", "other"},
		{"/.env", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			result := NormalizePath(tt.path)
			if result != tt.expected {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, result, tt.expected)
			}
		})
	}
}

func TestOperationConstants(t *testing.T) {
	operations := map[string]string{
		OperationList:          "list",
		OperationListCalendars: "list_calendars",
		OperationGet:           "get",
		OperationCreateDraft:   "create_draft",
		OperationGetProfile:    "get_profile",
	}

	for constant, expected := range operations {
		if constant != expected {
			t.Errorf("Operation constant = %q, want %q", constant, expected)
		}
	}
}
