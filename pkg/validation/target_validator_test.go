package validation

import (
	"strings"
	"testing"

	"chronoview/pkg/models"
)

func TestValidateTargetKey(t *testing.T) {
	tests := []struct {
		name    string
		key     models.TargetKey
		wantErr bool
	}{
		{"valid key", models.TargetKey{Component: "grafana", Viewport: "desktop"}, false},
		{"dashes and dots", models.TargetKey{Component: "billing-v2.1", Viewport: "tablet"}, false},
		{"empty component", models.TargetKey{Component: "", Viewport: "desktop"}, true},
		{"whitespace viewport", models.TargetKey{Component: "grafana", Viewport: "   "}, true},
		{"slash in component", models.TargetKey{Component: "a/b", Viewport: "desktop"}, true},
		{"backslash in viewport", models.TargetKey{Component: "grafana", Viewport: "a\\b"}, true},
		{"parent traversal", models.TargetKey{Component: "..", Viewport: "desktop"}, true},
		{"component too long", models.TargetKey{Component: strings.Repeat("x", 129), Viewport: "desktop"}, true},
		{"component at limit", models.TargetKey{Component: strings.Repeat("x", 128), Viewport: "desktop"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargetKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTargetKey(%v) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCaptureURL(t *testing.T) {
	validator := NewCaptureURLValidator()

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http URL", "http://render:3000/grafana?w=1920", false},
		{"valid https URL", "https://render.internal/checkout", false},
		{"empty URL", "", true},
		{"whitespace URL", "   ", true},
		{"disallowed scheme", "ftp://render/grafana", true},
		{"file scheme", "file:///etc/passwd", true},
		{"missing host", "http://", true},
		{"missing scheme", "render:3000/grafana", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateCaptureURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCaptureURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCaptureURL_HostAllowlist(t *testing.T) {
	validator := NewCaptureURLValidatorWithOptions(
		[]string{"http", "https"},
		[]string{"render:3000"},
	)

	if err := validator.ValidateCaptureURL("http://render:3000/grafana"); err != nil {
		t.Errorf("allowlisted host rejected: %v", err)
	}
	if err := validator.ValidateCaptureURL("http://other:3000/grafana"); err == nil {
		t.Error("non-allowlisted host accepted")
	}
}
