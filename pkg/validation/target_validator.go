package validation

import (
	"net/url"
	"strings"

	apperrors "chronoview/internal/errors"
	"chronoview/pkg/models"
)

// maxKeyPartLength bounds component and viewport names so derived artifact
// file names stay within filesystem limits.
const maxKeyPartLength = 128

// ValidateTargetKey checks that a target key is non-empty and safe to embed
// in artifact file names.
func ValidateTargetKey(key models.TargetKey) error {
	if err := validateKeyPart("component", key.Component); err != nil {
		return err
	}
	return validateKeyPart("viewport", key.Viewport)
}

func validateKeyPart(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(name+" cannot be empty", nil)
	}
	if len(value) > maxKeyPartLength {
		return apperrors.NewValidationError(name+" is too long", nil)
	}
	if strings.ContainsAny(value, "/\\") || strings.Contains(value, "..") {
		return apperrors.NewValidationError(name+" contains path separators", nil)
	}
	return nil
}

// CaptureURLValidator handles capture endpoint validation logic
type CaptureURLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewCaptureURLValidator creates a capture URL validator with default settings
func NewCaptureURLValidator() *CaptureURLValidator {
	return &CaptureURLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewCaptureURLValidatorWithOptions creates a validator with custom options
func NewCaptureURLValidatorWithOptions(schemes []string, hosts []string) *CaptureURLValidator {
	return &CaptureURLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateCaptureURL validates if the provided URL is acceptable as a
// screenshot capture endpoint
func (v *CaptureURLValidator) ValidateCaptureURL(captureURL string) error {
	if strings.TrimSpace(captureURL) == "" {
		return apperrors.NewValidationError("capture URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(captureURL)
	if err != nil {
		return apperrors.NewValidationError("invalid capture URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError("capture URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return apperrors.NewValidationError("capture URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return apperrors.NewValidationError("capture URL host not allowed", nil)
	}

	return nil
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *CaptureURLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *CaptureURLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
