package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	apperrors "chronoview/internal/errors"
	"chronoview/pkg/models"
)

// HTTPAdapter captures screenshots by fetching rendered rasters from a
// screenshot service over HTTP.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter creates an HTTP capture adapter with a transport tuned for
// single large image downloads.
func NewHTTPAdapter(timeout time.Duration) *HTTPAdapter {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		DisableCompression:     false,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPAdapter{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Capture fetches and decodes the target's screenshot. Transient (5xx,
// transport) failures are retried up to three attempts; client errors fail
// immediately.
func (h *HTTPAdapter) Capture(ctx context.Context, target models.Target) (image.Image, error) {
	if target.CaptureURL == "" {
		return nil, apperrors.NewCaptureError(
			fmt.Sprintf("target %s has no capture URL", target.Key), nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.CaptureURL, nil)
	if err != nil {
		return nil, apperrors.NewCaptureError("invalid capture URL", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, */*")
	req.Header.Set("User-Agent", "ChronoView/1.0")

	resp, err := h.fetchWithRetry(req)
	if err != nil {
		return nil, apperrors.NewCaptureError(
			fmt.Sprintf("failed to capture %s", target.Key), err)
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, apperrors.NewDecodeError(
			fmt.Sprintf("failed to decode capture for %s", target.Key), err)
	}
	return img, nil
}

func (h *HTTPAdapter) fetchWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			switch {
			case resp.StatusCode == http.StatusOK:
				return resp, nil
			case resp.StatusCode >= 400 && resp.StatusCode < 500:
				// Client errors are non-retryable.
				resp.Body.Close()
				return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
			default:
				resp.Body.Close()
				lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
			}
		}

		if attempt < 2 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Duration(attempt+1) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to capture after 3 attempts: %w", lastErr)
}
