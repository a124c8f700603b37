package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	apperrors "chronoview/internal/errors"
	"chronoview/pkg/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func targetFor(url string) models.Target {
	return models.Target{
		Key:        models.TargetKey{Component: "grafana", Viewport: "desktop"},
		CaptureURL: url,
	}
}

func TestHTTPAdapter_Capture(t *testing.T) {
	raster := pngBytes(t, 4, 3)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(raster)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(5 * time.Second)
	img, err := adapter.Capture(context.Background(), targetFor(server.URL))
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Errorf("decoded bounds = %v, want 4x3", img.Bounds())
	}
}

func TestHTTPAdapter_RetriesServerErrors(t *testing.T) {
	raster := pngBytes(t, 2, 2)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Write(raster)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(10 * time.Second)
	if _, err := adapter.Capture(context.Background(), targetFor(server.URL)); err != nil {
		t.Fatalf("Capture() error = %v, want recovery on retry", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}

func TestHTTPAdapter_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such component", http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(5 * time.Second)
	_, err := adapter.Capture(context.Background(), targetFor(server.URL))
	if err == nil {
		t.Fatal("Capture() succeeded, want error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeCapture) {
		t.Errorf("error type = %v, want capture", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("server calls = %d, want 1 (no retry on 4xx)", got)
	}
}

func TestHTTPAdapter_UndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("this is not a png"))
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(5 * time.Second)
	_, err := adapter.Capture(context.Background(), targetFor(server.URL))
	if err == nil {
		t.Fatal("Capture() succeeded, want decode error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
		t.Errorf("error type = %v, want decode", err)
	}
}

func TestHTTPAdapter_MissingCaptureURL(t *testing.T) {
	adapter := NewHTTPAdapter(5 * time.Second)
	_, err := adapter.Capture(context.Background(), models.Target{
		Key: models.TargetKey{Component: "grafana", Viewport: "desktop"},
	})
	if err == nil {
		t.Fatal("Capture() succeeded without a capture URL")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeCapture) {
		t.Errorf("error type = %v, want capture", err)
	}
}
