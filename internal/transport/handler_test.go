package transport

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chronoview/internal/baseline"
	"chronoview/internal/capture"
	"chronoview/internal/classifier"
	"chronoview/internal/compare"
	"chronoview/internal/config"
	"chronoview/internal/history"
	"chronoview/internal/observer"
	"chronoview/internal/report"
	"chronoview/internal/service"
	"chronoview/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	handler    http.Handler
	captureDir string
}

// newAPIFixture wires the API over a directory capture adapter so tests can
// stage captures by dropping PNG files.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	dir := t.TempDir()
	captureDir := filepath.Join(dir, "captures")
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		t.Fatalf("mkdir captures: %v", err)
	}

	store := baseline.NewStore(filepath.Join(dir, "baselines"), nil)
	log, err := history.Open(filepath.Join(dir, "history.json"), 50)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}

	opts := compare.DefaultOptions()
	cls := classifier.New(classifier.DefaultConfig(), log, &service.HistoryComparer{Opts: opts})

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(metrics)

	fileSink := report.NewFileSink(filepath.Join(dir, "reports"))
	monitor := service.NewMonitorService(
		capture.NewDirectoryAdapter(captureDir),
		store, log, cls,
		[]report.Sink{fileSink}, fileSink, events,
		filepath.Join(dir, "output"), opts,
	)

	targets := []models.Target{
		{Key: models.TargetKey{Component: "grafana", Viewport: "desktop"}},
	}
	cfg := &config.Config{RequestTimeout: 10 * time.Second}

	return &apiFixture{
		handler:    NewHandler(monitor, metrics, targets, cfg),
		captureDir: captureDir,
	}
}

func (f *apiFixture) dropCapture(t *testing.T, key string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(filepath.Join(f.captureDir, key+".png"), buf.Bytes(), 0644); err != nil {
		t.Fatalf("write capture: %v", err)
	}
}

func (f *apiFixture) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func targetBody(component, viewport string) map[string]string {
	return map[string]string{"component": component, "viewport": viewport}
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}
}

func TestRunEndpoint_UnknownTarget(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodPost, "/runs", targetBody("unknown", "desktop"))
	if w.Code != http.StatusNotFound {
		t.Errorf("POST /runs for unrostered target = %d, want 404", w.Code)
	}
}

func TestRunEndpoint_InvalidBody(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodPost, "/runs", map[string]string{"component": "grafana"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("POST /runs without viewport = %d, want 400", w.Code)
	}
}

func TestRunEndpoint_CompletedRunIsAlways200(t *testing.T) {
	f := newAPIFixture(t)
	f.dropCapture(t, "grafana__desktop")

	// No baseline yet: the run completes with ERROR, which is report data.
	w := f.request(t, http.MethodPost, "/runs", targetBody("grafana", "desktop"))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /runs = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var rpt models.RunReport
	if err := json.Unmarshal(w.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if rpt.Status != models.StatusError {
		t.Errorf("report status = %s, want ERROR", rpt.Status)
	}
	if !rpt.Failing {
		t.Error("report failing = false, want true")
	}
}

func TestBaselineAndRunFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.dropCapture(t, "grafana__desktop")

	w := f.request(t, http.MethodPost, "/baselines", targetBody("grafana", "desktop"))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /baselines = %d, want 200; body: %s", w.Code, w.Body.String())
	}

	w = f.request(t, http.MethodPost, "/runs", targetBody("grafana", "desktop"))
	if w.Code != http.StatusOK {
		t.Fatalf("POST /runs = %d, want 200; body: %s", w.Code, w.Body.String())
	}
	var rpt models.RunReport
	if err := json.Unmarshal(w.Body.Bytes(), &rpt); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if rpt.Status != models.StatusMatch {
		t.Errorf("report status = %s, want MATCH", rpt.Status)
	}

	// The completed run shows up in history.
	w = f.request(t, http.MethodGet, "/history?component=grafana&viewport=desktop", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /history = %d, want 200", w.Code)
	}
	var listing struct {
		Count   int                   `json:"count"`
		Entries []models.HistoryEntry `json:"entries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if listing.Count != 1 {
		t.Errorf("history count = %d, want 1", listing.Count)
	}

	// And in the trend stats.
	w = f.request(t, http.MethodGet, "/history/stats?component=grafana&viewport=desktop", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /history/stats = %d, want 200", w.Code)
	}
}

func TestHistoryStats_MissingKey(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodGet, "/history/stats", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("GET /history/stats without key = %d, want 400", w.Code)
	}
}

func TestHistoryStats_NoRuns(t *testing.T) {
	f := newAPIFixture(t)
	w := f.request(t, http.MethodGet, "/history/stats?component=grafana&viewport=desktop", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("GET /history/stats with no runs = %d, want 404", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.dropCapture(t, "grafana__desktop")
	f.request(t, http.MethodPost, "/baselines", targetBody("grafana", "desktop"))
	f.request(t, http.MethodPost, "/runs", targetBody("grafana", "desktop"))

	w := f.request(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", w.Code)
	}
	var metrics map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}
	if metrics["total_runs"].(float64) != 1 {
		t.Errorf("total_runs = %v, want 1", metrics["total_runs"])
	}
	if metrics["baseline_updates"].(float64) != 1 {
		t.Errorf("baseline_updates = %v, want 1", metrics["baseline_updates"])
	}
}
