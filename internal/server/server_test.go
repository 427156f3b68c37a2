package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hookupza/apiserver/config"
	"github.com/hookupza/apiserver/internal/handlers"
	"github.com/hookupza/apiserver/internal/logging"
	"github.com/hookupza/apiserver/internal/metrics"
	"github.com/hookupza/apiserver/internal/services"
)

func testComponents(m *metrics.Metrics) components {
	return components{
		users:    services.NewUserService(nil),
		ads:      services.NewAdService(nil),
		photos:   services.NewPhotoService(nil, 0),
		sessions: handlers.NewSessionManager(config.SessionConfig{Secret: "test-secret"}),
		metrics:  m,
	}
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return rec.Code, string(body)
}

func TestMetricsOnlyOnOpsRouter(t *testing.T) {
	m := metrics.New()
	logger := logging.NewWithWriter(io.Discard, "error", false)
	public := newRouter(config.Config{}, testComponents(m), logger)
	ops := newOpsRouter(m)

	if code, _ := get(t, public, "/healthz"); code != http.StatusOK {
		t.Fatalf("public healthz: expected 200, got %d", code)
	}
	if code, _ := get(t, public, "/metrics"); code != http.StatusNotFound {
		t.Fatalf("public metrics: expected 404, got %d", code)
	}

	code, body := get(t, ops, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("ops metrics: expected 200, got %d", code)
	}
	if !strings.Contains(body, "hookupza_http_request_duration_seconds") {
		t.Fatalf("expected request latency series from the public router, got:\n%s", body)
	}
	if code, _ := get(t, ops, "/healthz"); code != http.StatusOK {
		t.Fatalf("ops healthz: expected 200, got %d", code)
	}
}
