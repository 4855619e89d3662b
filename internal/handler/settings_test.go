package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSwitchRoundTrip(t *testing.T) {
	s := newTestServer(t)
	if err := s.settings.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("ensure defaults: %v", err)
	}

	w, env := s.do(t, http.MethodGet, "/api/system-settings/switches/auto_settle", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var sw struct {
		Key     string `json:"key"`
		Enabled bool   `json:"enabled"`
	}
	if err := json.Unmarshal(env.Data, &sw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sw.Key != "feature.auto_settle" || sw.Enabled {
		t.Fatalf("unexpected default %+v", sw)
	}

	if w, _ := s.do(t, http.MethodPut, "/api/system-settings/switches/auto_settle", "", map[string]any{"enabled": true}); w.Code != http.StatusOK {
		t.Fatalf("put: %d", w.Code)
	}
	_, env = s.do(t, http.MethodGet, "/api/system-settings/switches/auto_settle", "", nil)
	if err := json.Unmarshal(env.Data, &sw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sw.Enabled {
		t.Fatalf("expected switch enabled")
	}

	w, env = s.do(t, http.MethodGet, "/api/system-settings?prefix=feature.", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	if total, _ := env.Meta["total"].(float64); total != 2 {
		t.Fatalf("expected 2 feature settings, got %v", env.Meta["total"])
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestReadyzReportsFailingDependency(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/readyz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected ready, got %d %s", w.Code, w.Body.String())
	}

	r := gin.New()
	(&HealthHandler{DB: s.conn.Gorm, Checks: map[string]Pinger{"cache": failingPinger{}}}).Register(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("expected failing check in body, got %s", rec.Body.String())
	}
}

func TestDocsRoute(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/docs", "", nil)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "# Market Simulation Service") {
		t.Fatalf("unexpected docs response %d", w.Code)
	}
}
