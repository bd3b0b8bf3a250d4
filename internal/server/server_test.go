package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/config"
	"github.com/uiYzzi/auto-daily-stand-up-meeting/internal/standup"
)

func newTestServer(t *testing.T, dayStatus int) *Server {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"date":%q,"status":%d}]`, r.URL.Query().Get("date"), dayStatus)
	}))
	t.Cleanup(feed.Close)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.GitHub.Token = "test-token"
	cfg.Calendar.FeedURL = feed.URL
	cfg.Calendar.Timezone = "UTC"
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.db")

	app, err := standup.New(cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	t.Cleanup(func() { app.Close() })

	srv, err := New(app, ":0", "")
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	return srv
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestHandleCheckWorkingDay(t *testing.T) {
	tests := []struct {
		status  int
		working bool
	}{
		{0, true},
		{1, false},
		{2, true},
		{3, false},
	}
	for _, tt := range tests {
		srv := newTestServer(t, tt.status)

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check-working-day", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body struct {
			Success      bool `json:"success"`
			IsWorkingDay bool `json:"is_working_day"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !body.Success {
			t.Error("success = false")
		}
		if body.IsWorkingDay != tt.working {
			t.Errorf("feed status %d: is_working_day = %v, want %v", tt.status, body.IsWorkingDay, tt.working)
		}
	}
}

func TestHandleCheckWorkingDayFeedDown(t *testing.T) {
	srv := newTestServer(t, 0)

	// Replace the feed with an unreachable one by constructing a fresh
	// server whose feed is already closed.
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	feed.Close()

	cfg := srv.app.Config
	cfg.Calendar.FeedURL = feed.URL
	app, err := standup.New(cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	defer app.Close()
	broken, err := New(app, ":0", "")
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	rec := httptest.NewRecorder()
	broken.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check-working-day", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestNewRejectsBadCronSpec(t *testing.T) {
	srv := newTestServer(t, 0)
	if _, err := New(srv.app, ":0", "not a cron spec"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
