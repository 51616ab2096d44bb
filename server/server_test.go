package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/livestatus/live"
	"github.com/onnwee/livestatus/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	os.Exit(m.Run())
}

func newTestMux(t *testing.T) (http.Handler, *live.Cache) {
	t.Helper()
	// The DSN is never dialed unless a handler pings it.
	db, err := sql.Open("pgx", "postgres://nobody@127.0.0.1:1/none")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	cache := live.NewCache()
	return NewMux(db, cache), cache
}

func TestHealthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyzUnavailable(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 with no database", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "unavailable" {
		t.Fatalf("body = %v", body)
	}
}

func TestStatusSnapshot(t *testing.T) {
	mux, cache := newTestMux(t)

	cache.Update("alice", func(st *live.State) {
		st.Online = true
		st.GameName = "Chess"
		st.Title = "opening prep"
		st.ViewerCount = 42
		st.StartedAt = time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
		st.StreamImageData = "data:image/png;base64,aW1n"
	})
	cache.Update("bob", func(*live.State) {})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Channels []map[string]any `json:"channels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(body.Channels))
	}
	alice, bob := body.Channels[0], body.Channels[1]
	if alice["channel"] != "alice" || bob["channel"] != "bob" {
		t.Fatalf("channels not sorted by name: %v", body.Channels)
	}
	if alice["online"] != true || alice["game"] != "Chess" || alice["liveUrl"] != "https://twitch.tv/alice" {
		t.Fatalf("alice entry = %v", alice)
	}
	if _, leaked := alice["streamImageData"]; leaked {
		t.Fatal("image data must not appear in the status payload")
	}
	if bob["online"] != false {
		t.Fatalf("bob entry = %v", bob)
	}
	if _, present := bob["startedAt"]; present {
		t.Fatal("offline channel with no history must omit startedAt")
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCorrelationHeader(t *testing.T) {
	mux, _ := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Fatal("missing generated correlation id")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	mux.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "corr-123" {
		t.Fatalf("correlation id = %q, want the caller's echoed back", got)
	}
}
