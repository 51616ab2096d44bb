package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenSource_Refresh(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "fresh-token",
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	}))
	defer server.Close()

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL}
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tok != "fresh-token" {
		t.Errorf("token = %q, want fresh-token", tok)
	}

	// Cached within expiry: no second request.
	if _, err := ts.Get(context.Background()); err != nil {
		t.Fatalf("Get() cached error = %v", err)
	}
	if calls != 1 {
		t.Errorf("token endpoint called %d times, want 1", calls)
	}
}

func TestTokenSource_RefreshExpired(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "fresh", "expires_in": 3600})
	}))
	defer server.Close()

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL}
	ts.SetToken("stale", time.Now().Add(10*time.Second)) // inside the 1 min buffer
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tok != "fresh" || calls != 1 {
		t.Errorf("expected refresh of near-expiry token, got tok=%q calls=%d", tok, calls)
	}
}

func TestTokenSource_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	ts := &TokenSource{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("Get() error = nil, want error on 403")
	}
}

func TestTokenSource_MissingCredentials(t *testing.T) {
	ts := &TokenSource{}
	if _, err := ts.Get(context.Background()); err == nil {
		t.Fatal("Get() error = nil, want error on missing credentials")
	}
}
