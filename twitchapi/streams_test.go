package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func seededTokenSource() *TokenSource {
	ts := &TokenSource{ClientID: "test-client-id", ClientSecret: "test-secret"}
	ts.SetToken("test-token", time.Now().Add(1*time.Hour))
	return ts
}

func TestHelixClient_GetStreamsLive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("user_login"); got != "alice" {
			t.Errorf("user_login=%q want alice", got)
		}
		if r.Header.Get("Client-Id") != "test-client-id" {
			t.Errorf("missing or wrong Client-Id header")
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing or wrong Authorization header")
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{
				"user_login":    "alice",
				"type":          "live",
				"game_id":       "509658",
				"game_name":     "Just Chatting",
				"title":         "Morning show",
				"viewer_count":  123,
				"started_at":    "2024-10-15T14:30:00Z",
				"thumbnail_url": "https://cdn.example/thumb-{width}x{height}.jpg",
			}},
		})
	}))
	defer server.Close()

	client := &HelixClient{
		AppTokenSource: seededTokenSource(),
		ClientID:       "test-client-id",
		BaseURL:        server.URL,
	}

	streams, err := client.GetStreams(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetStreams() error = %v", err)
	}
	if len(streams) != 1 {
		t.Fatalf("expected 1 stream, got %d", len(streams))
	}
	s := streams[0]
	if s.Type != "live" || s.GameName != "Just Chatting" || s.ViewerCount != 123 {
		t.Errorf("stream decoded wrong: %+v", s)
	}
	if s.StartedAt.IsZero() {
		t.Errorf("started_at not parsed")
	}
}

func TestHelixClient_GetStreamsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	client := &HelixClient{AppTokenSource: seededTokenSource(), ClientID: "test-client-id", BaseURL: server.URL}
	streams, err := client.GetStreams(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetStreams() error = %v", err)
	}
	if len(streams) != 0 {
		t.Fatalf("expected no streams, got %d", len(streams))
	}
}

func TestHelixClient_GetStreams5xxRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"type": "live", "title": "Recovered"}},
		})
	}))
	defer server.Close()

	client := &HelixClient{AppTokenSource: seededTokenSource(), ClientID: "test-client-id", BaseURL: server.URL}
	streams, err := client.GetStreams(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetStreams() unexpected error after 5xx retry = %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected a retry, got %d attempts", attempts)
	}
	if len(streams) != 1 || streams[0].Title != "Recovered" {
		t.Fatalf("unexpected streams after retry: %+v", streams)
	}
}

func TestHelixClient_GetStreams4xxNoRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := &HelixClient{AppTokenSource: seededTokenSource(), ClientID: "test-client-id", BaseURL: server.URL}
	if _, err := client.GetStreams(context.Background(), "alice"); err == nil {
		t.Fatal("GetStreams() error = nil, want error on 401")
	}
	if attempts != 1 {
		t.Fatalf("4xx should not be retried, got %d attempts", attempts)
	}
}

func TestHelixClient_GetStreamsEmptyLogin(t *testing.T) {
	client := &HelixClient{AppTokenSource: seededTokenSource(), ClientID: "test-client-id"}
	if _, err := client.GetStreams(context.Background(), ""); err == nil {
		t.Fatal("GetStreams() error = nil, want error on empty login")
	}
}

func TestHelixClient_DefaultTimeout(t *testing.T) {
	client := &HelixClient{}
	if got := client.http().Timeout; got <= 0 {
		t.Fatalf("default client timeout = %v, want a bound", got)
	}
}
