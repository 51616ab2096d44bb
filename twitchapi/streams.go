package twitchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// Stream is one entry of the Helix streams response.
type Stream struct {
	UserLogin    string    `json:"user_login"`
	Type         string    `json:"type"` // "live" while broadcasting
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	ThumbnailURL string    `json:"thumbnail_url"` // carries {width}/{height} placeholders
}

// HelixClient polls channel live status via the Helix streams endpoint.
type HelixClient struct {
	AppTokenSource *TokenSource
	ClientID       string
	HTTPClient     *http.Client
	BaseURL        string // defaults to the public Helix host
}

const defaultHelixBaseURL = "https://api.twitch.tv/helix"

// defaultHTTPClient bounds every call when no client is injected. Rounds never
// overlap, so a hung request with no deadline would stall polling for good.
var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return defaultHTTPClient
}

func (hc *HelixClient) base() string {
	if hc.BaseURL != "" {
		return hc.BaseURL
	}
	return defaultHelixBaseURL
}

// GetStreams returns the current streams for a login. An empty slice means the
// channel is offline. Transient upstream failures (network errors, 5xx) are retried
// a few times before being reported.
func (hc *HelixClient) GetStreams(ctx context.Context, login string) ([]Stream, error) {
	if login == "" {
		return nil, fmt.Errorf("login empty")
	}
	tok, err := hc.AppTokenSource.Get(ctx)
	if err != nil {
		return nil, err
	}

	var streams []Stream
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, hc.base()+"/streams", nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			q := req.URL.Query()
			q.Set("user_login", login)
			req.URL.RawQuery = q.Encode()
			req.Header.Set("Client-Id", hc.ClientID)
			req.Header.Set("Authorization", "Bearer "+tok)

			resp, err := hc.http().Do(req)
			if err != nil {
				return err
			}
			defer func() {
				if err := resp.Body.Close(); err != nil {
					slog.Warn("failed to close response body", slog.Any("err", err))
				}
			}()
			if resp.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("helix streams: %s", resp.Status)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("helix streams: %s", resp.Status))
			}
			var body struct {
				Data []Stream `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode streams response: %w", err))
			}
			streams = body.Data
			return nil
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.MaxJitter(250*time.Millisecond),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			slog.Debug("retrying helix streams request", slog.String("login", login), slog.Any("attempt", n), slog.Any("err", err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return streams, nil
}
