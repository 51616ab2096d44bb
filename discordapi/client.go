// Package discordapi contains thin typed wrappers over the Discord REST endpoints the
// notifier needs: channel messages and guild scheduled events. No gateway connection
// is opened; everything goes through plain HTTP with a bot token.
package discordapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultBaseURL = "https://discord.com/api/v10"

// defaultHTTPClient bounds every call when no client is injected; a hung Discord
// call would otherwise hold up the whole notification round.
var defaultHTTPClient = &http.Client{Timeout: 15 * time.Second}

// Client calls the Discord REST API with bot authorization.
type Client struct {
	BotToken   string
	HTTPClient *http.Client
	BaseURL    string // defaults to the public API host
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return defaultHTTPClient
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

// CreateMessage posts a new message to a channel.
func (c *Client) CreateMessage(ctx context.Context, channelID string, body MessageBody) (Response, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), body)
}

// EditMessage replaces the content of an existing message.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, body MessageBody) (Response, error) {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID), body)
}

// CreateEvent creates a guild scheduled event.
func (c *Client) CreateEvent(ctx context.Context, guildID string, body EventBody) (Response, error) {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/guilds/%s/scheduled-events", guildID), body)
}

// EditEvent updates a guild scheduled event.
func (c *Client) EditEvent(ctx context.Context, guildID, eventID string, body EventBody) (Response, error) {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/guilds/%s/scheduled-events/%s", guildID, eventID), body)
}

// DeleteEvent removes a guild scheduled event. Deleting an already-gone event is
// not an error; the end state is the same.
func (c *Client) DeleteEvent(ctx context.Context, guildID, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		fmt.Sprintf("%s/guilds/%s/scheduled-events/%s", c.base(), guildID, eventID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("discord delete event: %s: %s", resp.Status, string(b))
}

// do performs a JSON request and decodes the response body whether the call
// succeeded or returned an API error. Transport and decode failures come back as
// an error; API errors come back in Response.Code for the caller to inspect.
func (c *Client) do(ctx context.Context, method, path string, body any) (Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("encode discord request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+path, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Authorization", "Bot "+c.BotToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http().Do(req)
	if err != nil {
		return Response{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode discord response (%s %s, %s): %w", method, path, resp.Status, err)
	}
	if resp.StatusCode >= http.StatusBadRequest && out.Code == 0 {
		// Errors without an API code (rate limits, auth, 5xx) are transport-level.
		return out, fmt.Errorf("discord %s %s: %s", method, path, resp.Status)
	}
	return out, nil
}
