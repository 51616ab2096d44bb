package live

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/livestatus/telemetry"
	"github.com/onnwee/livestatus/twitchapi"
)

const defaultBoxArtBaseURL = "https://static-cdn.jtvnw.net/ttv-boxart"

// thumbnails are embedded into scheduled events; cap what we pull in.
const maxThumbnailBytes = 4 << 20

// StreamSource is the external status source contract.
type StreamSource interface {
	GetStreams(ctx context.Context, login string) ([]twitchapi.Stream, error)
}

// Poller refreshes one channel's State each round. Exactly one Poller exists per
// distinct channel name, no matter how many targets watch it.
type Poller struct {
	source string
	src    StreamSource
	cache  *Cache

	// BoxArtBaseURL overrides the box art host (tests).
	BoxArtBaseURL string
	// ImageClient fetches box art probes and thumbnails.
	ImageClient *http.Client
}

func NewPoller(source string, src StreamSource, cache *Cache) *Poller {
	return &Poller{
		source: source,
		src:    src,
		cache:  cache,
		ImageClient: &http.Client{
			Timeout: 15 * time.Second,
			// Redirect detection is how box art fallback works; don't follow.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (p *Poller) Source() string { return p.source }

// Tick polls the channel once and updates its cache record. Errors are logged and
// swallowed; the cache keeps its previous snapshot and the next round retries.
func (p *Poller) Tick(ctx context.Context) {
	telemetry.PollsTotal.Inc()

	streams, err := p.src.GetStreams(ctx, p.source)
	if err != nil {
		telemetry.PollErrors.Inc()
		slog.Warn("twitch poll failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}

	if len(streams) > 0 && streams[0].Type == "live" {
		data := streams[0]
		// Slow work (image fetches) happens on a local copy; the commit under the
		// cache lock is a plain assignment.
		next := p.cache.Snapshot(p.source)
		next.Online = true
		next.GameName = data.GameName
		next.Title = data.Title
		next.ViewerCount = data.ViewerCount
		next.StartedAt = data.StartedAt
		next.SetStreamImageURL(data.ThumbnailURL)
		p.resolveGameImage(ctx, &next, data.GameID)
		p.encodeStreamImage(ctx, &next)
		p.cache.Update(p.source, func(st *State) { *st = next })
		return
	}

	// Offline: only the flag changes, stale metadata is kept.
	p.cache.Update(p.source, func(st *State) { st.Online = false })
}

// resolveGameImage picks the box art URL for a game: the IGDB variant when it
// resolves directly, the plain Twitch variant when the IGDB probe redirects or
// fails. Best effort; the previous value survives errors.
func (p *Poller) resolveGameImage(ctx context.Context, st *State, gameID string) {
	if gameID == "" {
		return
	}
	base := p.BoxArtBaseURL
	if base == "" {
		base = defaultBoxArtBaseURL
	}
	igdbURL := fmt.Sprintf("%s/%s_IGDB-%dx%d.jpg", base, gameID, gameThumbWidth, gameThumbHeight)
	twitchURL := fmt.Sprintf("%s/%s-%dx%d.jpg", base, gameID, gameThumbWidth, gameThumbHeight)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, igdbURL, nil)
	if err != nil {
		slog.Warn("box art probe failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}
	resp, err := p.ImageClient.Do(req)
	if err != nil {
		slog.Warn("box art probe failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices && resp.StatusCode < http.StatusBadRequest {
		st.GameImageURL = twitchURL
		return
	}
	st.GameImageURL = igdbURL
}

// encodeStreamImage downloads the stream thumbnail and stores it as a base64 data
// URL for event artwork. On failure the previous encoding is kept and the tick
// carries on.
func (p *Poller) encodeStreamImage(ctx context.Context, st *State) {
	if st.StreamImageURL == "" {
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.StreamImageURL, nil)
	if err != nil {
		slog.Warn("thumbnail fetch failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}
	resp, err := p.ImageClient.Do(req)
	if err != nil {
		slog.Warn("thumbnail fetch failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("thumbnail fetch failed", slog.String("channel", p.source), slog.String("status", resp.Status))
		return
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
	if err != nil {
		slog.Warn("thumbnail read failed", slog.String("channel", p.source), slog.Any("err", err))
		return
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	st.StreamImageData = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(raw)
}
