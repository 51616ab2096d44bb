package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/livestatus/config"
	"github.com/onnwee/livestatus/discordapi"
	"github.com/onnwee/livestatus/i18n"
	"github.com/onnwee/livestatus/store"
	"github.com/onnwee/livestatus/telemetry"
)

// Sink is the external notification contract: Discord messages and scheduled events.
type Sink interface {
	CreateMessage(ctx context.Context, channelID string, body discordapi.MessageBody) (discordapi.Response, error)
	EditMessage(ctx context.Context, channelID, messageID string, body discordapi.MessageBody) (discordapi.Response, error)
	CreateEvent(ctx context.Context, guildID string, body discordapi.EventBody) (discordapi.Response, error)
	EditEvent(ctx context.Context, guildID, eventID string, body discordapi.EventBody) (discordapi.Response, error)
	DeleteEvent(ctx context.Context, guildID, eventID string) error
}

// Discord API error codes at or above this value mean the referenced resource no
// longer exists (unknown message/event families). The stored id is cleared so the
// next round recreates the resource instead of failing forever.
const staleCodeThreshold = 10000

// Event timing. Start a few seconds out so clock skew can't put it in the past;
// the synthesized end time only has to outlive the next few polling rounds.
const (
	eventStartBuffer = 10 * time.Second
	eventEndFloor    = time.Minute
)

// Target mirrors one Twitch channel's live status into one Discord channel: an
// upserted message and an optional scheduled event. It is either idle (no tracked
// message/event) or maintaining a live session. All Sink failures are logged and
// swallowed so one target can never break another's round.
type Target struct {
	cfg      config.Target
	cache    *Cache
	sink     Sink
	ids      store.Store
	bundle   *i18n.Bundle
	grace    time.Duration
	interval time.Duration

	now func() time.Time

	// mu guards the identifier pair; message and event upserts run concurrently
	// within one tick and both mirror the pair to the store.
	mu         sync.Mutex
	messageID  string
	eventID    string
	lastOnline time.Time
}

// NewTarget builds a Target and rehydrates its identifiers from the store. A
// non-empty stored id resumes a live session; the unknown elapsed time means the
// first offline observation finalizes immediately.
func NewTarget(ctx context.Context, cfg config.Target, cache *Cache, sink Sink, ids store.Store, bundle *i18n.Bundle, grace, interval time.Duration) *Target {
	t := &Target{
		cfg:      cfg,
		cache:    cache,
		sink:     sink,
		ids:      ids,
		bundle:   bundle,
		grace:    grace,
		interval: interval,
		now:      time.Now,
	}
	saved, err := ids.Get(ctx, cfg.ChannelID, cfg.Source)
	if err != nil {
		slog.Warn("identifier rehydration failed", slog.String("channel", cfg.Source), slog.Any("err", err))
		return t
	}
	t.messageID = saved.MessageID
	t.eventID = saved.EventID
	if saved.MessageID != "" || saved.EventID != "" {
		slog.Info("resuming live session", slog.String("channel", cfg.Source),
			slog.String("message_id", saved.MessageID), slog.String("event_id", saved.EventID))
	}
	return t
}

func (t *Target) Source() string { return t.cfg.Source }

// Tick runs one state-machine step against the channel's freshly polled status.
func (t *Target) Tick(ctx context.Context) {
	state := t.cache.Snapshot(t.cfg.Source)
	if state.Online {
		t.onlineTick(ctx, state)
		return
	}
	t.offlineTick(ctx, state)
}

func (t *Target) onlineTick(ctx context.Context, state State) {
	t.mu.Lock()
	t.lastOnline = t.now()
	t.mu.Unlock()

	var wg sync.WaitGroup
	if t.cfg.Message.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.upsertMessage(ctx, state)
		}()
	}
	if t.cfg.Event.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.upsertEvent(ctx, state)
		}()
	}
	wg.Wait()
}

// offlineTick finalizes the session once the channel has been offline past the
// grace deadline. Inside the grace window nothing is touched, which is what
// absorbs brief stream drops without flapping the notification.
func (t *Target) offlineTick(ctx context.Context, state State) {
	t.mu.Lock()
	deadline := t.lastOnline.Add(t.grace)
	messageID, eventID := t.messageID, t.eventID
	t.mu.Unlock()

	if t.now().Before(deadline) {
		return
	}
	if messageID == "" && eventID == "" {
		return
	}

	var wg sync.WaitGroup
	if t.cfg.Message.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.finalizeMessage(ctx, state, messageID)
		}()
	}
	if t.cfg.Event.Active {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t.removeEvent(ctx, eventID)
		}()
	}
	wg.Wait()

	t.setMessageID(ctx, "")
	t.setEventID(ctx, "")
}

func (t *Target) upsertMessage(ctx context.Context, state State) {
	body := t.messageBody(state)

	t.mu.Lock()
	messageID := t.messageID
	t.mu.Unlock()

	if messageID == "" {
		// A mention belongs on the first message of a session only, never on edits.
		if m := t.cfg.MentionID; m != "" {
			body.Content = mention(m)
		}
		resp, err := t.sink.CreateMessage(ctx, t.cfg.ChannelID, body)
		if err != nil {
			telemetry.NotifyErrors.Inc()
			slog.Warn("message create failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
			return
		}
		if resp.ID == "" {
			telemetry.NotifyErrors.Inc()
			slog.Warn("message create returned no id", slog.String("channel", t.cfg.Source), slog.Any("code", resp.Code))
			return
		}
		telemetry.MessagesCreated.Inc()
		t.setMessageID(ctx, resp.ID)
		return
	}

	resp, err := t.sink.EditMessage(ctx, t.cfg.ChannelID, messageID, body)
	if err != nil {
		telemetry.NotifyErrors.Inc()
		slog.Warn("message edit failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
		return
	}
	if resp.Code >= staleCodeThreshold {
		telemetry.StaleIDResets.Inc()
		slog.Warn("stored message gone, recreating next round",
			slog.String("channel", t.cfg.Source), slog.Any("code", resp.Code))
		t.setMessageID(ctx, "")
	}
}

func (t *Target) upsertEvent(ctx context.Context, state State) {
	t.mu.Lock()
	eventID := t.eventID
	t.mu.Unlock()

	body := t.eventBody(state)

	if eventID == "" {
		start := t.now().Add(eventStartBuffer)
		body.ScheduledStartTime = &start
		resp, err := t.sink.CreateEvent(ctx, t.cfg.GuildID, body)
		if err != nil {
			telemetry.NotifyErrors.Inc()
			slog.Warn("event create failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
			return
		}
		if resp.ID == "" {
			telemetry.NotifyErrors.Inc()
			slog.Warn("event create returned no id", slog.String("channel", t.cfg.Source), slog.Any("code", resp.Code))
			return
		}
		telemetry.EventsCreated.Inc()
		t.setEventID(ctx, resp.ID)
		return
	}

	resp, err := t.sink.EditEvent(ctx, t.cfg.GuildID, eventID, body)
	if err != nil {
		telemetry.NotifyErrors.Inc()
		slog.Warn("event edit failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
		return
	}
	if resp.Code >= staleCodeThreshold {
		telemetry.StaleIDResets.Inc()
		slog.Warn("stored event gone, recreating next round",
			slog.String("channel", t.cfg.Source), slog.Any("code", resp.Code))
		t.setEventID(ctx, "")
	}
}

// finalizeMessage edits the session message to its offline variant. It never
// creates a message just to say a stream ended.
func (t *Target) finalizeMessage(ctx context.Context, state State, messageID string) {
	if messageID == "" {
		return
	}
	if _, err := t.sink.EditMessage(ctx, t.cfg.ChannelID, messageID, t.messageBody(state)); err != nil {
		telemetry.NotifyErrors.Inc()
		slog.Warn("offline message edit failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
	}
}

// removeEvent deletes the scheduled event; Discord events are removed, not closed.
func (t *Target) removeEvent(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := t.sink.DeleteEvent(ctx, t.cfg.GuildID, eventID); err != nil {
		telemetry.NotifyErrors.Inc()
		slog.Warn("event delete failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
	}
}

// eventEndTime synthesizes the end time Discord requires: far enough out to
// outlive several polling rounds, never under the floor.
func (t *Target) eventEndTime() time.Time {
	padding := 10 * t.interval
	if padding < eventEndFloor {
		padding = eventEndFloor
	}
	return t.now().Add(padding)
}

func (t *Target) setMessageID(ctx context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.messageID == id {
		return
	}
	t.messageID = id
	t.persistLocked(ctx)
}

func (t *Target) setEventID(ctx context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.eventID == id {
		return
	}
	t.eventID = id
	t.persistLocked(ctx)
}

// persistLocked mirrors the identifier pair to the store. Fire and forget: a
// store failure costs at most a duplicate notification after a restart.
func (t *Target) persistLocked(ctx context.Context) {
	err := t.ids.Set(ctx, t.cfg.ChannelID, t.cfg.Source, store.IDs{
		MessageID: t.messageID,
		EventID:   t.eventID,
	})
	if err != nil {
		slog.Warn("identifier persist failed", slog.String("channel", t.cfg.Source), slog.Any("err", err))
	}
}

// mention renders the configured mention id: the broadcast sentinels become
// @everyone/@here, anything else is treated as a role id.
func mention(id string) string {
	switch id {
	case "everyone", "here":
		return "@" + id
	}
	return "<@&" + id + ">"
}
