// Package store persists the Discord identifiers issued for each
// (channel, twitch channel) pair across restarts. Keys embed a format version so a
// value layout change invalidates old entries instead of resurrecting them.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// cacheVersion tags every key. Bump it when the IDs layout changes; lookups for
// the new version simply miss and the notifier recreates its resources.
const cacheVersion = "v2"

// IDs are the external identifiers tracked per target. Empty string means none.
type IDs struct {
	MessageID string `json:"messageId"`
	EventID   string `json:"eventId"`
}

// Store is the identifier persistence contract. Get returns zero IDs on a miss;
// Set overwrites, last write wins.
type Store interface {
	Get(ctx context.Context, channelID, source string) (IDs, error)
	Set(ctx context.Context, channelID, source string, ids IDs) error
}

// Key derives the kv key for a (Discord channel, Twitch channel) pair.
func Key(channelID, source string) string {
	return fmt.Sprintf("%s-%s-%s", channelID, source, cacheVersion)
}

// Postgres stores identifiers in the kv table.
type Postgres struct {
	DB *sql.DB
}

func (p *Postgres) Get(ctx context.Context, channelID, source string) (IDs, error) {
	var raw string
	err := p.DB.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, Key(channelID, source)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return IDs{}, nil
	}
	if err != nil {
		return IDs{}, fmt.Errorf("kv get %s: %w", Key(channelID, source), err)
	}
	var ids IDs
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return IDs{}, fmt.Errorf("kv decode %s: %w", Key(channelID, source), err)
	}
	return ids, nil
}

func (p *Postgres) Set(ctx context.Context, channelID, source string, ids IDs) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("kv encode: %w", err)
	}
	_, err = p.DB.ExecContext(ctx, `INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW())
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, Key(channelID, source), string(raw))
	if err != nil {
		return fmt.Errorf("kv set %s: %w", Key(channelID, source), err)
	}
	return nil
}
