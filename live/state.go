// Package live holds the coordination core of the notifier: the shared live-status
// cache, the per-channel Twitch pollers, the per-target Discord state machines, and
// the scheduler that runs them in lockstep rounds.
package live

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fixed presentation dimensions. Thumbnail URL templates are expanded to the
// stream size; box art uses the smaller game size.
const (
	streamImageWidth  = 1920
	streamImageHeight = 1080
	gameThumbWidth    = 288
	gameThumbHeight   = 384
)

// State is the last known live status of one Twitch channel. One record exists per
// tracked channel for the process lifetime; it is written only by the channel's
// Poller during its tick and read by Targets as a copy after the poll barrier.
//
// When Online is false only the flag is authoritative: the metadata fields keep
// their last live values.
type State struct {
	Source string

	Online      bool
	GameName    string
	Title       string
	ViewerCount int
	StartedAt   time.Time

	StreamImageURL  string // template expanded to fixed dimensions
	GameImageURL    string // resolved box art, possibly via fallback
	StreamImageData string // best-effort base64 data URL of the stream thumbnail
}

// SetStreamImageURL expands the Helix thumbnail template to the fixed stream size.
func (s *State) SetStreamImageURL(template string) {
	s.StreamImageURL = strings.NewReplacer(
		"{width}", strconv.Itoa(streamImageWidth),
		"{height}", strconv.Itoa(streamImageHeight),
	).Replace(template)
}

// LiveURL is the channel's public watch URL.
func (s *State) LiveURL() string {
	return "https://twitch.tv/" + s.Source
}

// Cache maps Twitch channel names to their State. Records are created lazily on
// first access and never removed. All mutation goes through Update so writers and
// the copy-out readers (Snapshot, All) hold the same lock; the HTTP status handler
// reads concurrently with poller commits.
type Cache struct {
	mu     sync.RWMutex
	states map[string]*State
}

func NewCache() *Cache {
	return &Cache{states: make(map[string]*State)}
}

// lookup returns the channel's record, creating a default-offline one on first
// access. Callers must hold mu.
func (c *Cache) lookup(source string) *State {
	st, ok := c.states[source]
	if !ok {
		st = &State{Source: source}
		c.states[source] = st
	}
	return st
}

// Update applies fn to the channel's State under the cache lock. fn must not
// block; prepare slow work (network fetches) on a Snapshot copy first and commit
// the result here.
func (c *Cache) Update(source string, fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.lookup(source))
}

// Snapshot returns a read-only copy of the channel's State for consumers.
func (c *Cache) Snapshot(source string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.lookup(source)
}

// All returns a copy of every tracked channel's State, keyed by channel name.
func (c *Cache) All() map[string]State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]State, len(c.states))
	for name, st := range c.states {
		out[name] = *st
	}
	return out
}
