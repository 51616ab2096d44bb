package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/onnwee/livestatus/live"
)

type handlers struct {
	db    *sql.DB
	cache *live.Cache
}

// handleHealthz is the liveness probe: the process is up.
func (h *handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReadyz is the readiness probe: ready once the database answers.
func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := h.db.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

// channelStatus is one tracked channel's public view in the /status payload. The
// base64 image data is deliberately omitted; it is event artwork, not API output.
type channelStatus struct {
	Channel     string     `json:"channel"`
	Online      bool       `json:"online"`
	Game        string     `json:"game,omitempty"`
	Title       string     `json:"title,omitempty"`
	ViewerCount int        `json:"viewerCount,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	LiveURL     string     `json:"liveUrl"`
}

// handleStatus dumps the current live-status snapshot of every tracked channel.
func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := h.cache.All()
	out := make([]channelStatus, 0, len(states))
	for _, st := range states {
		entry := channelStatus{
			Channel:     st.Source,
			Online:      st.Online,
			Game:        st.GameName,
			Title:       st.Title,
			ViewerCount: st.ViewerCount,
			LiveURL:     st.LiveURL(),
		}
		if !st.StartedAt.IsZero() {
			started := st.StartedAt
			entry.StartedAt = &started
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"channels": out})
}
