package discordapi

import "time"

// Embed colors and component constants used by the notifier presentation.
const (
	ColorOnline  = 10181046
	ColorOffline = 9807270

	componentActionsRow = 1
	componentButton     = 2
	buttonStyleLink     = 5

	// Scheduled event constants for externally hosted events.
	EventPrivacyGuildOnly = 2
	EventTypeExternal     = 3
)

type EmbedImage struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Type        string       `json:"type,omitempty"`
	Color       int          `json:"color,omitempty"`
	Image       *EmbedImage  `json:"image,omitempty"`
	Thumbnail   *EmbedImage  `json:"thumbnail,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
}

type Component struct {
	Type       int         `json:"type"`
	Style      int         `json:"style,omitempty"`
	Label      string      `json:"label,omitempty"`
	URL        string      `json:"url,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// LinkButtonRow builds an actions row holding a single link button.
func LinkButtonRow(label, url string) []Component {
	return []Component{{
		Type: componentActionsRow,
		Components: []Component{{
			Type:  componentButton,
			Style: buttonStyleLink,
			Label: label,
			URL:   url,
		}},
	}}
}

type MessageBody struct {
	Content    string      `json:"content,omitempty"`
	Embeds     []Embed     `json:"embeds"`
	Components []Component `json:"components"`
}

type EventMetadata struct {
	Location string `json:"location"`
}

type EventBody struct {
	// ChannelID must be null for external events.
	ChannelID          *string       `json:"channel_id"`
	Name               string        `json:"name"`
	EntityMetadata     EventMetadata `json:"entity_metadata"`
	ScheduledStartTime *time.Time    `json:"scheduled_start_time,omitempty"`
	ScheduledEndTime   time.Time     `json:"scheduled_end_time"`
	Description        string        `json:"description,omitempty"`
	PrivacyLevel       int           `json:"privacy_level"`
	EntityType         int           `json:"entity_type"`
	Image              string        `json:"image,omitempty"`
}

// Response is the decoded body of a create/edit call. A successful call carries
// the resource ID; an API error carries a numeric Code (e.g. 10008 unknown
// message, 10070 unknown event) and a human-readable Message.
type Response struct {
	ID      string `json:"id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
