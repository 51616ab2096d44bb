package live

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/onnwee/livestatus/discordapi"
	"github.com/onnwee/livestatus/i18n"
)

const footerIconURL = "https://i.imgur.com/Qo9ZWge.png"

// liveCommandName survives in the message footer as a hint to the slash command
// exposing the same status.
const liveCommandName = "live"

// streamVars builds the substitution table for localized strings.
func (t *Target) streamVars(state State) map[string]string {
	startDate := ""
	if !state.StartedAt.IsZero() {
		startDate = humanize.Time(state.StartedAt)
	}
	return map[string]string{
		"%streamer%":  state.Source,
		"%game%":      state.GameName,
		"%title%":     state.Title,
		"%viewer%":    strconv.Itoa(state.ViewerCount),
		"%startDate%": startDate,
	}
}

// messageBody renders the notification message for the state's online/offline
// variant: localized embed, optional link button, image and thumbnail when known.
func (t *Target) messageBody(state State) discordapi.MessageBody {
	msgs := t.bundle.Messages(t.cfg.Lang).Discord.Embed
	variant := msgs.Offline
	color := discordapi.ColorOffline
	buttonEnabled := t.cfg.Message.LinkButton.Offline
	if state.Online {
		variant = msgs.Online
		color = discordapi.ColorOnline
		buttonEnabled = t.cfg.Message.LinkButton.Online
	}
	vars := t.streamVars(state)

	embed := discordapi.Embed{
		Title:       i18n.Format(variant.Title, vars),
		Description: i18n.Format(variant.Description, vars),
		URL:         state.LiveURL(),
		Type:        "rich",
		Color:       color,
		Footer: &discordapi.EmbedFooter{
			Text:    "/" + liveCommandName,
			IconURL: footerIconURL,
		},
	}
	if state.Online && state.StreamImageURL != "" {
		embed.Image = &discordapi.EmbedImage{
			// Cache buster: Discord would otherwise keep showing the first frame.
			URL:    fmt.Sprintf("%s?noCache=%d", state.StreamImageURL, time.Now().Unix()),
			Height: streamImageHeight,
			Width:  streamImageWidth,
		}
	}
	if state.GameImageURL != "" {
		embed.Thumbnail = &discordapi.EmbedImage{
			URL:    state.GameImageURL,
			Height: gameThumbHeight,
			Width:  gameThumbWidth,
		}
	}
	for _, f := range variant.Fields {
		value := i18n.Format(f.Value, vars)
		if value == "" {
			continue
		}
		embed.Fields = append(embed.Fields, discordapi.EmbedField{
			Name:   i18n.Format(f.Name, vars),
			Value:  value,
			Inline: f.Inline,
		})
	}

	body := discordapi.MessageBody{
		Embeds:     []discordapi.Embed{embed},
		Components: []discordapi.Component{},
	}
	if buttonEnabled {
		body.Components = discordapi.LinkButtonRow(i18n.Format(variant.LinkButton, vars), state.LiveURL())
	}
	return body
}

// eventBody renders the scheduled event for an online state. The start time is
// filled in by the caller on first creation only.
func (t *Target) eventBody(state State) discordapi.EventBody {
	msgs := t.bundle.Messages(t.cfg.Lang).Discord.Event
	vars := t.streamVars(state)
	return discordapi.EventBody{
		Name:             i18n.Format(msgs.Title, vars),
		Description:      i18n.Format(msgs.Description, vars),
		EntityMetadata:   discordapi.EventMetadata{Location: state.LiveURL()},
		ScheduledEndTime: t.eventEndTime(),
		PrivacyLevel:     discordapi.EventPrivacyGuildOnly,
		EntityType:       discordapi.EventTypeExternal,
		Image:            state.StreamImageData,
	}
}
