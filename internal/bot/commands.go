package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"navi/internal/domain"
)

// command answers one bot command. The returned text follows the
// "<@user>: " prefix of the reply.
type command struct {
	name string
	run  func(h *Handler, ctx context.Context, channelID string) string
}

// commands is ordered as listed by help, which is answered by reply itself.
var commands = []command{
	{name: "hey", run: func(*Handler, context.Context, string) string { return "listen!" }},
	{name: "links", run: (*Handler).linksCommand},
	{name: "history", run: (*Handler).historyCommand},
}

func helpText() string {
	var b strings.Builder
	b.WriteString("Currently I support the following commands:\n")
	for _, c := range commands {
		b.WriteString(c.name)
		b.WriteString("\n")
	}
	b.WriteString("help\n")
	return b.String()
}

// reply builds the response to command sent by user in channelID.
func (h *Handler) reply(ctx context.Context, user, channelID, text string) string {
	prefix := "<@" + user + ">: "
	if text == "help" {
		return prefix + helpText()
	}
	for _, c := range commands {
		if c.name == text {
			return prefix + c.run(h, ctx, channelID)
		}
	}
	return prefix + "Sorry I don't understand the command: " + text + ". " + helpText()
}

func (h *Handler) linksCommand(ctx context.Context, channelID string) string {
	location, err := h.harvester.SummaryLocation(ctx, channelID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "I have not collected this channel yet. Ask me for its history first."
	case err != nil:
		h.log.WithError(err).WithField("channel_id", channelID).Error("Failed to look up summary location")
		return "Sorry, I could not find the link summary right now."
	case location == "":
		return "The link summary of this channel is stored but not published anywhere."
	}
	return "Links shared in this channel: " + location
}

func (h *Handler) historyCommand(ctx context.Context, channelID string) string {
	h.backfill(ctx, channelID)
	return "Collecting the links of this channel, I will post here when done."
}

// backfill synchronizes channelID in the background and reports the outcome
// to the channel.
func (h *Handler) backfill(ctx context.Context, channelID string) {
	log := h.log.WithField("channel_id", channelID)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		res, err := h.harvester.Synchronize(ctx, channelID)
		var text string
		if err != nil {
			log.WithError(err).Error("Channel backfill failed")
			text = "Sorry, collecting the history of this channel failed."
		} else {
			text = fmt.Sprintf("Collected %d links.", res.Store.Len())
			if res.Location != "" {
				text += " Summary: " + res.Location
			}
		}
		if ctx.Err() != nil {
			return
		}
		if err := h.poster.PostMessage(ctx, channelID, text); err != nil {
			log.WithError(err).Error("Failed to post backfill result")
		}
	}()
}
