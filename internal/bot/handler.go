// Package bot reacts to chat events: it answers commands addressed to the
// bot and feeds newly shared links to the incremental updater.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"navi/internal/domain"
	"navi/internal/harvest"
	"navi/internal/links"
)

// Harvester runs the link collection workflows.
type Harvester interface {
	Synchronize(ctx context.Context, channelID string) (harvest.Result, error)
	Update(ctx context.Context, channelID string, msg domain.Message) (*links.Store, error)
	SummaryLocation(ctx context.Context, channelID string) (string, error)
}

// Poster sends messages to a channel.
type Poster interface {
	PostMessage(ctx context.Context, channelID, text string) error
}

// Handler holds dependencies for the chat event handlers.
type Handler struct {
	harvester Harvester
	poster    Poster
	extractor *links.Extractor
	mention   string
	log       logrus.FieldLogger

	wg sync.WaitGroup
}

// NewHandler creates a handler for the bot whose user ID is botUserID.
func NewHandler(harvester Harvester, poster Poster, extractor *links.Extractor, botUserID string, logger logrus.FieldLogger) *Handler {
	return &Handler{
		harvester: harvester,
		poster:    poster,
		extractor: extractor,
		mention:   "<@" + botUserID + ">",
		log:       logger.WithField("component", "bot_handler"),
	}
}

// MessageEvent is a message observed in a channel.
type MessageEvent struct {
	domain.Message
	Channel string `json:"channel"`
	Type    string `json:"type"`
}

// ignoredSubtypes are message subtypes that never carry a new shared link.
var ignoredSubtypes = map[string]bool{
	"message_changed": true,
	"message_deleted": true,
	"message_replied": true,
	"bot_message":     true,
	"channel_join":    true,
	"channel_leave":   true,
	"channel_topic":   true,
	"channel_purpose": true,
}

// HandleMessage dispatches one message: mentions of the bot are commands,
// other messages carrying links go to the updater.
func (h *Handler) HandleMessage(ctx context.Context, ev MessageEvent) {
	if ev.Channel == "" || ignoredSubtypes[ev.SubType] {
		return
	}
	log := h.log.WithFields(logrus.Fields{"channel_id": ev.Channel, "user_id": ev.User, "ts": ev.Timestamp})

	if _, after, ok := strings.Cut(ev.Text, h.mention); ok {
		text := strings.ToLower(strings.TrimSpace(after))
		if text == "" || ev.User == "" {
			return
		}
		log.WithField("command", text).Info("Received command")
		if err := h.poster.PostMessage(ctx, ev.Channel, h.reply(ctx, ev.User, ev.Channel, text)); err != nil {
			log.WithError(err).Error("Failed to post command reply")
		}
		return
	}

	if !h.extractor.HasLinkCandidate(ev.Message) || h.extractor.IsSelfReference(ev.Message) {
		return
	}
	store, err := h.harvester.Update(ctx, ev.Channel, ev.Message)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Debug("Ignoring link in channel that was never synchronized")
	case errors.Is(err, domain.ErrMalformedMessage):
		log.WithError(err).Warn("Skipping malformed message")
	case err != nil:
		log.WithError(err).Error("Failed to update channel links")
	default:
		log.WithField("link_count", store.Len()).Debug("Channel links updated")
	}
}

// Wait blocks until background backfills have finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}
