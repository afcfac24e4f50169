package bot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// Listener connects a Handler to the Socket Mode event stream.
type Listener struct {
	handler *Handler
	client  *socketmode.Client
}

// NewListener creates a listener over api, which must carry an app-level token.
func NewListener(api *slack.Client, handler *Handler) *Listener {
	return &Listener{handler: handler, client: socketmode.New(api)}
}

// Start receives events until ctx is cancelled. It blocks, and returns after
// in-flight backfills have finished.
func (l *Listener) Start(ctx context.Context) error {
	log := l.handler.log
	log.Info("Starting Socket Mode listener...")

	errCh := make(chan error, 1)
	go func() { errCh <- l.client.RunContext(ctx) }()

	defer l.handler.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Socket Mode listener stopped.")
			return nil
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("socket mode: %w", err)
		case evt, ok := <-l.client.Events:
			if !ok {
				return nil
			}
			l.handler.dispatch(ctx, evt, func(req socketmode.Request) { l.client.Ack(req) })
		}
	}
}

// dispatch acknowledges and handles one socket mode event.
func (h *Handler) dispatch(ctx context.Context, evt socketmode.Event, ack func(socketmode.Request)) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		h.log.Info("Connecting to Slack...")
	case socketmode.EventTypeConnected:
		h.log.Info("Connected to Slack")
	case socketmode.EventTypeConnectionError:
		h.log.WithField("data", evt.Data).Warn("Slack connection error, retrying")
	case socketmode.EventTypeEventsAPI:
		if evt.Request == nil {
			return
		}
		ack(*evt.Request)
		ev, ok, err := parseMessageEvent(evt.Request.Payload)
		if err != nil {
			h.log.WithError(err).Warn("Dropping undecodable event")
			return
		}
		if ok {
			h.HandleMessage(ctx, ev)
		}
	default:
		if evt.Request != nil && evt.Request.EnvelopeID != "" {
			ack(*evt.Request)
		}
	}
}

// parseMessageEvent decodes an events API envelope. It reports false for
// events other than channel messages.
func parseMessageEvent(payload json.RawMessage) (MessageEvent, bool, error) {
	var envelope struct {
		Type  string          `json:"type"`
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return MessageEvent{}, false, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.Type != "event_callback" || len(envelope.Event) == 0 {
		return MessageEvent{}, false, nil
	}
	var ev MessageEvent
	if err := json.Unmarshal(envelope.Event, &ev); err != nil {
		return MessageEvent{}, false, fmt.Errorf("decode event: %w", err)
	}
	return ev, ev.Type == "message", nil
}
