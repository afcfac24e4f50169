// Package harvest runs the link collection workflows: full history
// synchronization of a channel and incremental updates from new messages.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"navi/internal/domain"
	"navi/internal/links"
	"navi/internal/lock"
	"navi/internal/publish"
	"navi/internal/render"
	"navi/internal/storage"
)

// HistorySource fetches channel history pages.
type HistorySource interface {
	HistoryPage(ctx context.Context, channelID, latest string) (domain.HistoryPage, error)
}

// ChannelSource resolves and lists channels.
type ChannelSource interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// Options tunes the workflows.
type Options struct {
	// MaxRateLimitRetries bounds consecutive rate-limit retries of one page.
	MaxRateLimitRetries int
	// Concurrency bounds how many channels SynchronizeAll processes at once.
	Concurrency int
	// MinMembers is the smallest channel SynchronizeAll considers.
	MinMembers int
}

// Deps are the collaborators of a Service.
type Deps struct {
	History    HistorySource
	Channels   ChannelSource
	Repo       storage.Repository
	Extractor  *links.Extractor
	Classifier *links.Classifier
	Renderer   *render.Renderer
	Locker     lock.Locker
	Publisher  publish.Sink
}

// Service owns the read-modify-write cycle of channel link records.
type Service struct {
	deps  Deps
	opts  Options
	log   logrus.FieldLogger
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewService wires a Service. A nil Locker or Publisher is replaced by an
// in-process lock and a no-op sink.
func NewService(deps Deps, opts Options, logger logrus.FieldLogger) *Service {
	if deps.Locker == nil {
		deps.Locker = lock.NewLocal()
	}
	if deps.Publisher == nil {
		deps.Publisher = publish.Noop{}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Service{
		deps:  deps,
		opts:  opts,
		log:   logger.WithField("component", "harvest"),
		sleep: sleepContext,
		now:   time.Now,
	}
}

// Result summarizes the outcome of persisting a channel.
type Result struct {
	Channel  domain.Channel
	Store    *links.Store
	Location string
}

// channel resolves the display name of channelID, falling back to the ID.
func (s *Service) channel(ctx context.Context, channelID string) domain.Channel {
	name, err := s.deps.Channels.ChannelName(ctx, channelID)
	if err != nil || name == "" {
		s.log.WithError(err).WithField("channel_id", channelID).Warn("Could not resolve channel name, using ID")
		name = channelID
	}
	return domain.Channel{ID: channelID, Name: name}
}

// persist renders store and saves the document and record, then publishes.
// A publish failure is logged; the stored state stays authoritative.
func (s *Service) persist(ctx context.Context, channelID string, store *links.Store) (Result, error) {
	ch := s.channel(ctx, channelID)
	log := s.log.WithFields(logrus.Fields{"channel_id": ch.ID, "channel": ch.Name})

	out, err := s.deps.Renderer.Render(ctx, store, ch.Name)
	if err != nil {
		return Result{}, fmt.Errorf("render %s: %w", ch.ID, err)
	}
	// The document is derived data and is written first, so a failed write
	// never leaves a record newer than its document.
	if err := s.deps.Repo.SaveDocument(ctx, ch.ID, out.Document); err != nil {
		return Result{}, fmt.Errorf("save document %s: %w", ch.ID, err)
	}
	if err := s.deps.Repo.SaveRecord(ctx, ch.ID, out.Record); err != nil {
		log.WithError(err).Error("Document saved but record was not, document is ahead of the record")
		return Result{}, fmt.Errorf("save record %s: %w", ch.ID, err)
	}

	location, err := s.deps.Publisher.Publish(ctx, ch, out.Document)
	if err != nil {
		log.WithError(err).Error("Failed to publish document")
		location = s.deps.Publisher.Location(ch)
	}
	log.WithFields(logrus.Fields{"link_count": store.Len(), "location": location}).Info("Channel links saved")
	return Result{Channel: ch, Store: store, Location: location}, nil
}

// load reads and decodes the persisted store of a channel.
func (s *Service) load(ctx context.Context, channelID string) (*links.Store, error) {
	record, err := s.deps.Repo.LoadRecord(ctx, channelID)
	if err != nil {
		return nil, err
	}
	store, err := links.Decode(s.deps.Classifier, record)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", channelID, err)
	}
	return store, nil
}

// Rerender rebuilds and saves the document of a synchronized channel from
// its persisted record.
func (s *Service) Rerender(ctx context.Context, channelID string) (Result, error) {
	unlock, err := s.deps.Locker.Lock(ctx, channelID)
	if err != nil {
		return Result{}, fmt.Errorf("lock %s: %w", channelID, err)
	}
	defer unlock()

	store, err := s.load(ctx, channelID)
	if err != nil {
		return Result{}, err
	}
	return s.persist(ctx, channelID, store)
}

// SummaryLocation returns where the channel's summary is published, or ""
// when the channel was never synchronized or the sink has no address.
func (s *Service) SummaryLocation(ctx context.Context, channelID string) (string, error) {
	if _, err := s.deps.Repo.LoadRecord(ctx, channelID); err != nil {
		return "", err
	}
	return s.deps.Publisher.Location(s.channel(ctx, channelID)), nil
}

// SelfFragments returns the configured self-reference fragments plus the
// address prefix of documents published through sink, so re-shared summary
// links are never harvested.
func SelfFragments(configured []string, sink publish.Sink) []string {
	fragments := append([]string(nil), configured...)
	if sink != nil {
		if prefix := sink.Prefix(); prefix != "" {
			fragments = append(fragments, prefix)
		}
	}
	return fragments
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// isNotFound reports whether err means the channel was never synchronized.
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
