package harvest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"navi/internal/domain"
	"navi/internal/links"
)

// Synchronize backfills the full history of a channel into a fresh store,
// then renders and persists it. Page failures other than rate limits end
// pagination and the partial history is kept.
func (s *Service) Synchronize(ctx context.Context, channelID string) (Result, error) {
	log := s.log.WithField("channel_id", channelID)

	unlock, err := s.deps.Locker.Lock(ctx, channelID)
	if err != nil {
		return Result{}, fmt.Errorf("lock %s: %w", channelID, err)
	}
	defer unlock()

	log.Info("Synchronizing channel history")
	messages, err := s.fetchHistory(ctx, channelID)
	if err != nil {
		return Result{}, err
	}

	store := links.NewStore(s.deps.Classifier)
	skipped := 0
	for _, msg := range messages {
		found, err := s.deps.Extractor.Extract(msg)
		if err != nil {
			skipped++
			log.WithError(err).WithField("ts", msg.Timestamp).Debug("Skipping message")
			continue
		}
		store.Merge(found...)
	}
	log.WithFields(logrus.Fields{
		"message_count": len(messages),
		"skipped":       skipped,
		"link_count":    store.Len(),
	}).Info("History processed")

	return s.persist(ctx, channelID, store)
}

// fetchHistory pages backwards from now. Each request's cursor is the
// timestamp of the oldest message collected so far.
func (s *Service) fetchHistory(ctx context.Context, channelID string) ([]domain.Message, error) {
	log := s.log.WithField("channel_id", channelID)

	latest := epochToken(s.now().UnixNano())
	var all []domain.Message
	retries := 0
	for {
		page, err := s.deps.History.HistoryPage(ctx, channelID, latest)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("history %s: %w", channelID, ctx.Err())
			}
			var rl *domain.RateLimitedError
			if errors.As(err, &rl) && retries < s.opts.MaxRateLimitRetries {
				retries++
				log.WithFields(logrus.Fields{"retry_after": rl.RetryAfter, "attempt": retries}).Warn("Rate limited, retrying page")
				if err := s.sleep(ctx, rl.RetryAfter); err != nil {
					return nil, fmt.Errorf("history %s: %w", channelID, err)
				}
				continue
			}
			log.WithError(err).WithField("message_count", len(all)).Error("History fetch failed, keeping partial history")
			return all, nil
		}
		retries = 0

		all = append(all, page.Messages...)
		if !page.HasMore || len(page.Messages) == 0 {
			return all, nil
		}
		next := all[len(all)-1].Timestamp
		if next == "" || next == latest {
			log.WithField("latest", latest).Warn("History cursor did not advance, stopping")
			return all, nil
		}
		latest = next
	}
}

// SynchronizeAll synchronizes every unarchived channel with at least
// MinMembers members, several at a time. A failing channel does not stop
// the others; its error is included in the returned joined error.
func (s *Service) SynchronizeAll(ctx context.Context) ([]Result, error) {
	channels, err := s.deps.Channels.ListChannels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	var targets []domain.Channel
	for _, ch := range channels {
		if ch.Archived || ch.MemberCount < s.opts.MinMembers {
			continue
		}
		targets = append(targets, ch)
	}
	s.log.WithFields(logrus.Fields{"listed": len(channels), "selected": len(targets)}).Info("Synchronizing channels")

	results := make([]Result, len(targets))
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, ch := range targets {
		i, ch := i, ch
		g.Go(func() error {
			res, err := s.Synchronize(gctx, ch.ID)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("channel %s: %w", ch.ID, err))
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var done []Result
	for _, r := range results {
		if r.Store != nil {
			done = append(done, r)
		}
	}
	return done, errors.Join(errs...)
}

// epochToken formats nanoseconds since the epoch as a Slack timestamp token.
func epochToken(nanos int64) string {
	return fmt.Sprintf("%d.%06d", nanos/1e9, (nanos%1e9)/1e3)
}
