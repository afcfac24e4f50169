// Package users caches the chat-service user directory used to attribute links.
package users

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Source lists the users of the workspace as ID → display name.
type Source interface {
	ListUsers(ctx context.Context) (map[string]string, error)
}

// Directory resolves user IDs to display names. The full listing is fetched
// on first use and refreshed once it is older than the TTL. A failed fetch
// keeps serving the previous snapshot (or bare IDs when there is none) and is
// not retried before the failure backoff has passed.
type Directory struct {
	source  Source
	ttl     time.Duration
	backoff time.Duration
	now     func() time.Time
	log     logrus.FieldLogger

	mu        sync.Mutex
	names     map[string]string
	fetchedAt time.Time
	failedAt  time.Time
}

// DefaultFailureBackoff is how long a failed listing suppresses new fetches.
const DefaultFailureBackoff = time.Minute

// NewDirectory creates a directory backed by source. A ttl of zero or less
// means the listing is fetched once and never refreshed.
func NewDirectory(source Source, ttl time.Duration, logger logrus.FieldLogger) *Directory {
	return &Directory{
		source:  source,
		ttl:     ttl,
		backoff: DefaultFailureBackoff,
		now:     time.Now,
		log:     logger.WithField("component", "user_directory"),
	}
}

// DisplayName returns the display name of userID, or userID itself when unknown.
func (d *Directory) DisplayName(ctx context.Context, userID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stale() {
		d.refresh(ctx)
	}
	if name, ok := d.names[userID]; ok && name != "" {
		return name
	}
	return userID
}

// Invalidate forces a refresh on the next lookup.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fetchedAt = time.Time{}
	d.failedAt = time.Time{}
}

func (d *Directory) stale() bool {
	now := d.now()
	if !d.failedAt.IsZero() && now.Sub(d.failedAt) < d.backoff {
		return false
	}
	if d.fetchedAt.IsZero() {
		return true
	}
	return d.ttl > 0 && now.Sub(d.fetchedAt) >= d.ttl
}

func (d *Directory) refresh(ctx context.Context) {
	names, err := d.source.ListUsers(ctx)
	if err != nil {
		d.log.WithError(err).WithField("retry_in", d.backoff).Warn("Failed to refresh user directory, keeping previous snapshot")
		d.failedAt = d.now()
		return
	}
	d.names = names
	d.fetchedAt = d.now()
	d.failedAt = time.Time{}
	d.log.WithField("user_count", len(names)).Debug("User directory refreshed")
}
