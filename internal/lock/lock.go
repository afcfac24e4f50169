// Package lock serializes read-modify-write cycles on a channel's record.
package lock

import (
	"context"
	"sync"
)

// Locker grants exclusive access to one channel at a time.
type Locker interface {
	// Lock blocks until the channel is held or ctx ends. The returned
	// function releases the lock.
	Lock(ctx context.Context, channelID string) (unlock func(), err error)
}

// Local is an in-process Locker keyed by channel ID.
type Local struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]chan struct{})}
}

func (l *Local) channel(channelID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[channelID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[channelID] = ch
	}
	return ch
}

// Lock acquires the channel lock, giving up when ctx is done.
func (l *Local) Lock(ctx context.Context, channelID string) (func(), error) {
	ch := l.channel(channelID)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
