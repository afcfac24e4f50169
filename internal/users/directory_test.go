package users

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeSource struct {
	calls int
	names map[string]string
	err   error
}

func (f *fakeSource) ListUsers(context.Context) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]string, len(f.names))
	for k, v := range f.names {
		out[k] = v
	}
	return out, nil
}

func newTestDirectory(src Source, ttl time.Duration) (*Directory, *time.Time) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	d := NewDirectory(src, ttl, l)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return clock }
	return d, &clock
}

func TestDirectory_LookupAndFallback(t *testing.T) {
	src := &fakeSource{names: map[string]string{"U1": "Ada Lovelace", "U2": ""}}
	d, _ := newTestDirectory(src, time.Hour)
	ctx := context.Background()

	assert.Equal(t, "Ada Lovelace", d.DisplayName(ctx, "U1"))
	assert.Equal(t, "U2", d.DisplayName(ctx, "U2"), "empty names fall back to the ID")
	assert.Equal(t, "U404", d.DisplayName(ctx, "U404"))
	assert.Equal(t, 1, src.calls, "lookups within the TTL reuse the snapshot")
}

func TestDirectory_RefreshPolicy(t *testing.T) {
	src := &fakeSource{names: map[string]string{"U1": "Ada"}}
	d, clock := newTestDirectory(src, time.Hour)
	ctx := context.Background()

	d.DisplayName(ctx, "U1")
	*clock = clock.Add(59 * time.Minute)
	d.DisplayName(ctx, "U1")
	assert.Equal(t, 1, src.calls)

	src.names["U1"] = "Ada L."
	*clock = clock.Add(time.Minute)
	assert.Equal(t, "Ada L.", d.DisplayName(ctx, "U1"))
	assert.Equal(t, 2, src.calls)

	d.Invalidate()
	d.DisplayName(ctx, "U1")
	assert.Equal(t, 3, src.calls)
}

func TestDirectory_FailedRefreshKeepsSnapshot(t *testing.T) {
	src := &fakeSource{names: map[string]string{"U1": "Ada"}}
	d, clock := newTestDirectory(src, time.Minute)
	ctx := context.Background()

	assert.Equal(t, "Ada", d.DisplayName(ctx, "U1"))

	src.err = errors.New("slack down")
	*clock = clock.Add(2 * time.Minute)
	assert.Equal(t, "Ada", d.DisplayName(ctx, "U1"))
	assert.Equal(t, "Ada", d.DisplayName(ctx, "U1"))
	assert.Equal(t, 2, src.calls, "a failed refresh is not retried within the backoff")

	src.err = nil
	src.names["U1"] = "Ada L."
	*clock = clock.Add(DefaultFailureBackoff)
	assert.Equal(t, "Ada L.", d.DisplayName(ctx, "U1"))
	assert.Equal(t, 3, src.calls)
}

func TestDirectory_UnreachableSourceIsFetchedOncePerBackoff(t *testing.T) {
	src := &fakeSource{err: errors.New("slack down")}
	d, clock := newTestDirectory(src, time.Hour)
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		assert.Equal(t, "U1", d.DisplayName(ctx, "U1"))
	}
	assert.Equal(t, 1, src.calls, "lookups during the backoff must not hit the source")

	*clock = clock.Add(DefaultFailureBackoff - time.Second)
	d.DisplayName(ctx, "U1")
	assert.Equal(t, 1, src.calls)

	*clock = clock.Add(time.Second)
	d.DisplayName(ctx, "U1")
	assert.Equal(t, 2, src.calls, "the source is retried once the backoff has passed")

	src.err = nil
	src.names = map[string]string{"U1": "Ada"}
	d.Invalidate()
	assert.Equal(t, "Ada", d.DisplayName(ctx, "U1"))
	assert.Equal(t, 3, src.calls)
}
