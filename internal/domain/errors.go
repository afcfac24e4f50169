package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned by the persistence layer when a channel has never been synchronized.
	ErrNotFound = errors.New("not found")

	// ErrMalformedMessage marks a message lacking the fields needed to attribute a link.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUpstream marks a chat-service failure that is not a rate limit.
	ErrUpstream = errors.New("upstream error")
)

// RateLimitedError is returned when the chat service asks the caller to back off.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// UpstreamError wraps a non rate-limit chat-service failure.
type UpstreamError struct {
	Method string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Method, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
