// Package publish makes rendered channel documents addressable outside the bot.
package publish

import (
	"context"
	"strings"

	"navi/internal/domain"
)

// Sink publishes a rendered document and knows where it can be read.
type Sink interface {
	// Publish stores doc for channel and returns its addressable location.
	Publish(ctx context.Context, channel domain.Channel, doc []byte) (string, error)

	// Location returns where the channel's document is (or will be) published,
	// or "" when the sink has no public address.
	Location(channel domain.Channel) string

	// Prefix returns the address every published document starts with, or
	// "" when the sink has no public address.
	Prefix() string
}

// Noop is a Sink that publishes nothing.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, domain.Channel, []byte) (string, error) {
	return "", nil
}

// Location returns "".
func (Noop) Location(domain.Channel) string {
	return ""
}

// Prefix returns "".
func (Noop) Prefix() string {
	return ""
}

// documentName returns the published file name for a channel.
func documentName(channel domain.Channel) string {
	name := channel.Name
	if name == "" {
		name = channel.ID
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	if name == "." || name == ".." {
		name = channel.ID
	}
	return name + ".md"
}
