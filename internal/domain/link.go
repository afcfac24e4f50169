package domain

import (
	"math"
	"strconv"
	"strings"
)

// Link represents one URL observed in one channel message.
type Link struct {
	// URL is the raw, unescaped link target.
	URL string `json:"url"`

	// Creator is the chat-service user ID of the message author.
	Creator string `json:"creator"`

	// Timestamp is the message send time as emitted by the chat service
	// (e.g. "1500000000.000100"). It is treated as an opaque token.
	Timestamp string `json:"timestamp"`

	// ReactionCount is the sum of reaction counts on the originating message.
	// It is not part of the link identity.
	ReactionCount int `json:"reaction_count"`
}

// Key is the identity of a Link. Two links are the same link iff their keys are equal.
type Key struct {
	URL       string
	Creator   string
	Timestamp string
}

// Key returns the identity of the link.
func (l Link) Key() Key {
	return Key{URL: l.URL, Creator: l.Creator, Timestamp: l.Timestamp}
}

// TimestampBefore reports whether timestamp a sorts strictly before b.
// Numeric tokens come first, ordered by value, and non-numeric tokens follow
// in lexical order. Equal values are ordered lexically.
func TimestampBefore(a, b string) bool {
	fa, numA := timestampValue(a)
	fb, numB := timestampValue(b)
	switch {
	case numA && numB:
		if fa != fb {
			return fa < fb
		}
	case numA:
		return true
	case numB:
		return false
	}
	return a < b
}

func timestampValue(ts string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	return f, err == nil && !math.IsNaN(f)
}
