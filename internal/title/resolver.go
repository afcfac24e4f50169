// Package title resolves display titles for link URLs. Every resolver
// degrades to the URL itself on failure; none of them return errors.
package title

import (
	"context"
	"strings"
)

// Resolver returns a display title for a URL.
type Resolver interface {
	// Resolve returns the page title for url, or url itself when no usable
	// title can be obtained.
	Resolve(ctx context.Context, url string) string
}

// DefaultDenylist holds title fragments that indicate a dead or blocked page.
var DefaultDenylist = []string{"not found", "forbidden", "denied"}

// URLResolver returns the URL as its own title. It is used when title
// fetching is disabled.
type URLResolver struct{}

// Resolve returns url unchanged.
func (URLResolver) Resolve(_ context.Context, url string) string {
	return url
}

// filter holds the post-processing shared by the fetching resolvers.
type filter struct {
	denylist []string
}

func newFilter(denylist []string) filter {
	f := filter{}
	for _, d := range denylist {
		if d = strings.TrimSpace(d); d != "" {
			f.denylist = append(f.denylist, strings.ToLower(d))
		}
	}
	return f
}

// accept normalizes raw and reports whether it is usable as a title.
func (f filter) accept(raw string) (string, bool) {
	t := normalize(raw)
	if t == "" {
		return "", false
	}
	lower := strings.ToLower(t)
	for _, d := range f.denylist {
		if strings.Contains(lower, d) {
			return "", false
		}
	}
	return t, true
}

// normalize collapses newlines, tabs and repeated spaces and trims the result.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
