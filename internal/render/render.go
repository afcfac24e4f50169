// Package render turns a link store into its structured record and its
// markdown summary document.
package render

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"navi/internal/domain"
	"navi/internal/links"
	"navi/internal/title"
)

// TimeLayout is the layout of the "Posted:" timestamp in documents.
const TimeLayout = "Jan 02 2006 03:04:05PM"

// UserDirectory resolves user IDs to display names.
type UserDirectory interface {
	DisplayName(ctx context.Context, userID string) string
}

// Rendered is the output of one render pass.
type Rendered struct {
	// Record is the lossless structured form of the store.
	Record []byte
	// Document is the human-readable summary.
	Document []byte
}

// Renderer renders link stores. Output depends only on the store and on the
// answers of the title resolver and user directory.
type Renderer struct {
	titles  title.Resolver
	users   UserDirectory
	loc     *time.Location
	workers int
}

// NewRenderer creates a renderer. Titles are resolved by up to workers
// concurrent lookups; timestamps are shown in loc (UTC when nil).
func NewRenderer(titles title.Resolver, users UserDirectory, loc *time.Location, workers int) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = 1
	}
	return &Renderer{titles: titles, users: users, loc: loc, workers: workers}
}

// Render produces the structured record and display document for store.
func (r *Renderer) Render(ctx context.Context, store *links.Store, channelName string) (Rendered, error) {
	record, err := store.Encode()
	if err != nil {
		return Rendered{}, fmt.Errorf("encode record: %w", err)
	}
	return Rendered{Record: record, Document: r.Document(ctx, store, channelName)}, nil
}

// Document renders the markdown summary: a channel heading, then one
// subsection per non-empty section with links sorted by timestamp.
func (r *Renderer) Document(ctx context.Context, store *links.Store, channelName string) []byte {
	type section struct {
		name  string
		links []domain.Link
	}
	var sections []section
	var all []domain.Link
	for _, name := range store.Sections() {
		sorted := store.Sorted(name)
		if len(sorted) == 0 {
			continue
		}
		sections = append(sections, section{name: name, links: sorted})
		all = append(all, sorted...)
	}

	titles := r.resolveTitles(ctx, all)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", channelName)
	i := 0
	for _, s := range sections {
		fmt.Fprintf(&b, "\n## %s<br/>\n", s.name)
		for _, l := range s.links {
			fmt.Fprintf(&b, "[%s](%s)<br/>By: %s Posted: %s <br/>\n",
				escapeTitle(titles[i]), l.URL, r.users.DisplayName(ctx, l.Creator), r.formatTimestamp(l.Timestamp))
			i++
		}
	}
	return []byte(b.String())
}

// resolveTitles looks up every title concurrently; results keep input order.
func (r *Renderer) resolveTitles(ctx context.Context, all []domain.Link) []string {
	titles := make([]string, len(all))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, l := range all {
		i, l := i, l
		g.Go(func() error {
			titles[i] = r.titles.Resolve(gctx, l.URL)
			return nil
		})
	}
	_ = g.Wait() // resolvers never fail
	return titles
}

// formatTimestamp renders an epoch-seconds token in the configured zone.
// Tokens that are not numbers are returned unchanged.
func (r *Renderer) formatTimestamp(ts string) string {
	f, err := strconv.ParseFloat(strings.TrimSpace(ts), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return ts
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).In(r.loc).Format(TimeLayout)
}

var titleEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`)

func escapeTitle(t string) string {
	return titleEscaper.Replace(t)
}
