package links

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"navi/internal/domain"
)

// spanPattern matches chat-service markup spans such as <https://x|label>,
// <@U123> or <#C123|general>.
var spanPattern = regexp.MustCompile(`<([^<>]*)>`)

// ExtractorOptions tunes link extraction.
type ExtractorOptions struct {
	// SelfFragments are substrings identifying the bot's own published
	// artifacts. Messages mentioning any of them are skipped.
	SelfFragments []string
	// SelfUserID is the bot's user ID; its own messages are skipped.
	SelfUserID string
	// AllTextLinks extracts every link span of the text instead of only the first span.
	AllTextLinks bool
}

// Extractor turns channel messages into candidate links.
type Extractor struct {
	opts      ExtractorOptions
	fragments []string
}

// NewExtractor returns an extractor configured by opts.
func NewExtractor(opts ExtractorOptions) *Extractor {
	e := &Extractor{opts: opts}
	for _, f := range opts.SelfFragments {
		if f = strings.TrimSpace(f); f != "" {
			e.fragments = append(e.fragments, strings.ToLower(f))
		}
	}
	return e
}

// Extract returns the links carried by msg, in text-then-attachment order,
// with duplicate identities removed. Self-referential messages yield no links.
// A message without author or timestamp yields domain.ErrMalformedMessage.
func (e *Extractor) Extract(msg domain.Message) ([]domain.Link, error) {
	if e.IsSelfReference(msg) {
		return nil, nil
	}

	urls := e.textLinks(msg.Text)
	for _, a := range msg.Attachments {
		if a.OriginalURL != "" {
			urls = append(urls, a.OriginalURL)
		}
		if a.AppUnfurlURL != "" {
			urls = append(urls, a.AppUnfurlURL)
		}
	}
	if len(urls) == 0 {
		return nil, nil
	}

	if msg.User == "" || msg.Timestamp == "" {
		return nil, fmt.Errorf("%w: user=%q ts=%q", domain.ErrMalformedMessage, msg.User, msg.Timestamp)
	}

	reactions := msg.ReactionCount()
	seen := make(map[domain.Key]bool, len(urls))
	links := make([]domain.Link, 0, len(urls))
	for _, u := range urls {
		l := domain.Link{URL: u, Creator: msg.User, Timestamp: msg.Timestamp, ReactionCount: reactions}
		if seen[l.Key()] {
			continue
		}
		seen[l.Key()] = true
		links = append(links, l)
	}
	return links, nil
}

// HasLinkCandidate reports whether msg carries attachments or a link span
// and is therefore worth handing to Extract.
func (e *Extractor) HasLinkCandidate(msg domain.Message) bool {
	return len(msg.Attachments) > 0 || len(e.textLinks(msg.Text)) > 0
}

// IsSelfReference reports whether msg was posted by the bot or points at one
// of its own published artifacts.
func (e *Extractor) IsSelfReference(msg domain.Message) bool {
	if e.opts.SelfUserID != "" && msg.User == e.opts.SelfUserID {
		return true
	}
	if len(e.fragments) == 0 {
		return false
	}
	haystacks := []string{msg.Text}
	for _, a := range msg.Attachments {
		haystacks = append(haystacks, a.OriginalURL, a.AppUnfurlURL)
	}
	for _, h := range haystacks {
		h = strings.ToLower(h)
		for _, f := range e.fragments {
			if strings.Contains(h, f) {
				return true
			}
		}
	}
	return false
}

// textLinks returns link targets found in text. Only the first span is
// considered unless AllTextLinks is set.
func (e *Extractor) textLinks(text string) []string {
	if !strings.Contains(text, "<") {
		return nil
	}
	limit := 1
	if e.opts.AllTextLinks {
		limit = -1
	}
	var out []string
	for _, m := range spanPattern.FindAllStringSubmatch(text, limit) {
		if u, ok := linkTarget(m[1]); ok {
			out = append(out, u)
		}
	}
	return out
}

// linkTarget reduces a span body to its URL. Mentions (@), specials (!) and
// channel references (#) are rejected, as is anything not starting with http.
func linkTarget(span string) (string, bool) {
	if !strings.HasPrefix(span, "http") {
		return "", false
	}
	if i := strings.IndexByte(span, '|'); i >= 0 {
		span = span[:i]
	}
	return html.UnescapeString(span), span != ""
}
