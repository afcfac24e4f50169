package title

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page is read while looking for <title>.
const maxBodyBytes = 2 << 20

// HTTPResolver fetches pages over HTTP(S) and extracts the HTML <title>.
type HTTPResolver struct {
	client  *http.Client
	timeout time.Duration
	filter  filter
	log     logrus.FieldLogger
}

// NewHTTPResolver creates a resolver bounded by timeout per fetch.
// A nil client uses a fresh http.Client.
func NewHTTPResolver(client *http.Client, timeout time.Duration, denylist []string, logger logrus.FieldLogger) *HTTPResolver {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPResolver{
		client:  client,
		timeout: timeout,
		filter:  newFilter(denylist),
		log:     logger.WithField("component", "title_resolver"),
	}
}

// Resolve fetches url and returns its title, or url on any failure.
func (r *HTTPResolver) Resolve(ctx context.Context, url string) string {
	log := r.log.WithField("url", url)

	raw, err := r.fetchTitle(ctx, url)
	if err != nil {
		log.WithError(err).Debug("Title fetch failed, using URL")
		return url
	}
	t, ok := r.filter.accept(raw)
	if !ok {
		log.WithField("title", raw).Debug("Title rejected, using URL")
		return url
	}
	return t
}

func (r *HTTPResolver) fetchTitle(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "navi-link-collector/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseTitle(io.LimitReader(resp.Body, maxBodyBytes))
}

// parseTitle returns the text of the first <title> element in an HTML stream.
func parseTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("parse html: %w", err)
			}
			return "", fmt.Errorf("no title element")
		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) != "title" {
				continue
			}
			var b strings.Builder
			for {
				tt := z.Next()
				if tt == html.TextToken {
					b.Write(z.Text())
					continue
				}
				if tt == html.ErrorToken && z.Err() != io.EOF {
					return "", fmt.Errorf("parse html: %w", z.Err())
				}
				return b.String(), nil
			}
		}
	}
}
