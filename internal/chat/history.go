package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"navi/internal/domain"
)

// defaultRetryAfter is used when a rate-limited response carries no Retry-After header.
const defaultRetryAfter = 30 * time.Second

type historyResponse struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error"`
	Messages []domain.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// historyMethod picks the Web API method for a channel.
func (c *Client) historyMethod(channelID string) string {
	if !c.legacy {
		return "conversations.history"
	}
	if domain.KindOf(channelID) == domain.ChannelPublic {
		return "channels.history"
	}
	return "groups.history"
}

// HistoryPage fetches messages of channelID posted before latest, an epoch
// timestamp token. Rate limiting is reported as *domain.RateLimitedError.
func (c *Client) HistoryPage(ctx context.Context, channelID, latest string) (domain.HistoryPage, error) {
	method := c.historyMethod(channelID)
	log := c.log.WithFields(logrus.Fields{
		"channel_id": channelID,
		"method":     method,
		"latest":     latest,
	})

	q := url.Values{}
	q.Set("channel", channelID)
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("count", strconv.Itoa(c.pageSize))
	if latest != "" {
		q.Set("latest", latest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+method+"?"+q.Encode(), nil)
	if err != nil {
		return domain.HistoryPage{}, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.HistoryPage{}, fmt.Errorf("%s: %w", method, ctx.Err())
		}
		return domain.HistoryPage{}, &domain.UpstreamError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp.Header.Get("Retry-After"))
		log.WithField("retry_after", wait).Warn("History fetch rate limited")
		return domain.HistoryPage{}, &domain.RateLimitedError{RetryAfter: wait}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.HistoryPage{}, &domain.UpstreamError{Method: method, Err: fmt.Errorf("status %d: %s", resp.StatusCode, body)}
	}

	var decoded historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.HistoryPage{}, &domain.UpstreamError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if !decoded.OK {
		if decoded.Error == "ratelimited" {
			return domain.HistoryPage{}, &domain.RateLimitedError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
		}
		return domain.HistoryPage{}, &domain.UpstreamError{Method: method, Err: fmt.Errorf("slack error: %s", decoded.Error)}
	}

	log.WithFields(logrus.Fields{
		"message_count": len(decoded.Messages),
		"has_more":      decoded.HasMore,
	}).Debug("History page fetched")
	return domain.HistoryPage{Messages: decoded.Messages, HasMore: decoded.HasMore}, nil
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
