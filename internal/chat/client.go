// Package chat adapts the Slack Web API to the link collector.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"navi/internal/domain"
)

// DefaultAPIURL is the Slack Web API base URL.
const DefaultAPIURL = "https://slack.com/api/"

// Options configures the Slack client.
type Options struct {
	BotToken string
	AppToken string
	// APIURL overrides the Web API base URL (tests, proxies).
	APIURL string
	// PageSize is the number of messages requested per history page.
	PageSize int
	// Timeout bounds every history request.
	Timeout time.Duration
	// LegacyHistory uses channels.history / groups.history instead of conversations.history.
	LegacyHistory bool
}

// Client wraps a slack-go client plus a thin history fetcher that keeps the
// raw attachment fields slack-go's typed attachments drop.
type Client struct {
	api      *slack.Client
	http     *http.Client
	token    string
	baseURL  string
	pageSize int
	legacy   bool
	log      logrus.FieldLogger
}

// New creates a Slack client.
func New(opts Options, logger logrus.FieldLogger) *Client {
	baseURL := opts.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	httpClient := &http.Client{Timeout: timeout}
	apiOpts := []slack.Option{slack.OptionAPIURL(baseURL), slack.OptionHTTPClient(httpClient)}
	if opts.AppToken != "" {
		apiOpts = append(apiOpts, slack.OptionAppLevelToken(opts.AppToken))
	}

	return &Client{
		api:      slack.New(opts.BotToken, apiOpts...),
		http:     httpClient,
		token:    opts.BotToken,
		baseURL:  baseURL,
		pageSize: pageSize,
		legacy:   opts.LegacyHistory,
		log:      logger.WithField("component", "slack_client"),
	}
}

// API exposes the underlying slack-go client (socket mode needs it).
func (c *Client) API() *slack.Client {
	return c.api
}

// ListUsers returns every workspace user as ID → display name. The profile's
// real name is preferred, then the account real name, then the handle.
func (c *Client) ListUsers(ctx context.Context) (map[string]string, error) {
	users, err := c.api.GetUsersContext(ctx)
	if err != nil {
		return nil, translate("users.list", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		name := u.Profile.RealName
		if name == "" {
			name = u.RealName
		}
		if name == "" {
			name = u.Name
		}
		names[u.ID] = name
	}
	return names, nil
}

// ChannelName resolves a channel or group ID to its display name.
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	ch, err := c.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{ChannelID: channelID})
	if err != nil {
		return "", translate("conversations.info", err)
	}
	return ch.Name, nil
}

// ListChannels returns every unarchived public and private channel the bot can see.
func (c *Client) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	var out []domain.Channel
	cursor := ""
	for {
		chans, next, err := c.api.GetConversationsContext(ctx, &slack.GetConversationsParameters{
			Types:           []string{"public_channel", "private_channel"},
			ExcludeArchived: true,
			Limit:           200,
			Cursor:          cursor,
		})
		if err != nil {
			return nil, translate("conversations.list", err)
		}
		for _, ch := range chans {
			out = append(out, domain.Channel{
				ID:          ch.ID,
				Name:        ch.Name,
				MemberCount: ch.NumMembers,
				Archived:    ch.IsArchived,
			})
		}
		if next == "" {
			return out, nil
		}
		cursor = next
	}
}

// PostMessage posts text to a channel with unfurling disabled.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
		slack.MsgOptionDisableMediaUnfurl(),
	)
	if err != nil {
		return translate("chat.postMessage", err)
	}
	return nil
}

// BotUserID returns the user ID the bot token authenticates as.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", translate("auth.test", err)
	}
	return resp.UserID, nil
}

// translate maps slack-go errors onto the domain error taxonomy.
func translate(method string, err error) error {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return &domain.RateLimitedError{RetryAfter: rl.RetryAfter}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", method, err)
	}
	return &domain.UpstreamError{Method: method, Err: err}
}
