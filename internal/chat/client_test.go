package chat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navi/internal/domain"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, handler http.Handler, legacy bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BotToken: "xoxb-test", APIURL: srv.URL, PageSize: 2, LegacyHistory: legacy}, testLogger())
}

const historyBody = `{
	"ok": true,
	"has_more": true,
	"messages": [
		{
			"type": "message", "user": "U1", "ts": "200.000100",
			"text": "<https://github.com/foo/bar>",
			"reactions": [{"name": "+1", "count": 2, "users": ["U2", "U3"]}]
		},
		{
			"type": "message", "user": "U2", "ts": "100.000100", "text": "",
			"attachments": [{"original_url": "https://stackoverflow.com/q/1", "app_unfurl_url": "https://stackoverflow.com/q/1?x=1"}]
		}
	]
}`

func TestHistoryPage_Decode(t *testing.T) {
	var gotPath, gotAuth, gotLatest, gotLimit string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotLatest = r.URL.Query().Get("latest")
		gotLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, historyBody)
	}), false)

	page, err := c.HistoryPage(context.Background(), "C1", "300.0")
	require.NoError(t, err)

	assert.Equal(t, "/conversations.history", gotPath)
	assert.Equal(t, "Bearer xoxb-test", gotAuth)
	assert.Equal(t, "300.0", gotLatest)
	assert.Equal(t, "2", gotLimit)

	assert.True(t, page.HasMore)
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "U1", page.Messages[0].User)
	assert.Equal(t, 2, page.Messages[0].ReactionCount())
	require.Len(t, page.Messages[1].Attachments, 1)
	assert.Equal(t, "https://stackoverflow.com/q/1?x=1", page.Messages[1].Attachments[0].AppUnfurlURL)
}

func TestHistoryPage_LegacyMethods(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, `{"ok": true, "messages": [], "has_more": false}`)
	}), true)

	_, err := c.HistoryPage(context.Background(), "C1", "")
	require.NoError(t, err)
	_, err = c.HistoryPage(context.Background(), "G1", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"/channels.history", "/groups.history"}, paths)
}

func TestHistoryPage_RateLimited(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}), false)

	_, err := c.HistoryPage(context.Background(), "C1", "")
	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 7*time.Second, rl.RetryAfter)
}

func TestHistoryPage_RateLimitedBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": false, "error": "ratelimited"}`)
	}), false)

	_, err := c.HistoryPage(context.Background(), "C1", "")
	var rl *domain.RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, defaultRetryAfter, rl.RetryAfter)
}

func TestHistoryPage_UpstreamErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("channel") == "C500" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"ok": false, "error": "channel_not_found"}`)
	}), false)

	_, err := c.HistoryPage(context.Background(), "C404", "")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorContains(t, err, "channel_not_found")

	_, err = c.HistoryPage(context.Background(), "C500", "")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestListUsersAndChannelName(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users.list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "members": [
			{"id": "U1", "name": "ada", "real_name": "Ada", "profile": {"real_name": "Ada Lovelace"}},
			{"id": "U2", "name": "grace", "profile": {}}
		], "response_metadata": {"next_cursor": ""}}`)
	})
	mux.HandleFunc("/conversations.info", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok": true, "channel": {"id": "C1", "name": "general"}}`)
	})
	c := newTestClient(t, mux, false)
	ctx := context.Background()

	names, err := c.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"U1": "Ada Lovelace", "U2": "grace"}, names)

	name, err := c.ChannelName(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "general", name)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, defaultRetryAfter, retryAfter(""))
	assert.Equal(t, defaultRetryAfter, retryAfter("soon"))
}
