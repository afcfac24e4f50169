package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navi/internal/domain"
)

func TestExtractor_TextLink(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	msg := domain.Message{User: "U1", Timestamp: "100.0", Text: "<https://github.com/foo/bar>"}

	links, err := e.Extract(msg)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, domain.Link{URL: "https://github.com/foo/bar", Creator: "U1", Timestamp: "100.0"}, links[0])
	assert.Equal(t, "GitHub", NewClassifier(DefaultRules).Classify(links[0].URL))
}

func TestExtractor_RejectsMarkupTokens(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	for _, text := range []string{
		"<@U2> check this out",
		"<!here> standup",
		"<#C024BE91L|general> has the notes",
		"no markup at all",
		"3 < 4 but no close",
		"",
	} {
		links, err := e.Extract(domain.Message{User: "U1", Timestamp: "1.0", Text: text})
		require.NoError(t, err, "text %q", text)
		assert.Empty(t, links, "text %q", text)
	}
}

func TestExtractor_LabelAndEntities(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	msg := domain.Message{User: "U1", Timestamp: "1.0", Text: "see <https://example.com/?a=1&amp;b=2|the docs>"}

	links, err := e.Extract(msg)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://example.com/?a=1&b=2", links[0].URL)
}

func TestExtractor_FirstSpanOnlyByDefault(t *testing.T) {
	text := "<https://github.com/a> and <https://python.org>"
	msg := domain.Message{User: "U1", Timestamp: "1.0", Text: text}

	links, err := NewExtractor(ExtractorOptions{}).Extract(msg)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "https://github.com/a", links[0].URL)

	links, err = NewExtractor(ExtractorOptions{AllTextLinks: true}).Extract(msg)
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "https://python.org", links[1].URL)

	// A leading mention hides later links in first-span mode.
	mention := domain.Message{User: "U1", Timestamp: "1.0", Text: "<@U2> look <https://github.com/a>"}
	links, err = NewExtractor(ExtractorOptions{}).Extract(mention)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractor_Attachments(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	msg := domain.Message{
		User:      "U1",
		Timestamp: "200.0",
		Attachments: []domain.Attachment{
			{OriginalURL: "https://stackoverflow.com/q/1", AppUnfurlURL: "https://stackoverflow.com/q/1?x=1"},
		},
		Reactions: []domain.Reaction{{Name: "+1", Count: 2}, {Name: "eyes", Count: 1}},
	}

	links, err := e.Extract(msg)
	require.NoError(t, err)
	require.Len(t, links, 2)

	c := NewClassifier(DefaultRules)
	for _, l := range links {
		assert.Equal(t, "U1", l.Creator)
		assert.Equal(t, "200.0", l.Timestamp)
		assert.Equal(t, 3, l.ReactionCount)
		assert.Equal(t, "StackOverflow", c.Classify(l.URL))
	}
	assert.NotEqual(t, links[0].Key(), links[1].Key())
}

func TestExtractor_TextAndUnfurlCollapse(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	msg := domain.Message{
		User:        "U1",
		Timestamp:   "1.0",
		Text:        "<https://github.com/foo/bar>",
		Attachments: []domain.Attachment{{OriginalURL: "https://github.com/foo/bar"}},
	}

	links, err := e.Extract(msg)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestExtractor_SelfReference(t *testing.T) {
	e := NewExtractor(ExtractorOptions{
		SelfFragments: []string{"github.com/ElBell/Navi-Slackbot"},
		SelfUserID:    "UBOT",
	})

	own := domain.Message{User: "U1", Timestamp: "1.0", Text: "<https://github.com/elbell/navi-slackbot/blob/master/files/general.md>"}
	assert.True(t, e.IsSelfReference(own))
	links, err := e.Extract(own)
	require.NoError(t, err)
	assert.Empty(t, links)

	viaAttachment := domain.Message{
		User:        "U1",
		Timestamp:   "1.0",
		Attachments: []domain.Attachment{{OriginalURL: "https://github.com/ElBell/Navi-Slackbot/blob/master/files/x.md"}},
	}
	assert.True(t, e.IsSelfReference(viaAttachment))

	fromBot := domain.Message{User: "UBOT", Timestamp: "1.0", Text: "<https://github.com/foo>"}
	assert.True(t, e.IsSelfReference(fromBot))

	other := domain.Message{User: "U1", Timestamp: "1.0", Text: "<https://github.com/foo>"}
	assert.False(t, e.IsSelfReference(other))
}

func TestExtractor_Malformed(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})

	_, err := e.Extract(domain.Message{Text: "<https://github.com/foo>", Timestamp: "1.0"})
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)

	_, err = e.Extract(domain.Message{Text: "<https://github.com/foo>", User: "U1"})
	assert.ErrorIs(t, err, domain.ErrMalformedMessage)

	// Without link candidates a missing author is irrelevant.
	links, err := e.Extract(domain.Message{Text: "hello"})
	assert.NoError(t, err)
	assert.Empty(t, links)
}

func TestExtractor_HasLinkCandidate(t *testing.T) {
	e := NewExtractor(ExtractorOptions{})
	assert.True(t, e.HasLinkCandidate(domain.Message{Text: "<https://x.example>"}))
	assert.True(t, e.HasLinkCandidate(domain.Message{Attachments: []domain.Attachment{{}}}))
	assert.False(t, e.HasLinkCandidate(domain.Message{Text: "<@U1> hi"}))
}
