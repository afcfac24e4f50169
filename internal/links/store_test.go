package links

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"navi/internal/domain"
)

func newTestStore() *Store {
	return NewStore(NewClassifier(DefaultRules))
}

func TestNewStore_AllSectionsPresent(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, []string{"GitHub", "StackOverflow", "Java", "Python", "Interview", MiscSection}, s.Sections())
	for _, name := range s.Sections() {
		assert.Empty(t, s.Links(name))
	}
	assert.Equal(t, 0, s.Len())
}

func TestStore_MergeIdempotent(t *testing.T) {
	batch := []domain.Link{
		{URL: "https://github.com/foo/bar", Creator: "U1", Timestamp: "100.0"},
		{URL: "https://stackoverflow.com/q/1", Creator: "U1", Timestamp: "101.0"},
		{URL: "https://example.com", Creator: "U2", Timestamp: "102.0"},
	}

	once := newTestStore()
	assert.Equal(t, 3, once.Merge(batch...))

	twice := newTestStore()
	twice.Merge(batch...)
	assert.Equal(t, 0, twice.Merge(batch...), "second merge must add nothing")

	a, err := once.Encode()
	require.NoError(t, err)
	b, err := twice.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestStore_MergeIgnoresReactionCountForIdentity(t *testing.T) {
	s := newTestStore()
	s.Merge(domain.Link{URL: "https://github.com/a", Creator: "U1", Timestamp: "1", ReactionCount: 0})
	added := s.Merge(domain.Link{URL: "https://github.com/a", Creator: "U1", Timestamp: "1", ReactionCount: 4})

	assert.Equal(t, 0, added)
	require.Len(t, s.Links("GitHub"), 1)
	assert.Equal(t, 0, s.Links("GitHub")[0].ReactionCount, "existing links are never edited")
}

func TestStore_NoCrossSectionDuplicates(t *testing.T) {
	s := newTestStore()
	links := []domain.Link{
		{URL: "https://github.com/python/cpython", Creator: "U1", Timestamp: "1"},
		{URL: "https://github.com/python/cpython", Creator: "U1", Timestamp: "1"},
		{URL: "https://github.com/python/cpython", Creator: "U2", Timestamp: "1"},
		{URL: "https://python.org", Creator: "U1", Timestamp: "2"},
	}
	for i := 0; i < 3; i++ {
		s.Merge(links...)
	}

	counts := make(map[domain.Key]int)
	for _, name := range s.Sections() {
		for _, l := range s.Links(name) {
			counts[l.Key()]++
		}
	}
	for k, n := range counts {
		assert.Equal(t, 1, n, "identity %+v stored %d times", k, n)
	}
	assert.Equal(t, 3, s.Len())
	section, ok := s.SectionOf(links[0].Key())
	require.True(t, ok)
	assert.Equal(t, "GitHub", section)
}

func TestStore_SortedByTimestamp(t *testing.T) {
	s := newTestStore()
	s.Merge(
		domain.Link{URL: "https://example.com/c", Creator: "U1", Timestamp: "300.5"},
		domain.Link{URL: "https://example.com/a", Creator: "U1", Timestamp: "99.0"},
		domain.Link{URL: "https://example.com/b", Creator: "U1", Timestamp: "100.0"},
		domain.Link{URL: "https://example.com/b2", Creator: "U2", Timestamp: "100.0"},
	)

	sorted := s.Sorted(MiscSection)
	require.Len(t, sorted, 4)
	for i := 1; i < len(sorted); i++ {
		assert.False(t, domain.TimestampBefore(sorted[i].Timestamp, sorted[i-1].Timestamp), "out of order at %d", i)
	}
	assert.Equal(t, "https://example.com/a", sorted[0].URL)
	assert.Equal(t, "https://example.com/b", sorted[1].URL, "equal timestamps keep insertion order")
	assert.Equal(t, "https://example.com/b2", sorted[2].URL)

	assert.Equal(t, "https://example.com/c", s.Links(MiscSection)[0].URL, "Sorted must not reorder the store")
}

func TestStore_EncodeDecodeRoundTrip(t *testing.T) {
	s := newTestStore()
	s.Merge(
		domain.Link{URL: "https://github.com/foo/bar", Creator: "U1", Timestamp: "100.0", ReactionCount: 2},
		domain.Link{URL: "https://example.com", Creator: "U2", Timestamp: "101.0"},
	)

	data, err := s.Encode()
	require.NoError(t, err)

	var generic map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Len(t, generic, 6, "every section is encoded, even empty ones")
	assert.Equal(t, "https://github.com/foo/bar", generic["GitHub"][0]["url"])
	assert.EqualValues(t, 2, generic["GitHub"][0]["reaction_count"])
	assert.NotNil(t, generic["Java"])

	loaded, err := Decode(NewClassifier(DefaultRules), data)
	require.NoError(t, err)
	again, err := loaded.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
	assert.True(t, loaded.Contains(domain.Key{URL: "https://example.com", Creator: "U2", Timestamp: "101.0"}))
}

func TestDecode_MissingReactionCountAndUnknownSections(t *testing.T) {
	record := `{
		"GitHub": [{"url": "https://github.com/a", "creator": "U1", "timestamp": "1.0"}],
		"Legacy": [{"url": "https://old.example", "creator": "U1", "timestamp": "2.0"}],
		"Misc": null
	}`

	s, err := Decode(NewClassifier(DefaultRules), []byte(record))
	require.NoError(t, err)

	require.Len(t, s.Links("GitHub"), 1)
	assert.Equal(t, 0, s.Links("GitHub")[0].ReactionCount)
	assert.Equal(t, "Legacy", s.Sections()[len(s.Sections())-1])
	assert.Len(t, s.Links("Legacy"), 1)

	// Re-merging the legacy link does not duplicate it into Misc.
	assert.Equal(t, 0, s.Merge(domain.Link{URL: "https://old.example", Creator: "U1", Timestamp: "2.0"}))
	assert.Empty(t, s.Links(MiscSection))
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(NewClassifier(DefaultRules), []byte("{not json"))
	assert.Error(t, err)
}
