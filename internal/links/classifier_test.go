package links

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(DefaultRules)

	cases := map[string]string{
		"https://github.com/foo/bar":          "GitHub",
		"https://gist.github.com/someone/abc": "GitHub",
		"https://stackoverflow.com/q/1":       "StackOverflow",
		"https://docs.oracle.com/javase/8/":   "Java",
		"https://docs.python.org/3/":          "Python",
		"https://example.com/interview-prep":  "Interview",
		"https://example.com/":                MiscSection,
		"https://GITHUB.com/Upper/Case":       "GitHub",
		"":                                    MiscSection,
	}
	for url, want := range cases {
		assert.Equal(t, want, c.Classify(url), "url %q", url)
	}
}

func TestClassifier_FirstMatchWins(t *testing.T) {
	c := NewClassifier(DefaultRules)
	// Matches both "git" and "python"; the earlier rule wins.
	assert.Equal(t, "GitHub", c.Classify("https://github.com/python/cpython"))
}

func TestClassifier_MiscOnlyWhenNoRuleMatches(t *testing.T) {
	c := NewClassifier(DefaultRules)
	urls := []string{
		"https://github.com/a", "https://stackoverflow.com/b", "http://x.java.net",
		"https://example.org", "ftp://weird", "https://news.ycombinator.com",
	}
	for _, u := range urls {
		section := c.Classify(u)
		assert.Contains(t, c.Sections(), section)

		matched := false
		for _, r := range DefaultRules {
			if containsFold(u, r.Match) {
				matched = true
			}
		}
		assert.Equal(t, !matched, section == MiscSection, "url %q", u)
	}
}

func TestClassifier_Sections(t *testing.T) {
	c := NewClassifier([]Rule{
		{Match: "go.dev", Section: "Go"},
		{Match: "golang", Section: "Go"},
		{Match: "", Section: "Misc"},
		{Match: "rust", Section: "Rust"},
	})
	assert.Equal(t, []string{"Go", "Rust", MiscSection}, c.Sections())
	assert.Equal(t, "Go", c.Classify("https://golang.org/doc"))
	assert.Equal(t, MiscSection, c.Classify("https://example.com"))
}

func containsFold(s, sub string) bool {
	return NewClassifier([]Rule{{Match: sub, Section: "x"}}).Classify(s) == "x"
}
