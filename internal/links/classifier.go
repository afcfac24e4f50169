// Package links holds the link collection engine: extraction of links from
// channel messages, section classification and the deduplicating link store.
package links

import "strings"

// MiscSection is the section for links no rule matches.
const MiscSection = "Misc"

// Rule maps a URL substring to a section name.
type Rule struct {
	Match   string `mapstructure:"match" json:"match"`
	Section string `mapstructure:"section" json:"section"`
}

// DefaultRules is the section rule set used when none is configured.
var DefaultRules = []Rule{
	{Match: "git", Section: "GitHub"},
	{Match: "stackoverflow", Section: "StackOverflow"},
	{Match: "java", Section: "Java"},
	{Match: "python", Section: "Python"},
	{Match: "interview", Section: "Interview"},
}

// Classifier assigns a link URL to exactly one section. Rules are evaluated
// top to bottom and the first match wins; no match yields MiscSection.
type Classifier struct {
	rules    []Rule
	sections []string
}

// NewClassifier builds a classifier over rules. Rules with an empty matcher
// would swallow every URL and are treated as the fallback instead.
func NewClassifier(rules []Rule) *Classifier {
	c := &Classifier{}
	seen := make(map[string]bool)
	for _, r := range rules {
		if r.Section == "" {
			continue
		}
		if r.Match != "" {
			c.rules = append(c.rules, Rule{Match: strings.ToLower(r.Match), Section: r.Section})
		}
		if !seen[r.Section] && r.Section != MiscSection {
			seen[r.Section] = true
			c.sections = append(c.sections, r.Section)
		}
	}
	c.sections = append(c.sections, MiscSection)
	return c
}

// Classify returns the section for url.
func (c *Classifier) Classify(url string) string {
	lower := strings.ToLower(url)
	for _, r := range c.rules {
		if strings.Contains(lower, r.Match) {
			return r.Section
		}
	}
	return MiscSection
}

// Sections returns every section name in rule order, MiscSection last.
func (c *Classifier) Sections() []string {
	out := make([]string, len(c.sections))
	copy(out, c.sections)
	return out
}
