// Package classify labels channels by niche and by subscriber tier. The
// heuristics sit behind small interfaces so the scoring core never depends
// on them.
package classify

import (
	"strings"
)

// DefaultNiche is returned when nothing matches
const DefaultNiche = "Umum"

// Classifier maps free text to a label
type Classifier interface {
	Classify(text string) string
}

// ClassifierFunc adapts a plain function to Classifier
type ClassifierFunc func(text string) string

// Classify implements Classifier
func (f ClassifierFunc) Classify(text string) string { return f(text) }

// Rule assigns Label when any of Keywords is a substring of the input
type Rule struct {
	Label    string
	Keywords []string
}

func (r Rule) matches(text string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// NicheClassifier detects a channel niche from YouTube topic categories,
// falling back to keywords, and appends a geography tag when one matches.
// Rules are evaluated in order and the first match wins.
type NicheClassifier struct {
	Topics   []Rule
	Keywords []Rule
	Geo      []Rule
	Fallback string
}

// NewNicheClassifier returns the classifier with the built-in rule set
func NewNicheClassifier() *NicheClassifier {
	return &NicheClassifier{
		Topics: []Rule{
			{Label: "Teknologi", Keywords: []string{"Technology"}},
			{Label: "Gaming", Keywords: []string{"Gaming"}},
			{Label: "Vlog & Lifestyle", Keywords: []string{"Lifestyle"}},
			{Label: "Hiburan", Keywords: []string{"Entertainment"}},
			{Label: "Musik", Keywords: []string{"Music"}},
			{Label: "Olahraga", Keywords: []string{"Sport"}},
			{Label: "Kuliner", Keywords: []string{"Food"}},
		},
		Keywords: []Rule{
			{Label: "Gaming", Keywords: []string{"game", "play", "esport"}},
			{Label: "Teknologi", Keywords: []string{"gadget", "review", "tech"}},
			{Label: "Musik", Keywords: []string{"song", "music", "cover"}},
			{Label: "Vlog & Lifestyle", Keywords: []string{"vlog", "daily", "travel"}},
			{Label: "Kuliner", Keywords: []string{"resep", "masak", "kuliner", "food"}},
		},
		Geo: []Rule{
			{Label: "(Jepang)", Keywords: []string{"j-pop", "jpop", "japanese", "japan", "anime"}},
			{Label: "(Korea)", Keywords: []string{"k-pop", "kpop", "korea", "drakor"}},
			{Label: "(Indonesia)", Keywords: []string{"indonesia", "indo", "jakarta"}},
		},
		Fallback: DefaultNiche,
	}
}

// Classify labels free text using keywords and geography only
func (c *NicheClassifier) Classify(text string) string {
	return c.ClassifyChannel(text, "", nil)
}

// ClassifyChannel labels a channel from its title, description and the
// topicCategories URLs returned by the Data API.
func (c *NicheClassifier) ClassifyChannel(title, description string, topicURLs []string) string {
	text := strings.ToLower(title + " " + description)

	base := c.topicNiche(topicURLs)
	if base == "" {
		base = firstMatch(c.Keywords, text)
	}
	if base == "" {
		base = c.Fallback
	}

	geo := firstMatch(c.Geo, text)
	return strings.TrimSpace(base + " " + geo)
}

func (c *NicheClassifier) topicNiche(urls []string) string {
	for _, url := range urls {
		for _, rule := range c.Topics {
			if rule.matches(url) {
				return rule.Label
			}
		}
	}
	return ""
}

func firstMatch(rules []Rule, text string) string {
	for _, rule := range rules {
		if rule.matches(text) {
			return rule.Label
		}
	}
	return ""
}

// SearchQuery turns a niche label into a search query, e.g.
// "Gaming (Indonesia)" becomes "Gaming Indonesia".
func SearchQuery(niche string) string {
	q := strings.NewReplacer("(", "", ")", "").Replace(niche)
	return strings.Join(strings.Fields(q), " ")
}
