package insights

import (
	"regexp"
	"sort"
	"strings"
)

// TitleSampleSize is how many top-ranked titles feed the word frequencies
const TitleSampleSize = 30

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "for": true, "from": true, "how": true, "i": true, "in": true, "is": true, "it": true,
	"my": true, "of": true, "on": true, "or": true, "the": true, "this": true, "to": true, "with": true,
	"you": true, "your": true, "we": true, "what": true, "s": true,
	"dan": true, "di": true, "ke": true, "dari": true, "yang": true, "ini": true, "itu": true,
	"untuk": true, "dengan": true, "ada": true, "aku": true, "kita": true, "juga": true, "jadi": true,
}

// Term is a word and how often it appears
type Term struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequencies counts alphanumeric tokens across titles, lowercased and
// without common stopwords. Results are ordered by count then word; limit <= 0
// returns every term.
func WordFrequencies(titles []string, limit int) []Term {
	counts := make(map[string]int)
	for _, title := range titles {
		for _, tok := range tokenPattern.FindAllString(title, -1) {
			w := strings.ToLower(tok)
			if stopwords[w] {
				continue
			}
			counts[w]++
		}
	}

	terms := make([]Term, 0, len(counts))
	for w, n := range counts {
		terms = append(terms, Term{Word: w, Count: n})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Count != terms[j].Count {
			return terms[i].Count > terms[j].Count
		}
		return terms[i].Word < terms[j].Word
	})

	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
