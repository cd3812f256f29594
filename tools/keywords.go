package tools

import (
	"sort"
	"strings"
)

// keywordStoplist holds tokens that are URL noise rather than keywords.
var keywordStoplist = map[string]struct{}{
	"https": {},
	"www":   {},
	"com":   {},
}

// minKeywordLen is the exclusive lower bound on token length.
const minKeywordLen = 3

// ExtractKeywords lower-cases the title and snippet of every result, splits
// on non-word characters and keeps the unique tokens longer than three
// characters that are not in the stoplist. The returned slice is sorted so
// equal sets compare equal; callers should treat it as a set.
func ExtractKeywords(results []OrganicResult) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		text := strings.ToLower(r.Title + " " + r.Snippet)
		for _, word := range strings.FieldsFunc(text, isNonWord) {
			if len(word) <= minKeywordLen {
				continue
			}
			if _, stop := keywordStoplist[word]; stop {
				continue
			}
			seen[word] = struct{}{}
		}
	}

	keywords := make([]string, 0, len(seen))
	for word := range seen {
		keywords = append(keywords, word)
	}
	sort.Strings(keywords)
	return keywords
}

// isNonWord matches the complement of [A-Za-z0-9_].
func isNonWord(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return false
	default:
		return true
	}
}
