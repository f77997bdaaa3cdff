package keywords

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultLimit matches the ranked-term budget used by callers that do not
// care about a specific cap.
const DefaultLimit = 20

const minTokenLength = 4

var stopWords = map[string]struct{}{}

func init() {
	for _, word := range []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "could", "did", "do",
		"does", "doing", "down", "during", "each", "few", "for", "from",
		"further", "had", "has", "have", "having", "he", "her", "here", "hers",
		"herself", "him", "himself", "his", "how", "i", "if", "in", "into",
		"is", "it", "its", "itself", "just", "more", "most", "my", "myself",
		"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or",
		"other", "our", "ours", "ourselves", "out", "over", "own", "same",
		"she", "should", "so", "some", "such", "than", "that", "the", "their",
		"theirs", "them", "themselves", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up",
		"very", "was", "we", "were", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "you", "your", "yours",
		"yourself", "yourselves",
	} {
		stopWords[word] = struct{}{}
	}
}

// Extract returns up to limit tokens ranked by frequency. Tokens are
// lowercased, stripped of everything but letters, digits and hyphens, and
// filtered against a fixed English stopword list and a minimum length of
// four runes. Ties keep first-encountered order, so the output is
// deterministic for identical input.
func Extract(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultLimit
	}

	counts := make(map[string]int)
	order := make([]string, 0, 64)

	for _, token := range tokenize(text) {
		if len([]rune(token)) < minTokenLength {
			continue
		}
		if _, stopped := stopWords[token]; stopped {
			continue
		}
		if _, seen := counts[token]; !seen {
			order = append(order, token)
		}
		counts[token]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

func tokenize(text string) []string {
	var builder strings.Builder
	builder.Grow(len(text))

	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			builder.WriteRune(r)
		default:
			builder.WriteRune(' ')
		}
	}

	return strings.Fields(builder.String())
}
