// Package novelty maintains a bounded rolling window of document keyword
// fingerprints and scores incoming documents against it. The score is the
// complement of the best (maximum) Jaccard similarity over the window: one
// close prior match is enough to mark a document as already covered.
package novelty

import (
	"context"
	"fmt"
	"math"

	"horse.fit/bubble/internal/keywords"
)

const (
	// DefaultWindowLimit bounds the rolling fingerprint window.
	DefaultWindowLimit = 200
	// FingerprintKeywordLimit is the ranked-term budget per document.
	FingerprintKeywordLimit = 25
	// MaxAngles caps the distinctive keywords surfaced per document.
	MaxAngles = 5
)

// RecentTextStore supplies the most recently created document texts, newest first.
type RecentTextStore interface {
	FindRecentTexts(ctx context.Context, limit int) ([]string, error)
}

// Fingerprint is the keyword-set summary of one document.
type Fingerprint struct {
	Keywords   []string
	KeywordSet map[string]struct{}
}

// Context is the rolling comparison window for one ingestion batch.
// Fingerprints are ordered newest first. KeywordCounts[k] always equals the
// number of fingerprints whose set contains k.
type Context struct {
	Fingerprints  []Fingerprint
	KeywordCounts map[string]int
	Limit         int
}

// Result is the outcome of scoring one document.
type Result struct {
	Score    float64
	Angles   []string
	Keywords []string
}

// NewContext returns an empty window with the given limit.
func NewContext(limit int) *Context {
	if limit <= 0 {
		limit = DefaultWindowLimit
	}
	return &Context{
		Fingerprints:  make([]Fingerprint, 0, limit),
		KeywordCounts: make(map[string]int),
		Limit:         limit,
	}
}

// BuildContext loads up to limit recent document texts and folds each into a
// fresh window. The window lives for one ingestion batch only.
func BuildContext(ctx context.Context, store RecentTextStore, limit int) (*Context, error) {
	window := NewContext(limit)
	if store == nil {
		return nil, fmt.Errorf("recent text store is required")
	}

	texts, err := store.FindRecentTexts(ctx, window.Limit)
	if err != nil {
		return nil, fmt.Errorf("load recent texts: %w", err)
	}

	for _, text := range texts {
		if text == "" {
			continue
		}
		extracted := keywords.Extract(text, FingerprintKeywordLimit)
		if len(extracted) == 0 {
			continue
		}
		fingerprint := newFingerprint(extracted)
		window.Fingerprints = append(window.Fingerprints, fingerprint)
		for keyword := range fingerprint.KeywordSet {
			window.KeywordCounts[keyword]++
		}
	}

	return window, nil
}

// Score rates text against the window. Precomputed keywords are used when
// provided, sparing a second extraction pass. An empty keyword set scores 0;
// an empty window scores exactly 1 (nothing to compare against is maximally
// novel).
func Score(text string, window *Context, precomputed []string) Result {
	terms := precomputed
	if len(terms) == 0 {
		terms = keywords.Extract(text, FingerprintKeywordLimit)
	}
	if len(terms) == 0 {
		return Result{Score: 0, Angles: []string{}, Keywords: []string{}}
	}

	termSet := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		termSet[term] = struct{}{}
	}

	maxJaccard := 0.0
	for _, fingerprint := range window.Fingerprints {
		intersection := 0
		for keyword := range fingerprint.KeywordSet {
			if _, ok := termSet[keyword]; ok {
				intersection++
			}
		}
		// Zero-intersection fingerprints contribute similarity 0 regardless.
		if intersection == 0 {
			continue
		}
		union := len(fingerprint.KeywordSet) + len(termSet) - intersection
		if union == 0 {
			continue
		}
		jaccard := float64(intersection) / float64(union)
		if jaccard > maxJaccard {
			maxJaccard = jaccard
		}
	}

	distinctive := make([]string, 0, MaxAngles)
	for _, term := range terms {
		if window.KeywordCounts[term] <= 1 {
			distinctive = append(distinctive, term)
			if len(distinctive) == MaxAngles {
				break
			}
		}
	}
	angles := distinctive
	if len(angles) == 0 {
		angles = terms
		if len(angles) > MaxAngles {
			angles = angles[:MaxAngles]
		}
	}

	return Result{
		Score:    math.Round((1-maxJaccard)*1000) / 1000,
		Angles:   angles,
		Keywords: terms,
	}
}

// Update folds a freshly scored document into the window, evicting the oldest
// fingerprint once the limit is exceeded and keeping keyword counts exact.
func Update(window *Context, terms []string) {
	if window == nil || len(terms) == 0 {
		return
	}

	fingerprint := newFingerprint(terms)
	window.Fingerprints = append([]Fingerprint{fingerprint}, window.Fingerprints...)
	for keyword := range fingerprint.KeywordSet {
		window.KeywordCounts[keyword]++
	}

	if len(window.Fingerprints) <= window.Limit {
		return
	}

	evicted := window.Fingerprints[len(window.Fingerprints)-1]
	window.Fingerprints = window.Fingerprints[:len(window.Fingerprints)-1]
	for keyword := range evicted.KeywordSet {
		next := window.KeywordCounts[keyword] - 1
		if next <= 0 {
			delete(window.KeywordCounts, keyword)
		} else {
			window.KeywordCounts[keyword] = next
		}
	}
}

func newFingerprint(terms []string) Fingerprint {
	set := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		set[term] = struct{}{}
	}
	return Fingerprint{Keywords: terms, KeywordSet: set}
}
