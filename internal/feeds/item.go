package feeds

import (
	"time"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/scrape"
	"horse.fit/bubble/internal/urlutil"
)

// Source identifies the feed a batch of items came from.
type Source struct {
	ID              string
	Type            string
	URL             string
	Title           string
	PrimaryLanguage string
}

// NormalizedItem is the adapter output handed to ingestion, shaped for
// persistence but not yet deduplicated or scored.
type NormalizedItem struct {
	Source              Source
	URL                 string
	Title               string
	Author              string
	PublishedAt         *time.Time
	Language            string
	Tags                []string
	Text                string
	OriginalText        string
	TranslationProvider string
	Keywords            []string
	Tier                string
	Provenance          map[string]any
	ContextSummary      string
	ContextBullets      []string
	StudyPrompts        []string
	Channels            []string
	Excerpt             string
	ContextMetadata     map[string]any
}

// normalizeScraped folds a scrape result into a normalized item, adding the
// region, language and translation marker tags.
func normalizeScraped(result *scrape.Result, source Source) NormalizedItem {
	tags := newTagSet(result.Tags)
	if region := urlutil.InferRegionTag(result.URL); region != "" {
		tags.add(region)
	}
	if result.Language != "" {
		tags.add("lang:" + result.Language)
	}
	if result.TranslationProvider != "" {
		tags.add("translated:en")
	}

	contextMetadata := map[string]any{
		"structured": result.Metadata,
		"keywords":   result.Keywords,
	}
	if result.Metadata.OEmbed != nil {
		contextMetadata["oEmbed"] = result.Metadata.OEmbed
	}
	if len(result.Metadata.AlternateFeeds) > 0 {
		contextMetadata["alternateFeeds"] = result.Metadata.AlternateFeeds
	}

	return NormalizedItem{
		Source:              source,
		URL:                 result.URL,
		Title:               result.Title,
		Language:            result.Language,
		Tags:                tags.list(),
		Text:                result.Text,
		OriginalText:        result.OriginalText,
		TranslationProvider: result.TranslationProvider,
		Keywords:            result.Keywords,
		Tier:                db.TierT2,
		Provenance: map[string]any{
			"tier":               db.TierT2,
			"provider":           source.URL,
			"channels":           result.Channels,
			"structuredMetadata": result.Metadata,
		},
		ContextSummary:  result.ContextSummary,
		ContextBullets:  result.ContextBullets,
		StudyPrompts:    result.StudyPrompts,
		Channels:        result.Channels,
		Excerpt:         result.Excerpt,
		ContextMetadata: contextMetadata,
	}
}

type tagSet struct {
	order []string
	seen  map[string]struct{}
}

func newTagSet(initial []string) *tagSet {
	set := &tagSet{seen: make(map[string]struct{})}
	for _, tag := range initial {
		set.add(tag)
	}
	return set
}

func (s *tagSet) add(tag string) {
	if tag == "" {
		return
	}
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.order = append(s.order, tag)
}

func (s *tagSet) list() []string {
	return append([]string(nil), s.order...)
}
