// Package ingest orchestrates feed-to-store batches: adapter fetch, novelty
// scoring against a rolling window, and create/update/skip persistence.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/classifier"
	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/feeds"
	"horse.fit/bubble/internal/novelty"
	"horse.fit/bubble/internal/urlutil"
)

// Adapter fetches and normalizes one source's feed.
type Adapter interface {
	Fetch(ctx context.Context, source feeds.Source) ([]feeds.NormalizedItem, error)
}

// Result aggregates one source's batch outcome. ItemIDs holds created and
// updated items only; skipped items need no downstream processing.
type Result struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	ItemIDs []string `json:"itemIds"`
}

// SourceConfig is one entry of the INGEST_SOURCES_JSON registry.
type SourceConfig struct {
	URL             string `json:"url"`
	Type            string `json:"type"`
	Title           string `json:"title"`
	CountryCode     string `json:"countryCode,omitempty"`
	PrimaryLanguage string `json:"primaryLanguage,omitempty"`
}

// Service runs ingestion batches over a persistence store.
type Service struct {
	store        db.Store
	adapters     map[string]Adapter
	classifier   *classifier.Classifier
	noveltyLimit int
	logger       zerolog.Logger
}

func NewService(store db.Store, adapters map[string]Adapter, clf *classifier.Classifier, noveltyLimit int, logger zerolog.Logger) *Service {
	if noveltyLimit <= 0 {
		noveltyLimit = novelty.DefaultWindowLimit
	}
	normalized := make(map[string]Adapter, len(adapters))
	for key, adapter := range adapters {
		normalized[strings.ToLower(key)] = adapter
	}
	return &Service{
		store:        store,
		adapters:     normalized,
		classifier:   clf,
		noveltyLimit: noveltyLimit,
		logger:       logger,
	}
}

// IngestSource runs one batch for a registered source. The novelty window is
// built once per batch; each created or updated item folds its keywords into
// it, skipped items never do.
func (s *Service) IngestSource(ctx context.Context, sourceID string) (*Result, error) {
	source, err := s.store.FindSourceByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	adapter, ok := s.adapters[strings.ToLower(source.Type)]
	if !ok {
		return nil, fmt.Errorf("no ingestion adapter for source type %q", source.Type)
	}

	feedSource := feeds.Source{
		ID:              source.ID,
		Type:            source.Type,
		URL:             source.URL,
		Title:           deref(source.Title),
		PrimaryLanguage: deref(source.PrimaryLanguage),
	}
	normalized, err := adapter.Fetch(ctx, feedSource)
	if err != nil {
		return nil, fmt.Errorf("fetch source %s: %w", source.URL, err)
	}

	window, err := novelty.BuildContext(ctx, s.store, s.noveltyLimit)
	if err != nil {
		return nil, fmt.Errorf("build novelty window: %w", err)
	}

	result := &Result{ItemIDs: []string{}}
	for _, item := range normalized {
		canonicalURL, err := urlutil.Canonicalize(item.URL)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", item.URL).Msg("unparseable item url")
			continue
		}
		hash := urlutil.HashText(item.Text)
		scored := novelty.Score(item.Text, window, item.Keywords)

		existing, err := s.store.FindItemByURLOrHash(ctx, canonicalURL, hash)
		if err != nil {
			return nil, fmt.Errorf("look up item %s: %w", canonicalURL, err)
		}

		if existing == nil {
			record := buildItemRecord(&item, source.ID, canonicalURL, hash, scored)
			if err := s.store.CreateItem(ctx, record); err != nil {
				return nil, fmt.Errorf("create item %s: %w", canonicalURL, err)
			}
			novelty.Update(window, scored.Keywords)
			result.Created++
			result.ItemIDs = append(result.ItemIDs, record.ID)
			continue
		}

		changed := existing.Hash != hash || existing.Text != item.Text ||
			(existing.NoveltyScore == 0 && len(existing.NoveltyAngles) == 0)
		if !changed {
			result.Skipped++
			continue
		}

		applyItemUpdate(existing, &item, hash, scored)
		if err := s.store.UpdateItem(ctx, existing); err != nil {
			return nil, fmt.Errorf("update item %s: %w", canonicalURL, err)
		}
		novelty.Update(window, scored.Keywords)
		result.Updated++
		result.ItemIDs = append(result.ItemIDs, existing.ID)
	}

	s.logger.Info().
		Str("source", source.URL).
		Str("type", source.Type).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Msg("ingest complete")
	return result, nil
}

// RunBatch ensures every configured source exists, ingests it, then scores
// quality for the new and updated items.
func (s *Service) RunBatch(ctx context.Context, configs []SourceConfig) error {
	for _, cfg := range configs {
		source, err := s.store.EnsureSource(ctx, cfg.URL, cfg.Type, cfg.Title, cfg.CountryCode, cfg.PrimaryLanguage)
		if err != nil {
			return fmt.Errorf("ensure source %s: %w", cfg.URL, err)
		}

		result, err := s.IngestSource(ctx, source.ID)
		if err != nil {
			return err
		}

		if err := s.ClassifyItems(ctx, result.ItemIDs); err != nil {
			return err
		}
	}
	return nil
}

// ClassifyItems scores and stores quality for the given items. A nil
// classifier makes this a no-op.
func (s *Service) ClassifyItems(ctx context.Context, itemIDs []string) error {
	if s.classifier == nil {
		return nil
	}
	for _, itemID := range itemIDs {
		item, err := s.store.FindItemByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("load item %s: %w", itemID, err)
		}

		score, fromModel := s.classifier.Score(ctx, classifier.Input{
			Title:    item.Title,
			Summary:  deref(item.ContextSummary),
			Text:     item.Text,
			Tags:     item.Tags,
			Language: deref(item.Lang),
		})

		item.QualityScore = &score.Score
		item.QualityVerdict = &score.Verdict
		item.QualityReasons = score.Reasons
		if err := s.store.UpdateItem(ctx, item); err != nil {
			return fmt.Errorf("store quality for %s: %w", itemID, err)
		}

		s.logger.Info().
			Str("item", itemID).
			Float64("score", score.Score).
			Str("verdict", score.Verdict).
			Bool("model", fromModel).
			Msg("classified article")
	}
	return nil
}

// ParseSourcesFromEnv decodes INGEST_SOURCES_JSON, falling back to the
// built-in defaults on empty or malformed input.
func ParseSourcesFromEnv(raw string, logger zerolog.Logger) []SourceConfig {
	if strings.TrimSpace(raw) != "" {
		var parsed []SourceConfig
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			logger.Warn().Err(err).Msg("failed to parse INGEST_SOURCES_JSON, using defaults")
		} else {
			valid := parsed[:0]
			for _, entry := range parsed {
				if entry.URL != "" && entry.Type != "" && entry.Title != "" {
					valid = append(valid, entry)
				}
			}
			if len(valid) > 0 {
				return valid
			}
		}
	}

	return []SourceConfig{
		{
			URL:             "https://feeds.npr.org/1001/rss.xml",
			Type:            "rss",
			Title:           "NPR News",
			CountryCode:     "US",
			PrimaryLanguage: "en",
		},
		{
			URL:             "https://www.tagesschau.de/xml/rss2/",
			Type:            "rss",
			Title:           "Tagesschau Politik",
			CountryCode:     "DE",
			PrimaryLanguage: "de",
		},
	}
}

func buildItemRecord(item *feeds.NormalizedItem, sourceID, url, hash string, scored novelty.Result) *db.Item {
	record := &db.Item{
		SourceID:            sourceID,
		URL:                 url,
		Hash:                hash,
		Title:               item.Title,
		Author:              optional(item.Author),
		PublishedAt:         item.PublishedAt,
		Lang:                optional(item.Language),
		Tags:                db.StringList(item.Tags),
		Text:                item.Text,
		OriginalText:        optional(item.OriginalText),
		TranslationProvider: optional(item.TranslationProvider),
		NoveltyScore:        scored.Score,
		NoveltyAngles:       db.StringList(scored.Angles),
		Tier:                item.Tier,
		Status:              db.StatusDeveloping,
		Provenance:          db.JSONMap(item.Provenance),
		ContextSummary:      optional(item.ContextSummary),
		ContextBullets:      db.StringList(item.ContextBullets),
		StudyPrompts:        db.StringList(item.StudyPrompts),
		Channels:            db.StringList(item.Channels),
		Excerpt:             optional(item.Excerpt),
		ContextMetadata:     db.JSONMap(item.ContextMetadata),
		ReadingTimeMinutes:  urlutil.ReadingTimeMinutes(item.Text),
	}
	return record
}

func applyItemUpdate(existing *db.Item, item *feeds.NormalizedItem, hash string, scored novelty.Result) {
	existing.Title = item.Title
	existing.Author = optional(item.Author)
	existing.PublishedAt = item.PublishedAt
	existing.Lang = optional(item.Language)
	existing.Tags = db.StringList(item.Tags)
	existing.Text = item.Text
	existing.Hash = hash
	existing.NoveltyScore = scored.Score
	existing.NoveltyAngles = db.StringList(scored.Angles)
	existing.Tier = item.Tier
	existing.Provenance = db.JSONMap(item.Provenance)
	existing.ReadingTimeMinutes = urlutil.ReadingTimeMinutes(item.Text)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
