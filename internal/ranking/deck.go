package ranking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/urlutil"
)

const (
	DefaultDeckLimit = 12
	MaxPerTopic      = 3
	DeckLookback     = 24 * time.Hour

	candidatePoolFactor = 4
)

// Card is one deck entry handed to the reader surface.
type Card struct {
	ItemID        string     `json:"itemId"`
	Headline      string     `json:"headline"`
	Summary       string     `json:"summary"`
	Bullets       []string   `json:"bullets"`
	Reason        string     `json:"reason"`
	Tier          string     `json:"tier"`
	Score         float64    `json:"score"`
	RegionTag     string     `json:"regionTag,omitempty"`
	Excerpt       string     `json:"excerpt,omitempty"`
	StudyPrompts  []string   `json:"studyPrompts,omitempty"`
	Channels      []string   `json:"channels,omitempty"`
	Language      string     `json:"language,omitempty"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	NoveltyScore  float64    `json:"noveltyScore"`
	NoveltyAngles []string   `json:"noveltyAngles,omitempty"`
}

// DeckBuilder assembles the reader deck from the slate plan, applying the
// per-topic cap and the recently-shown exclusion on top of the scores.
type DeckBuilder struct {
	store  db.Store
	logger zerolog.Logger
}

func NewDeckBuilder(store db.Store, logger zerolog.Logger) *DeckBuilder {
	return &DeckBuilder{store: store, logger: logger}
}

// Build plans a slate over the rankable items and lays out up to limit cards.
// Items the user saw within the lookback window never reappear; no topic
// fills more than MaxPerTopic slots until the capped pass runs dry.
func (b *DeckBuilder) Build(ctx context.Context, userID string, prefs Preferences, limit int) ([]Card, error) {
	if limit <= 0 {
		limit = DefaultDeckLimit
	}

	recent := map[string]struct{}{}
	if userID != "" {
		var err error
		recent, err = b.store.ListRecentlySeenItemIDs(ctx, userID, time.Now().Add(-DeckLookback))
		if err != nil {
			return nil, fmt.Errorf("load recent items: %w", err)
		}
	}

	items, err := b.store.ListRankableItems(ctx, limit*candidatePoolFactor)
	if err != nil {
		return nil, fmt.Errorf("list rankable items: %w", err)
	}

	byID := make(map[string]*db.Item, len(items))
	rankable := make([]RankableItem, 0, len(items))
	for i := range items {
		item := &items[i]
		byID[item.ID] = item
		rankable = append(rankable, RankableItem{ID: item.ID, Tags: item.Tags, Status: item.Status})
	}

	plan := PlanSlate(rankable, prefs)

	cards := make([]Card, 0, limit)
	topicCounts := make(map[string]int)
	chosen := make(map[string]struct{})

	for _, candidate := range plan.Candidates {
		if len(cards) == limit {
			break
		}
		if _, seen := recent[candidate.ID]; seen {
			continue
		}
		topicKey := deckTopicKey(candidate.Tags)
		if topicCounts[topicKey] >= MaxPerTopic {
			continue
		}
		cards = append(cards, b.toCard(byID[candidate.ID], candidate, "High-signal pick"))
		chosen[candidate.ID] = struct{}{}
		topicCounts[topicKey]++
	}

	// Fill pass: top the deck up with the freshest unchosen items. The
	// per-topic cap still holds here; fill cards carry no rank score.
	if len(cards) < limit {
		fallback, err := b.store.ListRankableItems(ctx, limit*candidatePoolFactor*2)
		if err != nil {
			return nil, fmt.Errorf("list fallback items: %w", err)
		}
		for i := range fallback {
			if len(cards) == limit {
				break
			}
			item := &fallback[i]
			if _, ok := chosen[item.ID]; ok {
				continue
			}
			if _, seen := recent[item.ID]; seen {
				continue
			}
			topicKey := deckTopicKey(item.Tags)
			if topicCounts[topicKey] >= MaxPerTopic {
				continue
			}
			cards = append(cards, b.toCard(item, Candidate{ID: item.ID}, "Fresh intelligence"))
			chosen[item.ID] = struct{}{}
			topicCounts[topicKey]++
		}
	}

	if userID != "" {
		for _, card := range cards {
			if err := b.store.RecordSeen(ctx, userID, card.ItemID, "deck.view"); err != nil {
				b.logger.Warn().Err(err).Str("item", card.ItemID).Msg("failed to record deck view")
			}
		}
	}

	return cards, nil
}

func (b *DeckBuilder) toCard(item *db.Item, candidate Candidate, reason string) Card {
	if item == nil {
		return Card{ItemID: candidate.ID, Reason: reason, Score: candidate.Score}
	}

	bullets := []string(item.ContextBullets)
	if len(bullets) > 4 {
		bullets = bullets[:4]
	}
	prompts := []string(item.StudyPrompts)
	if len(prompts) > 5 {
		prompts = prompts[:5]
	}

	summary := deref(item.ContextSummary)
	if summary == "" && len(bullets) > 0 {
		summary = bullets[0]
	}
	if summary == "" {
		summary = item.Title
	}

	return Card{
		ItemID:        item.ID,
		Headline:      item.Title,
		Summary:       summary,
		Bullets:       bullets,
		Reason:        reason,
		Tier:          item.Tier,
		Score:         candidate.Score,
		RegionTag:     regionTag(item.Tags),
		Excerpt:       deref(item.Excerpt),
		StudyPrompts:  prompts,
		Channels:      item.Channels,
		Language:      deref(item.Lang),
		PublishedAt:   item.PublishedAt,
		NoveltyScore:  item.NoveltyScore,
		NoveltyAngles: item.NoveltyAngles,
	}
}

// deckTopicKey buckets a card by its first topical tag.
func deckTopicKey(tags []string) string {
	for _, tag := range tags {
		if !strings.HasPrefix(tag, urlutil.RegionTagPrefix) {
			return normalizeTopic(tag)
		}
	}
	return "_none"
}

func regionTag(tags []string) string {
	for _, tag := range tags {
		if strings.HasPrefix(tag, urlutil.RegionTagPrefix) {
			return tag
		}
	}
	return ""
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
