package feeds

import (
	"time"

	"horse.fit/bubble/internal/db"
)

// Offline samples returned when a feed cannot be fetched. They keep the
// downstream pipeline exercisable in airgapped environments.

func SampleArxivItem(source Source) NormalizedItem {
	published := time.Date(2024, time.April, 22, 0, 0, 0, 0, time.UTC)
	return NormalizedItem{
		Source:      source,
		URL:         "https://arxiv.org/abs/2404.12345",
		Title:       "Adaptive Alignment Strategies for Contextual Bandits",
		Author:      "Ada Nguyen",
		PublishedAt: &published,
		Language:    "en",
		Tags:        []string{"contextual bandits", "reinforcement learning"},
		Text: "We introduce an adaptive alignment strategy for contextual bandit agents balancing exploration, personalization, and verification. " +
			"Our method calibrates uncertainty estimates with external factuality scores and yields 18% uplift in serendipitous discoveries across offline policy evaluation benchmarks.",
		Tier: db.TierT1b,
		Provenance: map[string]any{
			"tier":     db.TierT1b,
			"provider": "arXiv",
			"note":     "Offline sample (network fallback)",
		},
	}
}

func SampleRSSItem(source Source) NormalizedItem {
	published := time.Date(2024, time.April, 18, 12, 0, 0, 0, time.UTC)
	return NormalizedItem{
		Source:      source,
		URL:         "https://newsroom.example.com/articles/verified-ai-disclosure",
		Title:       "EU regulator pilots verified disclosures for AI systems",
		Author:      "Jordan Ellis",
		PublishedAt: &published,
		Language:    "en",
		Tags:        []string{"policy", "ai", "disclosure"},
		Text: "The European Digital Oversight Board launched a pilot requiring large AI providers to attach provenance disclosures and verification badges to high-impact updates. " +
			"Early participants report faster cross-team audits and clearer public communication.",
		Tier: db.TierT2,
		Provenance: map[string]any{
			"tier":     db.TierT2,
			"provider": "sample newsroom",
			"note":     "Offline sample (network fallback)",
		},
	}
}
