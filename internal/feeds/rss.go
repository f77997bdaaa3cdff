package feeds

import (
	"context"
	"net/http"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/scrape"
)

// ArticleScraper is the subset of the scraper the feed adapters use.
type ArticleScraper interface {
	ScrapeArticle(ctx context.Context, url string, opts scrape.Options) (*scrape.Result, error)
}

// RSSAdapter turns an RSS or Atom feed into normalized items by scraping each
// linked article. Feed fetch failures fall back to an offline sample so the
// rest of the pipeline stays exercisable without network access.
type RSSAdapter struct {
	parser  *gofeed.Parser
	scraper ArticleScraper
	logger  zerolog.Logger
}

func NewRSSAdapter(client *http.Client, userAgent string, scraper ArticleScraper, logger zerolog.Logger) *RSSAdapter {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if client != nil {
		parser.Client = client
	}
	return &RSSAdapter{parser: parser, scraper: scraper, logger: logger}
}

func (a *RSSAdapter) Fetch(ctx context.Context, source Source) ([]NormalizedItem, error) {
	feed, err := a.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", source.URL).Msg("rss fetch failed, using offline sample")
		return []NormalizedItem{SampleRSSItem(source)}, nil
	}

	hint := firstNonEmpty(feed.Language, source.PrimaryLanguage, source.Title)

	var items []NormalizedItem
	for _, entry := range feed.Items {
		entryURL := entry.Link
		if entryURL == "" {
			entryURL = entry.GUID
		}
		if entryURL == "" {
			continue
		}

		result, err := a.scraper.ScrapeArticle(ctx, entryURL, scrape.Options{
			LanguageHint: hint,
			Via:          scrape.ChannelRSS,
		})
		if err != nil {
			a.logger.Debug().Err(err).Str("url", entryURL).Msg("entry scrape failed")
			continue
		}
		if result == nil {
			continue
		}

		item := normalizeScraped(result, source)
		item.Author = entryAuthor(entry)
		item.PublishedAt = entry.PublishedParsed

		tags := newTagSet(item.Tags)
		for _, category := range entry.Categories {
			tags.add(category)
		}
		item.Tags = tags.list()

		items = append(items, item)
	}
	return items, nil
}

func entryAuthor(entry *gofeed.Item) string {
	for _, person := range entry.Authors {
		if person != nil && person.Name != "" {
			return person.Name
		}
	}
	if entry.Author != nil {
		return entry.Author.Name
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
