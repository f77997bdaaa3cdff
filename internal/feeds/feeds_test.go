package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/scrape"
)

type stubScraper struct {
	results  map[string]*scrape.Result
	lastOpts scrape.Options
}

func (s *stubScraper) ScrapeArticle(_ context.Context, url string, opts scrape.Options) (*scrape.Result, error) {
	s.lastOpts = opts
	return s.results[url], nil
}

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel>
  <title>Example Wire</title>
  <language>fr</language>
  <item>
    <title>Budget vote</title>
    <link>https://example.org/one</link>
    <category>politics</category>
    <dc:creator>A. Writer</dc:creator>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Paywalled piece</title>
    <link>https://example.org/two</link>
  </item>
</channel>
</rss>`

func TestRSSAdapterScrapesEntriesAndMergesCategories(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssFixture)
	}))
	defer server.Close()

	scraper := &stubScraper{results: map[string]*scrape.Result{
		"https://example.org/one": {
			URL:      "https://example.org/one",
			Title:    "Budget vote",
			Text:     "The assembly passed the budget after a long night of amendments.",
			Language: "fr",
			Keywords: []string{"budget", "assembly"},
			Channels: []string{scrape.ChannelRSS, scrape.ChannelReadability},
		},
	}}

	adapter := NewRSSAdapter(nil, "test-agent/0.1", scraper, zerolog.Nop())
	items, err := adapter.Fetch(context.Background(), Source{ID: "src-1", Type: "RSS", URL: server.URL + "/feed"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (unscrapable entry skipped)", len(items))
	}

	item := items[0]
	if item.Author != "A. Writer" {
		t.Fatalf("author = %q", item.Author)
	}
	if item.PublishedAt == nil {
		t.Fatal("expected a published time")
	}
	if item.Tier != db.TierT2 {
		t.Fatalf("tier = %q", item.Tier)
	}
	if !containsTag(item.Tags, "politics") {
		t.Fatalf("tags = %v, want feed category merged in", item.Tags)
	}
	if !containsTag(item.Tags, "lang:fr") {
		t.Fatalf("tags = %v, want language tag", item.Tags)
	}

	if scraper.lastOpts.Via != scrape.ChannelRSS {
		t.Fatalf("via = %q", scraper.lastOpts.Via)
	}
	if scraper.lastOpts.LanguageHint != "fr" {
		t.Fatalf("language hint = %q, want the feed language", scraper.lastOpts.LanguageHint)
	}
}

func TestRSSAdapterFallsBackToSampleOnFetchFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewRSSAdapter(nil, "test-agent/0.1", &stubScraper{}, zerolog.Nop())
	items, err := adapter.Fetch(context.Background(), Source{ID: "src-1", Type: "RSS", URL: server.URL + "/feed"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want the offline sample", len(items))
	}
	if items[0].URL != "https://newsroom.example.com/articles/verified-ai-disclosure" {
		t.Fatalf("url = %q, want the sample item", items[0].URL)
	}
	if note, ok := items[0].Provenance["note"].(string); !ok || note == "" {
		t.Fatalf("provenance = %v, want an offline note", items[0].Provenance)
	}
}

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>arXiv query results</title>
  <entry>
    <id>http://arxiv.org/abs/2404.11111v1</id>
    <title>Sparse Retrieval Under Distribution Shift</title>
    <summary>We study sparse retrieval models when the query distribution drifts from the training corpus and characterize the resulting recall degradation.</summary>
    <published>2024-04-20T00:00:00Z</published>
    <author><name>K. Aoki</name></author>
    <author><name>D. Mensah</name></author>
    <category term="cs.IR"/>
    <category term="cs.LG"/>
    <link href="http://arxiv.org/abs/2404.11111v1" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func TestArxivAdapterUsesAbstractText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		fmt.Fprint(w, arxivFixture)
	}))
	defer server.Close()

	adapter := NewArxivAdapter(nil, "test-agent/0.1", nil, zerolog.Nop())
	items, err := adapter.Fetch(context.Background(), Source{ID: "src-2", Type: "ARXIV", URL: server.URL + "/atom"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	item := items[0]
	if item.Tier != db.TierT1b {
		t.Fatalf("tier = %q", item.Tier)
	}
	if item.Language != "en" {
		t.Fatalf("language = %q", item.Language)
	}
	if item.Author != "K. Aoki, D. Mensah" {
		t.Fatalf("author = %q", item.Author)
	}
	if !containsTag(item.Tags, "cs.IR") || !containsTag(item.Tags, "cs.LG") {
		t.Fatalf("tags = %v", item.Tags)
	}
	if len(item.Keywords) == 0 {
		t.Fatal("expected keywords extracted from the abstract")
	}
	if item.Text == "" {
		t.Fatal("expected the abstract as item text")
	}
	categories, ok := item.Provenance["categories"].([]string)
	if !ok || len(categories) != 2 {
		t.Fatalf("provenance categories = %v", item.Provenance["categories"])
	}
}

func TestArxivAdapterFallsBackToSampleOnFetchFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewArxivAdapter(nil, "test-agent/0.1", nil, zerolog.Nop())
	items, err := adapter.Fetch(context.Background(), Source{ID: "src-2", Type: "ARXIV", URL: server.URL + "/atom"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://arxiv.org/abs/2404.12345" {
		t.Fatalf("items = %+v, want the offline sample", items)
	}
}

func containsTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}
