package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

func newTestScraper() *Scraper {
	return NewScraper(nil, "test-agent/0.1", nil, zerolog.Nop())
}

func mustDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture html: %v", err)
	}
	return doc
}

func articlePage(bodyRunes int) string {
	sentence := "The council voted on the measure after weeks of public hearings. "
	var builder strings.Builder
	for builder.Len() < bodyRunes {
		builder.WriteString(sentence)
	}
	body := builder.String()[:bodyRunes]
	return fmt.Sprintf(`<!doctype html><html><head></head><body><p>%s</p></body></html>`, body)
}

func TestScrapeArticleAcceptsSufficientText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage(600))
	}))
	defer server.Close()

	result, err := newTestScraper().ScrapeArticle(context.Background(), server.URL+"/story", Options{LanguageHint: "en"})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result for a page with enough text")
	}
	if got := len([]rune(result.Text)); got < minArticleRunes {
		t.Fatalf("text length = %d, want at least %d", got, minArticleRunes)
	}
	if result.Language != "en" {
		t.Fatalf("language = %q, want en", result.Language)
	}
	if len(result.Keywords) == 0 {
		t.Fatal("expected extracted keywords")
	}
	if len(result.Channels) == 0 {
		t.Fatal("expected at least one contributing channel")
	}
}

func TestScrapeArticleKeepsTitleOnPrimaryPath(t *testing.T) {
	t.Parallel()

	sentence := "Investigators traced the outage to a misconfigured relay station. "
	var body strings.Builder
	for body.Len() < 1100 {
		body.WriteString(sentence)
	}
	page := fmt.Sprintf(`<!doctype html><html><head>
		<title>Relay fault blacks out northern grid - Example Times</title>
		<meta property="og:title" content="Relay fault blacks out northern grid">
	</head><body><p>%s</p></body></html>`, body.String())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	result, err := newTestScraper().ScrapeArticle(context.Background(), server.URL+"/grid", Options{LanguageHint: "en"})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result for a page with enough text")
	}
	if got := len([]rune(result.Text)); got < minArticleRunes {
		t.Fatalf("text length = %d, want at least %d", got, minArticleRunes)
	}
	if result.Title != "Relay fault blacks out northern grid" {
		t.Fatalf("title = %q, want the og:title value", result.Title)
	}
}

func TestDocumentTitleFallsBackToTitleElement(t *testing.T) {
	t.Parallel()

	if got := documentTitle(`<html><head><title> Plain title </title></head><body></body></html>`); got != "Plain title" {
		t.Fatalf("title = %q", got)
	}
	if got := documentTitle(`<html><head></head><body></body></html>`); got != "" {
		t.Fatalf("expected empty title for missing head metadata, got %q", got)
	}
}

func TestScrapeArticleRejectsTextBelowMinimum(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage(minArticleRunes-1))
	}))
	defer server.Close()

	result, err := newTestScraper().ScrapeArticle(context.Background(), server.URL+"/short", Options{LanguageHint: "en"})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for text below the minimum, got %d runes", len([]rune(result.Text)))
	}
}

func TestScrapeArticleFetchFailureYieldsNil(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	result, err := newTestScraper().ScrapeArticle(context.Background(), server.URL+"/broken", Options{})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result != nil {
		t.Fatal("expected nil result when the fetch fails")
	}
}

func TestScrapeArticleRecordsViaChannelFirst(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articlePage(600))
	}))
	defer server.Close()

	result, err := newTestScraper().ScrapeArticle(context.Background(), server.URL+"/story", Options{LanguageHint: "en", Via: ChannelRSS})
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if result == nil {
		t.Fatal("expected a result")
	}
	if len(result.Channels) == 0 || result.Channels[0] != ChannelRSS {
		t.Fatalf("channels = %v, want %q first", result.Channels, ChannelRSS)
	}
}

func TestExtractJSONLDPrefersArticleNodes(t *testing.T) {
	t.Parallel()

	doc := mustDocument(t, `<html><head>
		<script type="application/ld+json">
		[{"@type":"WebSite","name":"Example"},
		 {"@type":"NewsArticle","headline":"Dam breach floods valley towns",
		  "description":"Rising waters forced evacuations overnight.",
		  "datePublished":"2026-03-01T06:00:00Z",
		  "articleSection":"Climate",
		  "keywords":"floods, infrastructure",
		  "author":{"name":"R. Vela"},
		  "publisher":{"name":"Valley Post"}}]
		</script>
	</head><body></body></html>`)

	channels := newChannelSet()
	meta := newTestScraper().extractJSONLD(doc, channels)

	if meta.Title != "Dam breach floods valley towns" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Section != "Climate" {
		t.Fatalf("section = %q", meta.Section)
	}
	if meta.SiteName != "Valley Post" {
		t.Fatalf("siteName = %q", meta.SiteName)
	}
	if len(meta.Tags) != 2 || meta.Tags[0] != "floods" || meta.Tags[1] != "infrastructure" {
		t.Fatalf("tags = %v", meta.Tags)
	}
	if len(meta.Authors) != 1 || meta.Authors[0] != "R. Vela" {
		t.Fatalf("authors = %v", meta.Authors)
	}
	if got := channels.list(); len(got) != 1 || got[0] != ChannelJSONLD {
		t.Fatalf("channels = %v", got)
	}
}

func TestExtractMetaReadsOpenGraphAndStandardTags(t *testing.T) {
	t.Parallel()

	doc := mustDocument(t, `<html><head>
		<meta property="og:title" content="Port strike enters third week">
		<meta name="description" content="Talks between the union and operators stalled again.">
		<meta name="keywords" content="shipping, labor">
		<meta name="author" content="M. Osei">
		<meta property="og:site_name" content="Harbor Wire">
	</head><body></body></html>`)

	channels := newChannelSet()
	meta := newTestScraper().extractMeta(doc, channels)

	if meta.Title != "Port strike enters third week" {
		t.Fatalf("title = %q", meta.Title)
	}
	if meta.Excerpt != "Talks between the union and operators stalled again." {
		t.Fatalf("excerpt = %q", meta.Excerpt)
	}
	if len(meta.Tags) != 2 || meta.Tags[0] != "shipping" {
		t.Fatalf("tags = %v", meta.Tags)
	}
	if len(meta.Authors) == 0 || meta.Authors[0] != "M. Osei" {
		t.Fatalf("authors = %v", meta.Authors)
	}
	if meta.SiteName != "Harbor Wire" {
		t.Fatalf("siteName = %q", meta.SiteName)
	}
}

func TestExtractMicroformatsCollectsTagsAuthorsSummary(t *testing.T) {
	t.Parallel()

	doc := mustDocument(t, `<html><body>
		<article class="h-entry">
			<span class="p-category">energy</span>
			<span class="p-category">policy</span>
			<span class="p-author">L. Ferreira</span>
			<p class="p-summary">Regulators approved the interconnect plan after a year of contested hearings and three revised proposals.</p>
		</article>
	</body></html>`)

	channels := newChannelSet()
	data := newTestScraper().extractMicroformats(doc, channels)

	if len(data.Tags) != 2 || data.Tags[0] != "energy" || data.Tags[1] != "policy" {
		t.Fatalf("tags = %v", data.Tags)
	}
	if len(data.Authors) != 1 || data.Authors[0] != "L. Ferreira" {
		t.Fatalf("authors = %v", data.Authors)
	}
	if data.Summary == "" {
		t.Fatal("expected a summary longer than 40 characters")
	}
	if got := channels.list(); len(got) != 1 || got[0] != ChannelMicroformats {
		t.Fatalf("channels = %v", got)
	}
}

func TestExtractAlternateFeeds(t *testing.T) {
	t.Parallel()

	doc := mustDocument(t, `<html><head>
		<link rel="alternate" type="application/rss+xml" href="/feed.xml">
		<link rel="alternate" type="application/atom+xml" href="https://example.org/atom.xml">
		<link rel="alternate" type="text/html" href="/mobile">
	</head><body></body></html>`)

	channels := newChannelSet()
	feeds := newTestScraper().extractAlternateFeeds(doc, channels)

	if len(feeds) != 2 {
		t.Fatalf("feeds = %v", feeds)
	}
	if got := channels.list(); len(got) != 1 || got[0] != ChannelAlternateFeed {
		t.Fatalf("channels = %v", got)
	}
}

func TestFetchOEmbedResolvesRelativeEndpoint(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/oembed.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"Clip","author_name":"Studio B","provider_name":"ClipHost"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	doc := mustDocument(t, `<html><head>
		<link type="application/json+oembed" href="/oembed.json">
	</head><body></body></html>`)

	channels := newChannelSet()
	oEmbed := newTestScraper().fetchOEmbed(context.Background(), doc, server.URL+"/watch", channels)

	if oEmbed == nil {
		t.Fatal("expected an oEmbed payload")
	}
	if oEmbed.Provider != "ClipHost" || oEmbed.Author != "Studio B" {
		t.Fatalf("oEmbed = %+v", oEmbed)
	}
	if got := channels.list(); len(got) != 1 || got[0] != ChannelOEmbed {
		t.Fatalf("channels = %v", got)
	}
}

func TestMergeMetadataPrecedenceAndTagUnion(t *testing.T) {
	t.Parallel()

	primary := StructuredMetadata{
		Title: "From JSON-LD",
		Tags:  []string{"alpha", "beta"},
	}
	fallback := StructuredMetadata{
		Title:   "From meta tags",
		Excerpt: "Only the fallback has this.",
		Tags:    []string{"beta", "gamma"},
		Authors: []string{"Fallback Author"},
	}

	merged := mergeMetadata(primary, fallback)
	if merged.Title != "From JSON-LD" {
		t.Fatalf("title = %q", merged.Title)
	}
	if merged.Excerpt != "Only the fallback has this." {
		t.Fatalf("excerpt = %q", merged.Excerpt)
	}
	if len(merged.Tags) != 3 {
		t.Fatalf("tags = %v", merged.Tags)
	}
	if len(merged.Authors) != 1 || merged.Authors[0] != "Fallback Author" {
		t.Fatalf("authors = %v", merged.Authors)
	}
}

func TestBuildContextSummaryPrefersLongExcerpt(t *testing.T) {
	t.Parallel()

	text := "First sentence here. Second sentence follows. Third one too. Fourth trails off."
	longExcerpt := strings.Repeat("An unusually detailed standfirst for the piece. ", 3)

	summary, bullets := buildContextSummary(text, StructuredMetadata{Excerpt: longExcerpt})
	if summary != longExcerpt {
		t.Fatalf("summary = %q, want the structured excerpt", summary)
	}
	if len(bullets) != 3 {
		t.Fatalf("bullets = %v", bullets)
	}

	summary, _ = buildContextSummary(text, StructuredMetadata{Excerpt: "short"})
	if summary != "First sentence here." {
		t.Fatalf("summary = %q, want the first sentence", summary)
	}
}

func TestBuildStudyPromptsUsesMetadataAndKeywords(t *testing.T) {
	t.Parallel()

	prompts := buildStudyPrompts([]string{"drought", "reservoirs", "rationing"}, StructuredMetadata{
		Section: "Climate",
		Authors: []string{"R. Vela"},
		OEmbed:  &OEmbed{Provider: "ClipHost"},
	})

	want := []string{
		"How does this story fit within the Climate beat?",
		"What previous reporting from R. Vela contextualizes this update?",
		"Compare the roles of drought and reservoirs in this development.",
		"List potential impacts of rationing mentioned or implied in the article.",
		"Summarize the evidence presented and note any gaps you would investigate next.",
		"Compare this outlet's framing with coverage from ClipHost.",
	}
	if len(prompts) != len(want) {
		t.Fatalf("prompts = %v", prompts)
	}
	for i, prompt := range want {
		if prompts[i] != prompt {
			t.Fatalf("prompt[%d] = %q, want %q", i, prompts[i], prompt)
		}
	}

	if got := buildStudyPrompts(nil, StructuredMetadata{}); got != nil {
		t.Fatalf("expected no prompts without keywords, got %v", got)
	}
}
