package scrape

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	shiori "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/keywords"
	"horse.fit/bubble/internal/language"
	"horse.fit/bubble/internal/translation"
	"horse.fit/bubble/internal/urlutil"
)

// Extraction channels, recorded in the order they contributed to a result.
const (
	ChannelRSS              = "rss"
	ChannelArticleExtractor = "article-extractor"
	ChannelReadability      = "readability"
	ChannelHTMLMeta         = "html-meta"
	ChannelJSONLD           = "json-ld"
	ChannelOEmbed           = "oembed"
	ChannelAMPHTML          = "amphtml"
	ChannelMicroformats     = "microformats"
	ChannelAlternateFeed    = "alternate-feed"
	ChannelFallback         = "fallback"
)

const (
	DefaultFetchTimeout  = 12 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	// Extracted article text below this many runes is treated as
	// insufficient and the next extraction stage runs.
	minArticleRunes = 240

	// AMP re-parses use a slightly looser gate before replacing the text.
	minAMPArticleRunes = 200

	resultKeywordLimit = 30
)

const htmlAccept = "text/html,application/xhtml+xml"

// Options adjusts a single scrape.
type Options struct {
	// LanguageHint is an optional feed-declared language code.
	LanguageHint string
	// Via records the channel that discovered the URL, e.g. "rss".
	Via string
}

// Result is the normalized outcome of scraping one article URL.
type Result struct {
	URL                 string
	Title               string
	Text                string
	Excerpt             string
	Language            string
	OriginalText        string
	TranslationProvider string
	Tags                []string
	Keywords            []string
	ContextSummary      string
	ContextBullets      []string
	StudyPrompts        []string
	Channels            []string
	Metadata            StructuredMetadata
}

// Scraper extracts article content over a chain of channels, from readability
// parses down to raw body text.
type Scraper struct {
	client        *http.Client
	userAgent     string
	translator    *translation.Translator
	logger        zerolog.Logger
	bodyByteLimit int64
}

func NewScraper(client *http.Client, userAgent string, translator *translation.Translator, logger zerolog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return &Scraper{
		client:        client,
		userAgent:     userAgent,
		translator:    translator,
		logger:        logger,
		bodyByteLimit: DefaultBodyByteLimit,
	}
}

// ScrapeArticle fetches and extracts one article. A nil result with a nil
// error means the page yielded no usable content; callers skip such URLs.
func (s *Scraper) ScrapeArticle(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	canonicalURL, err := urlutil.Canonicalize(rawURL)
	if err != nil {
		return nil, err
	}

	channels := newChannelSet()
	if opts.Via != "" {
		channels.add(opts.Via)
	}

	body, _, err := s.fetch(ctx, canonicalURL, htmlAccept)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", canonicalURL).Msg("article fetch failed")
		return nil, nil
	}
	html := string(body)

	title, text, excerpt := s.extractPrimary(html, canonicalURL, channels)

	var metadata StructuredMetadata
	harvested := false

	if runeCount(text) < minArticleRunes {
		doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if docErr != nil {
			s.logger.Debug().Err(docErr).Str("url", canonicalURL).Msg("html parse failed")
			return nil, nil
		}

		domTitle, domText, domExcerpt := s.extractSecondary(html, canonicalURL)
		if domText != "" {
			channels.add(ChannelReadability)
			text = domText
			title = firstNonEmpty(title, domTitle)
			excerpt = firstNonEmpty(excerpt, domExcerpt)
		}

		metadata = s.harvestMetadata(ctx, doc, canonicalURL, channels)
		harvested = true

		if metadata.AMPURL != "" && runeCount(text) < minArticleRunes {
			if ampText := s.extractSecondaryText(ctx, metadata.AMPURL); runeCount(ampText) > minAMPArticleRunes {
				text = ampText
				channels.add(ChannelAMPHTML)
			}
		}

		if runeCount(text) < minArticleRunes {
			bodyText := collapseWhitespace(doc.Find("body").First().Text())
			if runeCount(bodyText) < minArticleRunes {
				s.logger.Debug().Str("url", canonicalURL).Msg("insufficient article text")
				return nil, nil
			}
			text = bodyText
			channels.add(ChannelFallback)
			title = firstNonEmpty(title, metadata.Title, strings.TrimSpace(doc.Find("title").First().Text()))
		}

		title = firstNonEmpty(title, metadata.Title)
		excerpt = firstNonEmpty(excerpt, metadata.Excerpt)

		if region := urlutil.InferRegionTag(canonicalURL); region != "" {
			metadata.Tags = unionStrings(metadata.Tags, []string{region})
		}
	}

	if title == "" {
		title = "Untitled article"
	}

	extractedKeywords := keywords.Extract(text, resultKeywordLimit)
	summary, bullets := buildContextSummary(text, metadata)
	prompts := buildStudyPrompts(extractedKeywords, metadata)

	lang, workingText, originalText, provider := s.resolveLanguage(ctx, text, opts.LanguageHint, metadata.SiteName)

	var tags []string
	if harvested {
		tags = metadata.Tags
	}

	return &Result{
		URL:                 canonicalURL,
		Title:               title,
		Text:                workingText,
		Excerpt:             excerpt,
		Language:            lang,
		OriginalText:        originalText,
		TranslationProvider: provider,
		Tags:                tags,
		Keywords:            extractedKeywords,
		ContextSummary:      summary,
		ContextBullets:      bullets,
		StudyPrompts:        prompts,
		Channels:            channels.list(),
		Metadata:            metadata,
	}, nil
}

// extractPrimary runs the one-shot readability extractor over the fetched
// page. Any non-empty output counts the channel, even below the length gate.
func (s *Scraper) extractPrimary(html, pageURL string, channels *channelSet) (title, text, excerpt string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", "", ""
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("primary extraction failed")
		return "", "", ""
	}

	var rendered bytes.Buffer
	if err := article.RenderText(&rendered); err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("primary render failed")
		return "", "", ""
	}

	text = collapseWhitespace(rendered.String())
	excerpt = strings.TrimSpace(article.Excerpt())
	if text != "" {
		channels.add(ChannelArticleExtractor)
		title = documentTitle(html)
	}
	return title, text, excerpt
}

// documentTitle reads the page title from head metadata. The primary
// extractor only renders body text, so the title comes from the document.
func documentTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if og, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if tw, ok := doc.Find(`meta[name="twitter:title"]`).First().Attr("content"); ok && strings.TrimSpace(tw) != "" {
		return strings.TrimSpace(tw)
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractSecondary runs the DOM readability pass over already fetched HTML.
func (s *Scraper) extractSecondary(html, pageURL string) (title, text, excerpt string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", "", ""
	}

	article, err := shiori.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("secondary extraction failed")
		return "", "", ""
	}

	return strings.TrimSpace(article.Title), collapseWhitespace(article.TextContent), strings.TrimSpace(article.Excerpt)
}

// extractSecondaryText fetches a page and returns its readability text only.
// Used for AMP variants.
func (s *Scraper) extractSecondaryText(ctx context.Context, pageURL string) string {
	body, _, err := s.fetch(ctx, pageURL, htmlAccept)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", pageURL).Msg("amp fetch failed")
		return ""
	}
	_, text, _ := s.extractSecondary(string(body), pageURL)
	return text
}

// harvestMetadata runs every structured-markup harvester over the parsed
// document and merges them, JSON-LD taking precedence over HTML meta.
func (s *Scraper) harvestMetadata(ctx context.Context, doc *goquery.Document, pageURL string, channels *channelSet) StructuredMetadata {
	meta := s.extractMeta(doc, channels)
	jsonld := s.extractJSONLD(doc, channels)
	alternateFeeds := s.extractAlternateFeeds(doc, channels)
	microformats := s.extractMicroformats(doc, channels)
	oEmbed := s.fetchOEmbed(ctx, doc, pageURL, channels)
	_, ampURL := s.resolveAMPLink(doc, pageURL)

	primary := jsonld
	primary.AlternateFeeds = alternateFeeds
	primary.AMPURL = firstNonEmpty(ampURL, jsonld.AMPURL)
	primary.OEmbed = oEmbed
	if len(primary.Authors) == 0 {
		primary.Authors = microformats.Authors
	}
	primary.Tags = unionStrings(jsonld.Tags, microformats.Tags)
	primary.Excerpt = firstNonEmpty(jsonld.Excerpt, microformats.Summary, meta.Excerpt)

	return mergeMetadata(primary, meta)
}

// resolveAMPLink finds a rel=amphtml target without fetching it.
func (s *Scraper) resolveAMPLink(doc *goquery.Document, baseURL string) (href, resolved string) {
	href, ok := doc.Find(`link[rel="amphtml"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", ""
	}
	resolved, err := resolveURL(baseURL, href)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", baseURL).Msg("amphtml href did not resolve")
		return href, ""
	}
	return href, resolved
}

// resolveLanguage detects the document language and, for non-English text,
// attempts translation. Translation failures leave the text untouched.
func (s *Scraper) resolveLanguage(ctx context.Context, text, hint, siteName string) (lang, workingText, originalText, provider string) {
	detection := language.Detect(text, firstNonEmpty(hint, siteName))
	lang = detection.Code
	if lang == "" {
		lang = language.NormalizeCode(hint)
	}
	if lang == "" {
		lang = "en"
	}

	workingText = text
	if lang == "en" || s.translator == nil {
		return lang, workingText, "", ""
	}

	outcome, err := s.translator.MaybeTranslateToEnglish(ctx, workingText, lang)
	if err != nil {
		s.logger.Debug().Err(err).Str("lang", lang).Msg("translation failed")
		return lang, workingText, "", ""
	}
	if outcome == nil || outcome.TranslatedText == "" {
		return lang, workingText, "", ""
	}

	originalText = workingText
	workingText = outcome.TranslatedText
	provider = outcome.Provider
	if normalized := language.NormalizeCode(outcome.DetectedLanguage); normalized != "" {
		lang = normalized
	}
	return lang, workingText, originalText, provider
}

type channelSet struct {
	order []string
	seen  map[string]struct{}
}

func newChannelSet() *channelSet {
	return &channelSet{seen: make(map[string]struct{})}
}

func (c *channelSet) add(channel string) {
	if channel == "" {
		return
	}
	if _, ok := c.seen[channel]; ok {
		return
	}
	c.seen[channel] = struct{}{}
	c.order = append(c.order, channel)
}

func (c *channelSet) list() []string {
	return append([]string(nil), c.order...)
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func runeCount(value string) int {
	return len([]rune(value))
}
