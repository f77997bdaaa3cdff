package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// OEmbed carries the fields read from a discovered oEmbed document.
type OEmbed struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// StructuredMetadata aggregates everything harvested from a page's structured
// markup. Individual harvesters fill slices of it; mergeMetadata resolves
// precedence.
type StructuredMetadata struct {
	Title          string   `json:"title,omitempty"`
	Excerpt        string   `json:"excerpt,omitempty"`
	Image          string   `json:"image,omitempty"`
	PublishedTime  string   `json:"publishedTime,omitempty"`
	ModifiedTime   string   `json:"modifiedTime,omitempty"`
	Section        string   `json:"section,omitempty"`
	SiteName       string   `json:"siteName,omitempty"`
	AMPURL         string   `json:"ampUrl,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Authors        []string `json:"authors,omitempty"`
	AlternateFeeds []string `json:"alternateFeeds,omitempty"`
	OEmbed         *OEmbed  `json:"oEmbed,omitempty"`
}

type jsonLDNode struct {
	Type           any    `json:"@type"`
	Headline       string `json:"headline"`
	Description    string `json:"description"`
	Image          any    `json:"image"`
	DatePublished  any    `json:"datePublished"`
	DateModified   string `json:"dateModified"`
	ArticleSection string `json:"articleSection"`
	Keywords       any    `json:"keywords"`
	Author         any    `json:"author"`
	Publisher      struct {
		Name string `json:"name"`
	} `json:"publisher"`
}

// extractJSONLD walks ld+json script blocks, preferring NewsArticle/Article
// nodes, and returns the first usable node's metadata.
func (s *Scraper) extractJSONLD(doc *goquery.Document, channels *channelSet) StructuredMetadata {
	var meta StructuredMetadata
	found := false

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		raw := strings.TrimSpace(script.Text())
		if raw == "" {
			return true
		}

		node, ok := decodeJSONLDNode(raw)
		if !ok {
			return true
		}

		meta = StructuredMetadata{
			Title:         strings.TrimSpace(node.Headline),
			Excerpt:       strings.TrimSpace(node.Description),
			Image:         jsonLDImage(node.Image),
			PublishedTime: jsonLDDate(node.DatePublished),
			ModifiedTime:  strings.TrimSpace(node.DateModified),
			Section:       strings.TrimSpace(node.ArticleSection),
			SiteName:      strings.TrimSpace(node.Publisher.Name),
			Tags:          jsonLDKeywords(node.Keywords),
			Authors:       jsonLDAuthors(node.Author),
		}
		found = true
		return false
	})

	if found {
		channels.add(ChannelJSONLD)
	}
	return meta
}

func decodeJSONLDNode(raw string) (jsonLDNode, bool) {
	// A block holds either one node or an array of nodes.
	var single jsonLDNode
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return single, true
	}

	var many []jsonLDNode
	if err := json.Unmarshal([]byte(raw), &many); err != nil || len(many) == 0 {
		return jsonLDNode{}, false
	}
	for _, node := range many {
		if typeName, ok := node.Type.(string); ok && (typeName == "NewsArticle" || typeName == "Article") {
			return node, true
		}
	}
	return many[0], true
}

func jsonLDImage(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(string); ok {
				return strings.TrimSpace(first)
			}
		}
	case map[string]any:
		if raw, ok := v["url"].(string); ok {
			return strings.TrimSpace(raw)
		}
	}
	return ""
}

func jsonLDDate(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if raw, ok := v["@value"].(string); ok {
			return strings.TrimSpace(raw)
		}
	}
	return ""
}

func jsonLDKeywords(value any) []string {
	switch v := value.(type) {
	case string:
		return splitCommaList(v)
	case []any:
		keywords := make([]string, 0, len(v))
		for _, entry := range v {
			if keyword, ok := entry.(string); ok && strings.TrimSpace(keyword) != "" {
				keywords = append(keywords, strings.TrimSpace(keyword))
			}
		}
		return keywords
	}
	return nil
}

func jsonLDAuthors(value any) []string {
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["name"].(string); ok && strings.TrimSpace(name) != "" {
			return []string{strings.TrimSpace(name)}
		}
	case []any:
		authors := make([]string, 0, len(v))
		for _, entry := range v {
			node, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := node["name"].(string); ok && strings.TrimSpace(name) != "" {
				authors = append(authors, strings.TrimSpace(name))
			}
		}
		return authors
	}
	return nil
}

// extractMeta reads OpenGraph, Twitter and standard meta tags.
func (s *Scraper) extractMeta(doc *goquery.Document, channels *channelSet) StructuredMetadata {
	name := func(key string) string {
		value, _ := doc.Find(fmt.Sprintf(`meta[name=%q]`, key)).First().Attr("content")
		return strings.TrimSpace(value)
	}
	property := func(key string) string {
		value, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, key)).First().Attr("content")
		return strings.TrimSpace(value)
	}

	channels.add(ChannelHTMLMeta)
	return StructuredMetadata{
		Title:         firstNonEmpty(property("og:title"), name("twitter:title"), name("title")),
		Excerpt:       firstNonEmpty(property("og:description"), name("description"), name("twitter:description")),
		Image:         firstNonEmpty(property("og:image"), name("twitter:image")),
		PublishedTime: firstNonEmpty(property("article:published_time"), name("article:published_time")),
		ModifiedTime:  firstNonEmpty(property("article:modified_time"), name("article:modified_time")),
		Section:       firstNonEmpty(property("article:section"), name("section")),
		SiteName:      firstNonEmpty(property("og:site_name"), name("application-name")),
		Tags:          splitCommaList(name("keywords")),
		Authors:       compactStrings([]string{name("author"), property("article:author"), name("twitter:creator")}),
	}
}

type microformatData struct {
	Tags    []string
	Authors []string
	Summary string
}

// extractMicroformats reads h-entry/hnews markup and schema.org NewsArticle
// item scopes.
func (s *Scraper) extractMicroformats(doc *goquery.Document, channels *channelSet) microformatData {
	entries := doc.Find(`.h-entry, .hnews, [itemtype="http://schema.org/NewsArticle"]`)
	if entries.Length() == 0 {
		return microformatData{}
	}
	channels.add(ChannelMicroformats)

	var data microformatData
	seenTags := make(map[string]struct{})
	seenAuthors := make(map[string]struct{})

	entries.Each(func(_ int, entry *goquery.Selection) {
		entry.Find(`.p-category, [itemprop="keywords"]`).Each(func(_ int, node *goquery.Selection) {
			tag := strings.TrimSpace(node.Text())
			if tag == "" {
				return
			}
			if _, ok := seenTags[tag]; !ok {
				seenTags[tag] = struct{}{}
				data.Tags = append(data.Tags, tag)
			}
		})
		entry.Find(`.p-author, [itemprop="author"] [itemprop="name"], [itemprop="author"]`).Each(func(_ int, node *goquery.Selection) {
			author := strings.TrimSpace(node.Text())
			if author == "" {
				return
			}
			if _, ok := seenAuthors[author]; !ok {
				seenAuthors[author] = struct{}{}
				data.Authors = append(data.Authors, author)
			}
		})
		if data.Summary == "" {
			candidate := strings.TrimSpace(entry.Find(`.p-summary, [itemprop="description"], [itemprop="abstract"]`).First().Text())
			if candidate == "" {
				candidate = strings.TrimSpace(entry.Find(".e-content").First().Text())
			}
			if len(candidate) > 40 {
				data.Summary = candidate
			}
		}
	})

	return data
}

// extractAlternateFeeds collects alternate RSS/Atom link targets.
func (s *Scraper) extractAlternateFeeds(doc *goquery.Document, channels *channelSet) []string {
	var feeds []string
	doc.Find(`link[rel="alternate"][type="application/rss+xml"], link[rel="alternate"][type="application/atom+xml"]`).Each(func(_ int, link *goquery.Selection) {
		if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
			feeds = append(feeds, strings.TrimSpace(href))
		}
	})
	if len(feeds) > 0 {
		channels.add(ChannelAlternateFeed)
	}
	return feeds
}

// fetchOEmbed resolves and fetches a discovered oEmbed endpoint.
func (s *Scraper) fetchOEmbed(ctx context.Context, doc *goquery.Document, baseURL string, channels *channelSet) *OEmbed {
	href, ok := doc.Find(`link[type="application/json+oembed"], link[type="text/json"], link[type="application/xml+oembed"]`).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil
	}

	resolved, err := resolveURL(baseURL, href)
	if err != nil {
		s.logger.Debug().Err(err).Str("url", baseURL).Msg("oembed href did not resolve")
		return nil
	}

	body, contentType, err := s.fetch(ctx, resolved, "application/json, */*")
	if err != nil {
		s.logger.Debug().Err(err).Str("url", resolved).Msg("oembed fetch failed")
		return nil
	}
	if !strings.Contains(contentType, "json") {
		return nil
	}

	var payload struct {
		Title        string `json:"title"`
		AuthorName   string `json:"author_name"`
		ProviderName string `json:"provider_name"`
		Description  string `json:"description"`
		URL          string `json:"url"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Debug().Err(err).Str("url", resolved).Msg("oembed payload decode failed")
		return nil
	}

	channels.add(ChannelOEmbed)
	return &OEmbed{
		Title:       payload.Title,
		Author:      payload.AuthorName,
		Provider:    payload.ProviderName,
		Description: payload.Description,
		URL:         payload.URL,
	}
}

// mergeMetadata applies precedence: primary (JSON-LD enriched) wins field by
// field over fallback (HTML meta); tag sets are unioned.
func mergeMetadata(primary, fallback StructuredMetadata) StructuredMetadata {
	merged := StructuredMetadata{
		Title:         firstNonEmpty(primary.Title, fallback.Title),
		Excerpt:       firstNonEmpty(primary.Excerpt, fallback.Excerpt),
		Image:         firstNonEmpty(primary.Image, fallback.Image),
		PublishedTime: firstNonEmpty(primary.PublishedTime, fallback.PublishedTime),
		ModifiedTime:  firstNonEmpty(primary.ModifiedTime, fallback.ModifiedTime),
		Section:       firstNonEmpty(primary.Section, fallback.Section),
		SiteName:      firstNonEmpty(primary.SiteName, fallback.SiteName),
		AMPURL:        firstNonEmpty(primary.AMPURL, fallback.AMPURL),
		OEmbed:        primary.OEmbed,
	}
	if merged.OEmbed == nil {
		merged.OEmbed = fallback.OEmbed
	}

	merged.Tags = unionStrings(primary.Tags, fallback.Tags)

	merged.Authors = primary.Authors
	if len(merged.Authors) == 0 {
		merged.Authors = fallback.Authors
	}
	merged.AlternateFeeds = primary.AlternateFeeds
	if len(merged.AlternateFeeds) == 0 {
		merged.AlternateFeeds = fallback.AlternateFeeds
	}
	return merged
}

func (s *Scraper) fetch(ctx context.Context, target, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.bodyByteLimit))
	if err != nil {
		return nil, "", fmt.Errorf("read body of %s: %w", target, err)
	}
	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	return body, contentType, nil
}

func resolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

func compactStrings(values []string) []string {
	compacted := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			compacted = append(compacted, trimmed)
		}
	}
	return compacted
}

func unionStrings(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var union []string
	for _, group := range groups {
		for _, value := range group {
			trimmed := strings.TrimSpace(value)
			if trimmed == "" {
				continue
			}
			if _, ok := seen[trimmed]; ok {
				continue
			}
			seen[trimmed] = struct{}{}
			union = append(union, trimmed)
		}
	}
	return union
}
