package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// RegionTagPrefix marks geographic tags; the remainder is an ISO country code or GLOBAL.
const RegionTagPrefix = "region:"

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign"}

// regionOverrides pins well-known hosts whose TLD does not reveal their region.
var regionOverrides = map[string]string{
	"npr.org":          "US",
	"feeds.npr.org":    "US",
	"bbc.co.uk":        "GB",
	"lemonde.fr":       "FR",
	"elpais.com":       "ES",
	"aljazeera.com":    "QA",
	"export.arxiv.org": "GLOBAL",
	"arxiv.org":        "GLOBAL",
}

var tldRegions = map[string]string{
	"uk": "GB",
	"fr": "FR",
	"de": "DE",
	"it": "IT",
	"es": "ES",
	"br": "BR",
	"in": "IN",
	"cn": "CN",
	"jp": "JP",
	"ru": "RU",
	"ca": "CA",
	"au": "AU",
}

// Canonicalize strips the fragment and campaign-tracking query parameters.
func Canonicalize(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	parsed.Fragment = ""
	query := parsed.Query()
	for _, param := range trackingParams {
		query.Del(param)
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

// HashText returns the lowercase hex sha-256 digest of text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ReadingTimeMinutes estimates reading time at 200 words per minute, minimum one minute.
func ReadingTimeMinutes(text string) int {
	words := len(strings.Fields(text))
	minutes := (words + 100) / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}

// InferRegionTag derives a region tag from the URL's hostname. Known hosts win
// over TLD mapping; local hostnames yield no tag; everything else is GLOBAL.
func InferRegionTag(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Hostname() == "" {
		return ""
	}

	hostname := strings.ToLower(parsed.Hostname())
	if region, ok := regionOverrides[hostname]; ok {
		return RegionTagPrefix + region
	}

	parts := strings.Split(hostname, ".")
	tld := parts[len(parts)-1]
	if region, ok := tldRegions[tld]; ok {
		return RegionTagPrefix + region
	}

	if strings.Contains(hostname, "localhost") || strings.HasSuffix(hostname, ".local") {
		return ""
	}

	return RegionTagPrefix + "GLOBAL"
}

// RegionsFromTags extracts the uppercased region codes from a tag list.
func RegionsFromTags(tags []string) []string {
	regions := make([]string, 0, 1)
	for _, tag := range tags {
		if strings.HasPrefix(tag, RegionTagPrefix) {
			regions = append(regions, strings.ToUpper(strings.TrimPrefix(tag, RegionTagPrefix)))
		}
	}
	return regions
}
