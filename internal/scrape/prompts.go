package scrape

import (
	"fmt"
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`[^.!?]+[.!?]*`)

func splitSentences(text string, limit int) []string {
	matches := sentenceBoundary.FindAllString(text, -1)
	sentences := make([]string, 0, limit)
	for _, match := range matches {
		trimmed := strings.TrimSpace(match)
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, trimmed)
		if len(sentences) == limit {
			break
		}
	}
	return sentences
}

// buildContextSummary derives a one-line summary and up to three bullet
// sentences. A long structured excerpt wins over the leading sentence.
func buildContextSummary(text string, metadata StructuredMetadata) (summary string, bullets []string) {
	if text == "" {
		return "", nil
	}
	sentences := splitSentences(text, 4)
	if len(sentences) > 3 {
		bullets = sentences[:3]
	} else {
		bullets = sentences
	}

	if len(metadata.Excerpt) > 80 {
		summary = metadata.Excerpt
	} else if len(sentences) > 0 {
		summary = sentences[0]
	}
	return summary, bullets
}

// buildStudyPrompts turns harvested metadata and top keywords into reader
// prompts, preserving first-mention order.
func buildStudyPrompts(keywordList []string, metadata StructuredMetadata) []string {
	if len(keywordList) == 0 {
		return nil
	}

	top := keywordList
	if len(top) > 5 {
		top = top[:5]
	}

	prompts := newChannelSet()
	if metadata.Section != "" {
		prompts.add(fmt.Sprintf("How does this story fit within the %s beat?", metadata.Section))
	}
	if len(metadata.Authors) > 0 {
		prompts.add(fmt.Sprintf("What previous reporting from %s contextualizes this update?", metadata.Authors[0]))
	}
	if len(top) >= 2 {
		prompts.add(fmt.Sprintf("Compare the roles of %s and %s in this development.", top[0], top[1]))
	}
	if len(top) >= 3 {
		prompts.add(fmt.Sprintf("List potential impacts of %s mentioned or implied in the article.", top[2]))
	}
	prompts.add("Summarize the evidence presented and note any gaps you would investigate next.")
	if metadata.OEmbed != nil && metadata.OEmbed.Provider != "" {
		prompts.add(fmt.Sprintf("Compare this outlet's framing with coverage from %s.", metadata.OEmbed.Provider))
	}
	if len(metadata.AlternateFeeds) > 0 {
		prompts.add("Follow the alternate feeds linked in the article and outline how they expand the context.")
	}
	return prompts.list()
}
