// Package translation forwards non-English working text to the community
// text-generation service and substitutes the English rendition. Translation
// is strictly best effort: any failure leaves the original text untouched.
package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/bubble/internal/communitymodel"
	"horse.fit/bubble/internal/language"
)

const (
	// DefaultMaxTotalChars bounds how much of a document is translated.
	DefaultMaxTotalChars = 20000
	// DefaultChunkLimit bounds one chunk sent to the service.
	DefaultChunkLimit = 3500

	minChunkLimit = 500
)

// responseSchema validates the community-model translation payload before any
// field is trusted.
const responseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "provider": {"type": "string"},
    "detected": {"type": ["string", "null"]},
    "note": {"type": "string"}
  }
}`

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?\n]*`)

// Outcome describes a successful translation.
type Outcome struct {
	TranslatedText   string
	DetectedLanguage string
	Provider         string
	Truncated        bool
}

// Translator chunks text and drives the community-model generator.
type Translator struct {
	generator     communitymodel.Generator
	enabled       bool
	maxTotalChars int
	chunkLimit    int
	logger        zerolog.Logger
}

// NewTranslator wires a translator. A nil generator or disabled flag turns
// MaybeTranslateToEnglish into a no-op.
func NewTranslator(generator communitymodel.Generator, enabled bool, maxTotalChars, chunkLimit int, logger zerolog.Logger) *Translator {
	if maxTotalChars <= 0 {
		maxTotalChars = DefaultMaxTotalChars
	}
	if chunkLimit <= 0 {
		chunkLimit = DefaultChunkLimit
	}
	return &Translator{
		generator:     generator,
		enabled:       enabled,
		maxTotalChars: maxTotalChars,
		chunkLimit:    chunkLimit,
		logger:        logger,
	}
}

// Enabled reports whether translation will actually run.
func (t *Translator) Enabled() bool {
	return t != nil && t.enabled && t.generator != nil
}

// MaybeTranslateToEnglish translates text when the feature is enabled.
// Returns nil on any failure; the caller keeps the original text.
func (t *Translator) MaybeTranslateToEnglish(ctx context.Context, text, from string) (*Outcome, error) {
	if !t.Enabled() {
		return nil, nil
	}

	sourceLang := language.NormalizeCode(from)

	trimmed := text
	truncated := false
	if runes := []rune(text); len(runes) > t.maxTotalChars {
		trimmed = string(runes[:t.maxTotalChars])
		truncated = true
	}

	limit := t.chunkLimit
	if limit < minChunkLimit {
		limit = minChunkLimit
	}
	chunks := ChunkText(trimmed, limit)
	if len(chunks) == 0 {
		return nil, nil
	}

	prompt := buildPrompt(strings.Join(chunks, "\n\n"), sourceLang)
	raw, err := t.generator.GenerateStructuredText(ctx, prompt, `{"text":"...","provider":"...","detected":"de"}`)
	if err != nil {
		t.logger.Warn().Err(err).Msg("translation failed")
		return nil, nil
	}
	if err := communitymodel.ValidateAgainstSchema(raw, responseSchema); err != nil {
		t.logger.Warn().Err(err).Msg("translation payload rejected")
		return nil, nil
	}

	var payload struct {
		Text     string  `json:"text"`
		Provider string  `json:"provider"`
		Detected *string `json:"detected"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.logger.Warn().Err(err).Msg("translation payload decode failed")
		return nil, nil
	}

	detected := sourceLang
	if payload.Detected != nil {
		if normalized := language.NormalizeCode(*payload.Detected); normalized != "" {
			detected = normalized
		}
	}

	provider := strings.TrimSpace(payload.Provider)
	if provider == "" {
		provider = "bubble-local"
	}

	return &Outcome{
		TranslatedText:   payload.Text,
		DetectedLanguage: detected,
		Provider:         provider,
		Truncated:        truncated,
	}, nil
}

func buildPrompt(text, sourceLang string) string {
	if sourceLang != "" {
		return fmt.Sprintf("Translate the following text from %s into English (target-lang=en, source-lang=%s). Preserve paragraph breaks.\n\n%s", sourceLang, sourceLang, text)
	}
	return fmt.Sprintf("Translate the following text into English (target-lang=en). Preserve paragraph breaks.\n\n%s", text)
}

// ChunkText splits input at sentence boundaries into chunks no longer than
// limit characters, hard-splitting any single sentence that still exceeds it.
func ChunkText(input string, limit int) []string {
	sanitized := strings.Join(strings.Fields(input), " ")
	if sanitized == "" {
		return nil
	}
	if len([]rune(sanitized)) <= limit {
		return []string{sanitized}
	}

	sentences := sentencePattern.FindAllString(sanitized, -1)
	if len(sentences) == 0 {
		sentences = []string{sanitized}
	}

	chunks := make([]string, 0, len(sentences))
	current := ""

	for _, sentence := range sentences {
		addition := strings.TrimSpace(sentence)
		if addition == "" {
			continue
		}

		candidate := addition
		if current != "" {
			candidate = current + " " + addition
		}
		if len([]rune(candidate)) > limit {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			if len([]rune(addition)) > limit {
				chunks = append(chunks, hardSplit(addition, limit)...)
				continue
			}
			current = addition
			continue
		}
		current = candidate
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

func hardSplit(value string, limit int) []string {
	runes := []rune(value)
	parts := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		part := strings.TrimSpace(string(runes[start:end]))
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
