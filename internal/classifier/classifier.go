// Package classifier scores article quality. A deterministic heuristic is the
// baseline; a model endpoint, when configured, may override it.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	VerdictGood        = "good"
	VerdictNeedsReview = "needs_review"
	VerdictReject      = "reject"
)

const (
	goodThreshold   = 45
	rejectThreshold = 10

	modelTimeout = 8 * time.Second
)

// Input carries the quality signals for one article.
type Input struct {
	Title    string   `json:"title,omitempty"`
	Summary  string   `json:"summary,omitempty"`
	Text     string   `json:"text,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Language string   `json:"language,omitempty"`
	Source   string   `json:"source,omitempty"`
}

// Score is a quality assessment with its contributing reasons.
type Score struct {
	Verdict string   `json:"verdict"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// ScoreArticleQuality is the heuristic scorer. Signals: body length, summary
// presence, tag richness, title and language presence.
func ScoreArticleQuality(input Input) Score {
	var reasons []string
	score := 0.0

	wordCount := len(strings.Fields(input.Text))
	switch {
	case wordCount >= 400:
		score += 40
		reasons = append(reasons, "Body length OK")
	case wordCount >= 200:
		score += 25
		reasons = append(reasons, "Body length decent")
	case wordCount > 0:
		score += 5
		reasons = append(reasons, "Body is thin")
	default:
		score -= 40
		reasons = append(reasons, "Missing body text")
	}

	summaryLength := len(strings.TrimSpace(input.Summary))
	switch {
	case summaryLength > 120:
		score += 25
		reasons = append(reasons, "Summary present")
	case summaryLength > 0:
		score += 10
		reasons = append(reasons, "Short summary")
	default:
		reasons = append(reasons, "No summary")
	}

	tagCount := 0
	for _, tag := range input.Tags {
		if strings.TrimSpace(tag) != "" {
			tagCount++
		}
	}
	switch {
	case tagCount >= 3:
		score += 15
		reasons = append(reasons, "Tags provided")
	case tagCount > 0:
		score += 5
		reasons = append(reasons, "Few tags")
	default:
		reasons = append(reasons, "No tags")
	}

	if len(input.Title) > 12 {
		score += 10
		reasons = append(reasons, "Title present")
	} else {
		reasons = append(reasons, "Missing/short title")
	}

	if input.Language != "" {
		score += 5
	} else {
		reasons = append(reasons, "Language missing")
	}

	verdict := VerdictGood
	if score < rejectThreshold {
		verdict = VerdictReject
	} else if score < goodThreshold {
		verdict = VerdictNeedsReview
	}

	return Score{Verdict: verdict, Score: score, Reasons: reasons}
}

// Classifier combines the heuristic with an optional model endpoint.
type Classifier struct {
	modelURL string
	client   *http.Client
	logger   zerolog.Logger
}

func New(modelURL string, client *http.Client, logger zerolog.Logger) *Classifier {
	if client == nil {
		client = &http.Client{Timeout: modelTimeout}
	}
	return &Classifier{modelURL: modelURL, client: client, logger: logger}
}

// Score returns the model assessment when one is available and valid,
// otherwise the heuristic. The second return reports whether the model
// produced the result.
func (c *Classifier) Score(ctx context.Context, input Input) (Score, bool) {
	if modelScore := c.scoreWithModel(ctx, input); modelScore != nil {
		return *modelScore, true
	}
	return ScoreArticleQuality(input), false
}

// scoreWithModel posts the input to the configured endpoint. Any failure or
// malformed response yields nil and the caller falls back to the heuristic.
func (c *Classifier) scoreWithModel(ctx context.Context, input Input) *Score {
	if c == nil || c.modelURL == "" {
		return nil
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL, bytes.NewReader(payload))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("quality model unavailable")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("quality model rejected request")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	var decoded struct {
		Score   *float64 `json:"score"`
		Reasons []string `json:"reasons"`
		Verdict string   `json:"verdict"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.Score == nil {
		c.logger.Debug().Err(err).Msg("quality model returned unusable payload")
		return nil
	}

	verdict := decoded.Verdict
	if verdict != VerdictNeedsReview && verdict != VerdictReject {
		verdict = VerdictGood
	}

	reasons := decoded.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &Score{Verdict: verdict, Score: *decoded.Score, Reasons: reasons}
}

// String renders a short log form.
func (s Score) String() string {
	return fmt.Sprintf("%s (%.0f)", s.Verdict, s.Score)
}
