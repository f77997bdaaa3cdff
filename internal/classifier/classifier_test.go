package classifier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestScoreArticleQualityBands(t *testing.T) {
	t.Parallel()

	longBody := strings.Repeat("word ", 450)
	rich := ScoreArticleQuality(Input{
		Title:    "A sufficiently descriptive headline",
		Summary:  strings.Repeat("s", 130),
		Text:     longBody,
		Tags:     []string{"one", "two", "three"},
		Language: "en",
	})
	if rich.Verdict != VerdictGood {
		t.Fatalf("verdict = %q, score %.0f, want good", rich.Verdict, rich.Score)
	}
	if rich.Score != 95 {
		t.Fatalf("score = %.0f, want 95", rich.Score)
	}

	thin := ScoreArticleQuality(Input{Title: "x", Text: "a few words only"})
	if thin.Verdict != VerdictReject {
		t.Fatalf("verdict = %q, score %.0f, want reject", thin.Verdict, thin.Score)
	}

	middling := ScoreArticleQuality(Input{
		Title:    "A sufficiently descriptive headline",
		Text:     strings.Repeat("word ", 250),
		Language: "en",
	})
	if middling.Verdict != VerdictNeedsReview {
		t.Fatalf("verdict = %q, score %.0f, want needs_review", middling.Verdict, middling.Score)
	}
}

func TestScoreArticleQualityIsDeterministic(t *testing.T) {
	t.Parallel()

	input := Input{Title: "Same input every time", Text: strings.Repeat("stable ", 300), Language: "en"}
	first := ScoreArticleQuality(input)
	second := ScoreArticleQuality(input)
	if first.Score != second.Score || first.Verdict != second.Verdict {
		t.Fatalf("scores diverged: %+v vs %+v", first, second)
	}
}

func TestClassifierUsesModelWhenAvailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"score": 72, "verdict": "needs_review", "reasons": ["model said so"]}`)
	}))
	defer server.Close()

	clf := New(server.URL, nil, zerolog.Nop())
	score, fromModel := clf.Score(context.Background(), Input{Title: "Anything"})
	if !fromModel {
		t.Fatal("expected the model score to win")
	}
	if score.Score != 72 || score.Verdict != VerdictNeedsReview {
		t.Fatalf("score = %+v", score)
	}
}

func TestClassifierFallsBackToHeuristicOnModelFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	clf := New(server.URL, nil, zerolog.Nop())
	score, fromModel := clf.Score(context.Background(), Input{
		Title:    "A sufficiently descriptive headline",
		Text:     strings.Repeat("word ", 450),
		Language: "en",
	})
	if fromModel {
		t.Fatal("expected heuristic fallback")
	}
	if score.Verdict == "" || len(score.Reasons) == 0 {
		t.Fatalf("score = %+v", score)
	}
}

func TestClassifierIgnoresPayloadWithoutNumericScore(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"verdict": "good"}`)
	}))
	defer server.Close()

	clf := New(server.URL, nil, zerolog.Nop())
	_, fromModel := clf.Score(context.Background(), Input{Title: "Anything"})
	if fromModel {
		t.Fatal("payload without a score must fall back to the heuristic")
	}
}
