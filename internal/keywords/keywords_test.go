package keywords

import (
	"reflect"
	"testing"
)

func TestExtract_RanksByFrequency(t *testing.T) {
	t.Parallel()

	text := "solar panels solar panels solar storage grid storage"
	got := Extract(text, 10)
	want := []string{"solar", "panels", "storage", "grid"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected keywords: got %v want %v", got, want)
	}
}

func TestExtract_FiltersStopwordsAndShortTokens(t *testing.T) {
	t.Parallel()

	got := Extract("the cat sat on the mat with some very good data", 10)
	for _, token := range got {
		if token == "the" || token == "with" || token == "some" || token == "very" {
			t.Fatalf("stopword %q leaked into keywords %v", token, got)
		}
		if len(token) < 4 {
			t.Fatalf("short token %q leaked into keywords %v", token, got)
		}
	}
}

func TestExtract_StripsPunctuationKeepsHyphens(t *testing.T) {
	t.Parallel()

	got := Extract("State-of-the-art models; models, models!", 5)
	if len(got) == 0 || got[0] != "models" {
		t.Fatalf("expected 'models' first, got %v", got)
	}
	found := false
	for _, token := range got {
		if token == "state-of-the-art" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected hyphenated token preserved, got %v", got)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	text := "alpha beta gamma delta alpha beta gamma delta epsilon zeta"
	first := Extract(text, 25)
	for i := 0; i < 50; i++ {
		if next := Extract(text, 25); !reflect.DeepEqual(first, next) {
			t.Fatalf("run %d diverged: got %v want %v", i, next, first)
		}
	}
}

func TestExtract_TiesKeepFirstSeenOrder(t *testing.T) {
	t.Parallel()

	got := Extract("zebra apple zebra apple mango", 3)
	want := []string{"zebra", "apple", "mango"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected tie order: got %v want %v", got, want)
	}
}

func TestExtract_RespectsLimit(t *testing.T) {
	t.Parallel()

	text := "one-word two-word three-word four-word five-word six-word seven-word"
	if got := Extract(text, 3); len(got) != 3 {
		t.Fatalf("expected 3 keywords, got %v", got)
	}
}

func TestExtract_EmptyText(t *testing.T) {
	t.Parallel()

	if got := Extract("", 10); len(got) != 0 {
		t.Fatalf("expected no keywords for empty text, got %v", got)
	}
}
