package app

import "testing"

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("expected exit code 2 for unknown command, got %d", code)
	}
}

func TestRunNoArgs(t *testing.T) {
	t.Parallel()

	if code := Run(nil); code != 2 {
		t.Fatalf("expected exit code 2 for empty args, got %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"help"}); code != 0 {
		t.Fatalf("expected exit code 0 for help, got %d", code)
	}
}

func TestPreferencesFromFlags(t *testing.T) {
	t.Parallel()

	prefs := preferencesFromFlags(" climate , tech ,,sports", 0.7, " fr ")
	if len(prefs.LikedTopics) != 3 {
		t.Fatalf("expected 3 topics, got %v", prefs.LikedTopics)
	}
	if prefs.LikedTopics[0] != "climate" || prefs.LikedTopics[2] != "sports" {
		t.Fatalf("unexpected topics: %v", prefs.LikedTopics)
	}
	if prefs.Serendipity != 0.7 {
		t.Fatalf("expected serendipity 0.7, got %v", prefs.Serendipity)
	}
	if prefs.Nationality != "fr" {
		t.Fatalf("expected trimmed nationality, got %q", prefs.Nationality)
	}
}
