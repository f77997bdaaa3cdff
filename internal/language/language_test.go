package language

import "testing"

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want string
	}{
		{raw: "en", want: "en"},
		{raw: " EN ", want: "en"},
		{raw: "pt-BR", want: "pt"},
		{raw: "zh-Hant", want: "zh"},
		{raw: "deu", want: "de"},
		{raw: "cmn", want: "zh"},
		{raw: "klingon", want: ""},
		{raw: "e1", want: ""},
		{raw: "", want: ""},
	}

	for _, tc := range cases {
		if got := NormalizeCode(tc.raw); got != tc.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestDetect_HintWins(t *testing.T) {
	t.Parallel()

	detection := Detect("Ceci est un texte assez long pour la détection statistique.", "de")
	if detection.Code != "de" || detection.Method != MethodHint {
		t.Fatalf("expected hint to win, got %+v", detection)
	}
}

func TestDetect_ShortTextIsUnknown(t *testing.T) {
	t.Parallel()

	detection := Detect("too short", "")
	if detection.Code != "" || detection.Method != MethodUnknown {
		t.Fatalf("expected unknown for short sample, got %+v", detection)
	}
}

func TestDetect_InvalidHintFallsThrough(t *testing.T) {
	t.Parallel()

	detection := Detect("tiny", "not-a-language")
	if detection.Method != MethodUnknown {
		t.Fatalf("expected unknown when hint unusable and text short, got %+v", detection)
	}
}
