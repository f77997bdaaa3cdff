package language

import (
	"strings"
	"sync"

	lingua "github.com/pemistahl/lingua-go"
)

// Detection methods reported by Detect.
const (
	MethodHint        = "hint"
	MethodStatistical = "statistical"
	MethodUnknown     = "unknown"
)

const (
	sampleRuneLimit    = 4096
	minDetectionSample = 24
)

// iso3ToISO1 maps ISO 639-3 codes to their two-letter equivalents.
var iso3ToISO1 = map[string]string{
	"afr": "af", "amh": "am", "ara": "ar", "bel": "be", "ben": "bn",
	"bul": "bg", "cat": "ca", "ces": "cs", "cmn": "zh", "dan": "da",
	"deu": "de", "ell": "el", "eng": "en", "est": "et", "fas": "fa",
	"fin": "fi", "fra": "fr", "gle": "ga", "glg": "gl", "heb": "he",
	"hin": "hi", "hrv": "hr", "hun": "hu", "ind": "id", "isl": "is",
	"ita": "it", "jpn": "ja", "kor": "ko", "lit": "lt", "lvs": "lv",
	"msa": "ms", "nld": "nl", "nor": "no", "pol": "pl", "por": "pt",
	"ron": "ro", "rus": "ru", "slk": "sk", "slv": "sl", "spa": "es",
	"srp": "sr", "swe": "sv", "tam": "ta", "tel": "te", "tha": "th",
	"tur": "tr", "ukr": "uk", "urd": "ur", "vie": "vi", "zho": "zh",
}

var aliases = map[string]string{
	"pt-br":   "pt",
	"pt-pt":   "pt",
	"en-us":   "en",
	"en-gb":   "en",
	"zh-cn":   "zh",
	"zh-tw":   "zh",
	"zh-hans": "zh",
	"zh-hant": "zh",
}

// Detection is the outcome of language detection for one document.
type Detection struct {
	Code   string
	Method string
}

// NormalizeCode reduces a language hint to a two-letter ISO 639-1 code.
// Returns "" when the value cannot be mapped.
func NormalizeCode(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	if lowered == "" {
		return ""
	}
	if mapped, ok := aliases[lowered]; ok {
		return mapped
	}
	if len(lowered) == 2 && isAlphaLower(lowered) {
		return lowered
	}
	if mapped, ok := iso3ToISO1[lowered]; ok {
		return mapped
	}
	return ""
}

// Detect resolves a document language. A usable hint wins outright; otherwise
// a bounded text sample goes through statistical detection. Samples shorter
// than 24 characters never reach the detector.
func Detect(text, hint string) Detection {
	if code := NormalizeCode(hint); code != "" {
		return Detection{Code: code, Method: MethodHint}
	}

	sample := collapseWhitespace(text)
	if runes := []rune(sample); len(runes) > sampleRuneLimit {
		sample = string(runes[:sampleRuneLimit])
	}
	if len([]rune(sample)) < minDetectionSample {
		return Detection{Method: MethodUnknown}
	}

	detected, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return Detection{Method: MethodUnknown}
	}

	code := strings.ToLower(detected.IsoCode639_1().String())
	if len(code) != 2 {
		return Detection{Method: MethodUnknown}
	}
	return Detection{Code: code, Method: MethodStatistical}
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
