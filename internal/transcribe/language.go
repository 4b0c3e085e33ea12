package transcribe

import (
	"slices"
	"strings"
)

// Language labels accepted from clients.
const (
	LabelEnglish    = "english"
	LabelVietnamese = "tiếng việt"
)

// DefaultFallbackLanguage is used for unrecognized labels unless configured
// otherwise.
const DefaultFallbackLanguage = "vi"

var languageCodes = map[string]string{
	LabelEnglish:    "en",
	LabelVietnamese: "vi",
}

// Labels returns the accepted language labels in sorted order.
func Labels() []string {
	out := make([]string, 0, len(languageCodes))
	for l := range languageCodes {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func normalizeLabel(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// IsLabel reports whether s is an accepted language label.
func IsLabel(s string) bool {
	_, ok := languageCodes[normalizeLabel(s)]
	return ok
}

// LanguageCode maps a label or a known two-letter code to the code passed to
// the model. ok is false when s is neither.
func LanguageCode(s string) (code string, ok bool) {
	n := normalizeLabel(s)
	if c, ok := languageCodes[n]; ok {
		return c, true
	}
	for _, c := range languageCodes {
		if n == c {
			return c, true
		}
	}
	return "", false
}
