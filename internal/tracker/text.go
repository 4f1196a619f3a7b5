package tracker

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// genericStages are queue-level labels that carry no information for a reader.
var genericStages = map[string]bool{
	"active":     true,
	"processing": true,
	"waiting":    true,
	"queued":     true,
	"delayed":    true,
}

// normalizeTitle returns the NFC form of a display title, trimmed.
func normalizeTitle(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// stageLabel turns a server stage into display text ("extracting_text" ->
// "Extracting text"). Returns false for empty or generic stages.
func stageLabel(stage string) (string, bool) {
	s := strings.TrimSpace(norm.NFC.String(stage))
	if s == "" || genericStages[strings.ToLower(s)] {
		return "", false
	}

	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(s))
	if len(words) == 0 {
		return "", false
	}
	// Casers are stateful; one per call.
	words[0] = cases.Title(language.English, cases.NoLower).String(words[0])
	return strings.Join(words, " "), true
}

// clampPercent rounds a reported progress value into 0..100.
func clampPercent(p float64) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p + 0.5)
}
