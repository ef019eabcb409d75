package match

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower does Unicode-aware lowercasing. The boards we ingest carry
// Polish and Ukrainian text, where ASCII-only folding drops matches.
// cases.Caser is stateful, so build one per call instead of sharing.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// NormalizeKeyword trims and lowercases a keyword. Returns "" when
// nothing usable is left; callers reject that before storing.
func NormalizeKeyword(raw string) string {
	return strings.TrimSpace(lower(raw))
}

// NormalizeWeights rebuilds a weight map on normalized keys, dropping
// empty keywords. On collision the larger absolute weight wins, so a
// strong signal is never silently weakened by a sloppy duplicate.
func NormalizeWeights(in map[string]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, w := range in {
		nk := NormalizeKeyword(k)
		if nk == "" {
			continue
		}
		if prev, ok := out[nk]; ok && abs(prev) >= abs(w) {
			continue
		}
		out[nk] = w
	}
	return out
}

// skillsText flattens a skills list into one lowercase haystack for
// substring search. Nil and empty lists both come out as "".
func skillsText(skills []string) string {
	if len(skills) == 0 {
		return ""
	}
	return lower(strings.Join(skills, " "))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
