package match

import (
	"strings"

	"jobfunnel-engine/internal/domain"
)

// Score computes the keyword relevance of one job against a
// normalized keyword→weight map.
//
// A keyword found in the title contributes its full weight; a keyword
// found only in the skills list contributes half, truncated toward
// zero. A keyword never counts twice: the title match wins. Substring
// matching is deliberate — "java" hitting "javascript" is an accepted
// false positive, and tightening it to word boundaries would change
// every score.
//
// Missing fields are treated as empty, an empty map scores zero, and
// the sum may be negative. Score never fails: every input is a plain
// value type, so there is no malformed job that can abort a batch.
func Score(job domain.Job, weights map[string]int) int {
	if len(weights) == 0 {
		return 0
	}

	title := lower(job.Title)
	skills := skillsText(job.Skills)

	score := 0
	for keyword, weight := range weights {
		switch {
		case keyword == "":
			// nothing to match
		case strings.Contains(title, keyword):
			score += weight
		case strings.Contains(skills, keyword):
			score += weight / 2
		}
	}
	return score
}
