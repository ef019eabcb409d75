package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobfunnel-engine/internal/domain"
)

func TestScore_TitleMatchFullWeight(t *testing.T) {
	job := domain.Job{Title: "Python Developer"}
	got := Score(job, map[string]int{"python": 10})
	assert.Equal(t, 10, got)
}

func TestScore_SkillsOnlyMatchHalfWeight(t *testing.T) {
	job := domain.Job{Title: "Developer", Skills: []string{"python"}}
	got := Score(job, map[string]int{"python": 10})
	assert.Equal(t, 5, got)
}

func TestScore_TitleMatchNotDoubleCounted(t *testing.T) {
	job := domain.Job{Title: "Python Engineer", Skills: []string{"python"}}
	got := Score(job, map[string]int{"python": 10})
	assert.Equal(t, 10, got, "title and skills must not both count for one keyword")
}

func TestScore_MixedPositiveAndNegative(t *testing.T) {
	// keywords = {"python": 10, "senior": -5} against "Senior Python Developer"
	job := domain.Job{Title: "Senior Python Developer"}
	got := Score(job, map[string]int{"python": 10, "senior": -5})
	assert.Equal(t, 5, got)
}

func TestScore_SkillsMatchIsCaseInsensitive(t *testing.T) {
	// "SQL" in skills, keyword "sql" weight 4 → 4/2 = 2
	job := domain.Job{Title: "Backend Engineer", Skills: []string{"SQL", "Python"}}
	got := Score(job, map[string]int{"sql": 4})
	assert.Equal(t, 2, got)
}

func TestScore_HalfWeightTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		name   string
		weight int
		want   int
	}{
		{"odd positive", 5, 2},
		{"odd negative", -5, -2},
		{"one", 1, 0},
		{"minus one", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := domain.Job{Title: "Developer", Skills: []string{"go"}}
			got := Score(job, map[string]int{"go": tt.weight})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_EmptyWeights(t *testing.T) {
	job := domain.Job{Title: "Python Developer", Skills: []string{"python"}}
	assert.Equal(t, 0, Score(job, nil))
	assert.Equal(t, 0, Score(job, map[string]int{}))
}

func TestScore_MissingFieldsContributeNothing(t *testing.T) {
	weights := map[string]int{"python": 10}
	assert.Equal(t, 0, Score(domain.Job{}, weights))
	assert.Equal(t, 0, Score(domain.Job{Title: "", Skills: nil}, weights))
	assert.Equal(t, 0, Score(domain.Job{Skills: []string{}}, weights))
}

func TestScore_SubstringMatchingIsIntentional(t *testing.T) {
	// "java" inside "javascript" counts. Known limitation, not a bug.
	job := domain.Job{Title: "JavaScript Developer"}
	got := Score(job, map[string]int{"java": 6})
	assert.Equal(t, 6, got)
}

func TestScore_UnicodeKeyword(t *testing.T) {
	job := domain.Job{Title: "Młodszy Programista Python"}
	got := Score(job, map[string]int{"młodszy": 3})
	assert.Equal(t, 3, got)
}

func TestScore_Deterministic(t *testing.T) {
	job := domain.Job{
		Title:  "Senior Go Engineer",
		Skills: []string{"go", "kubernetes", "postgresql"},
	}
	weights := map[string]int{"go": 7, "senior": -3, "kubernetes": 4, "rust": 9}

	first := Score(job, weights)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Score(job, weights))
	}
}

func TestNormalizeKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python", "python"},
		{"  SQL  ", "sql"},
		{"DevOps Engineer", "devops engineer"},
		{"MŁODSZY", "młodszy"},
		{"   ", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKeyword(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeWeights(t *testing.T) {
	got := NormalizeWeights(map[string]int{
		"Python": 10,
		" sql ":  4,
		"  ":     7,
	})
	assert.Equal(t, map[string]int{"python": 10, "sql": 4}, got)
}

func TestNormalizeWeights_CollisionKeepsStrongerSignal(t *testing.T) {
	got := NormalizeWeights(map[string]int{
		"Go":  2,
		"go ": -8,
	})
	assert.Equal(t, map[string]int{"go": -8}, got)
}

func TestNormalizeWeights_Empty(t *testing.T) {
	assert.Nil(t, NormalizeWeights(nil))
	assert.Nil(t, NormalizeWeights(map[string]int{}))
}
