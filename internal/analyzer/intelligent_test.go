package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/experiment-designer/internal/domain"
)

func titles(s []domain.IntelligentSuggestion) []string {
	out := make([]string, 0, len(s))
	for _, x := range s {
		out = append(out, x.Title)
	}
	return out
}

func TestGetIntelligentSuggestionsEmpty(t *testing.T) {
	got := GetIntelligentSuggestions(&domain.ExtractedParams{}, nil)
	assert.Equal(t, []string{"增加对照模型", "设置预算上限", "设置风险控制", "设置目标样本量"}, titles(got))
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
}

func TestGetIntelligentSuggestionsNil(t *testing.T) {
	got := GetIntelligentSuggestions(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGetIntelligentSuggestionsSortedAndCapped(t *testing.T) {
	params := &domain.ExtractedParams{
		Models:       []string{"gpt-4o"},
		TrafficRatio: []int{95, 5},
		Duration:     &domain.Duration{MaxDays: domain.IntPtr(30), TargetSamples: domain.IntPtr(100)},
		Budget:       &domain.Budget{MaxCost: domain.FloatPtr(1000), CostPerGroup: domain.FloatPtr(600)},
	}
	ctx := &domain.EnhancedInputContext{
		UserProfile:     &domain.UserProfile{ExperienceLevel: domain.ExperienceBeginner},
		BusinessContext: &domain.BusinessContext{IsPeakSeason: true},
	}

	got := GetIntelligentSuggestions(params, ctx)
	assert.Equal(t, []string{
		"分组预算超出总预算",
		"增加对照模型",
		"样本量可能不足",
		"统计功效不足",
		"高峰期实验风险",
		"设置风险控制",
	}, titles(got))

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.LessOrEqual(t, prev.Priority.Rank(), cur.Priority.Rank())
		if prev.Priority == cur.Priority {
			assert.GreaterOrEqual(t, prev.Confidence, cur.Confidence)
		}
	}
}

func TestGetIntelligentSuggestionsVariables(t *testing.T) {
	orthogonal := &domain.ExtractedParams{
		Models: []string{"gpt-4o", "glm-4"},
		Variables: []domain.Variable{
			{Name: "model", Values: []string{"gpt-4o", "glm-4"}, IsOrthogonal: true},
			{Name: "temperature", Values: []string{"0.3", "0.7"}, IsOrthogonal: true},
		},
		Duration: &domain.Duration{TargetSamples: domain.IntPtr(10000), AutoStopConditions: []domain.AutoStopCondition{domain.StopOnSignificance}},
		Budget:   &domain.Budget{MaxCost: domain.FloatPtr(1000), DailyLimit: domain.FloatPtr(100)},
	}
	assert.Equal(t, []string{"可评估交互效应", "考虑用户分层"}, titles(GetIntelligentSuggestions(orthogonal, nil)))

	mixed := orthogonal.Clone()
	mixed.Variables[1].IsOrthogonal = false
	assert.Contains(t, titles(GetIntelligentSuggestions(mixed, nil)), "考虑变量交互效应")
}
