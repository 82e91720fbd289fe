package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseIntentType(t *testing.T) {
	tests := []struct {
		input  string
		want   IntentType
		wantOK bool
	}{
		{"comparison", IntentComparison, true},
		{" Orthogonal ", IntentOrthogonal, true},
		{"COST_ANALYSIS", IntentCostAnalysis, true},
		{"", "", false},
		{"regression", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseIntentType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseIntentType(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIntentIsMultiFactor(t *testing.T) {
	for _, it := range IntentTypes {
		want := it == IntentMultivariate || it == IntentOrthogonal
		if got := it.IsMultiFactor(); got != want {
			t.Errorf("%s.IsMultiFactor() = %v, want %v", it, got, want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := &ExtractedParams{
		Models:       []string{"gpt-4o", "glm-4"},
		TrafficRatio: []int{50, 50},
		Variables:    []Variable{{Name: "temperature", Type: VariableNumeric, Values: []string{"0.2", "0.7"}}},
		Duration:     &Duration{MinDays: IntPtr(7), AutoStopConditions: []AutoStopCondition{StopOnSignificance}},
		Budget:       &Budget{MaxCost: FloatPtr(1000)},
		ConfidenceBreakdown: &ConfidenceBreakdown{
			IntentRecognition: 0.95,
			Strategy:          StrategyAutoGenerate,
		},
	}
	clone := orig.Clone()
	if diff := cmp.Diff(orig, clone); diff != "" {
		t.Fatalf("Clone() mismatch (-orig +clone):\n%s", diff)
	}

	clone.Models[0] = "changed"
	clone.TrafficRatio[0] = 90
	clone.Variables[0].Values[0] = "1.0"
	*clone.Duration.MinDays = 1
	*clone.Budget.MaxCost = 1
	clone.ConfidenceBreakdown.IntentRecognition = 0

	if orig.Models[0] != "gpt-4o" || orig.TrafficRatio[0] != 50 || orig.Variables[0].Values[0] != "0.2" {
		t.Error("Clone() shares slices with the original")
	}
	if *orig.Duration.MinDays != 7 || *orig.Budget.MaxCost != 1000 || orig.ConfidenceBreakdown.IntentRecognition != 0.95 {
		t.Error("Clone() shares pointers with the original")
	}

	var nilParams *ExtractedParams
	if nilParams.Clone() != nil {
		t.Error("Clone() of nil should be nil")
	}
}

func TestCombinationAndGroupCount(t *testing.T) {
	tests := []struct {
		name       string
		params     ExtractedParams
		wantCombos int
		wantGroups int
	}{
		{"empty", ExtractedParams{}, 0, 2},
		{"three models", ExtractedParams{Models: []string{"a", "b", "c"}}, 0, 3},
		{"ratio wins", ExtractedParams{Models: []string{"a"}, TrafficRatio: []int{25, 25, 25, 25}}, 0, 4},
		{"factorial", ExtractedParams{Variables: []Variable{
			{Name: "model", Values: []string{"a", "b"}},
			{Name: "temperature", Values: []string{"0.2", "0.5", "0.8"}},
		}}, 6, 6},
		{"empty level", ExtractedParams{Variables: []Variable{{Name: "model"}}}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.CombinationCount(); got != tt.wantCombos {
				t.Errorf("CombinationCount() = %d, want %d", got, tt.wantCombos)
			}
			if got := tt.params.GroupCount(); got != tt.wantGroups {
				t.Errorf("GroupCount() = %d, want %d", got, tt.wantGroups)
			}
		})
	}
}

func TestDurationAndBudgetIsEmpty(t *testing.T) {
	var d *Duration
	if !d.IsEmpty() || !(&Duration{}).IsEmpty() {
		t.Error("nil and zero Duration should be empty")
	}
	if (&Duration{TargetSamples: IntPtr(100)}).IsEmpty() {
		t.Error("Duration with target samples should not be empty")
	}

	var b *Budget
	if !b.IsEmpty() || !(&Budget{}).IsEmpty() {
		t.Error("nil and zero Budget should be empty")
	}
	if (&Budget{DailyLimit: FloatPtr(10)}).IsEmpty() {
		t.Error("Budget with daily limit should not be empty")
	}
}

func TestComplexityLevelOrder(t *testing.T) {
	if !ComplexityComplex.AtLeast(ComplexityMedium) || ComplexitySimple.AtLeast(ComplexityMedium) {
		t.Error("complexity levels out of order")
	}
}

func TestEnhancedInputContextIsWeekend(t *testing.T) {
	tests := []struct {
		name string
		ctx  *EnhancedInputContext
		want bool
	}{
		{"nil", nil, false},
		{"zero timestamp", &EnhancedInputContext{}, false},
		{"saturday", &EnhancedInputContext{Timestamp: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}, true},
		{"sunday", &EnhancedInputContext{Timestamp: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}, true},
		{"wednesday", &EnhancedInputContext{Timestamp: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ctx.IsWeekend(); got != tt.want {
				t.Errorf("IsWeekend() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSuggestionPriorityRank(t *testing.T) {
	if PriorityHigh.Rank() >= PriorityMedium.Rank() || PriorityMedium.Rank() >= PriorityLow.Rank() {
		t.Error("priority ranks out of order")
	}
	if SuggestionPriority("unknown").Rank() != PriorityLow.Rank() {
		t.Error("unknown priority should rank as low")
	}
}

func TestErrorWrapping(t *testing.T) {
	ve := NewValidationError("text", "must not be empty")
	if !errors.Is(ve, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	if ve.Error() != "validation error [field=text]: must not be empty" {
		t.Errorf("ValidationError.Error() = %q", ve.Error())
	}

	te := NewTemplateError("nope", ErrTemplateNotFound)
	wrapped := fmt.Errorf("apply: %w", te)
	if !errors.Is(wrapped, ErrTemplateNotFound) || !errors.Is(wrapped, ErrNotFound) {
		t.Error("TemplateError should match ErrTemplateNotFound and ErrNotFound")
	}
	var target *TemplateError
	if !errors.As(wrapped, &target) || target.TemplateID != "nope" {
		t.Error("errors.As should recover the TemplateError")
	}
}

func TestCombinationCountSaturates(t *testing.T) {
	binary := func(n int) ExtractedParams {
		vars := make([]Variable, n)
		for i := range vars {
			vars[i] = Variable{Name: fmt.Sprintf("v%d", i), Values: []string{"on", "off"}}
		}
		return ExtractedParams{Variables: vars}
	}

	tests := []struct {
		vars int
		want int
	}{
		{8, 256},
		{30, 1 << 30},
		{63, math.MaxInt},
		{64, math.MaxInt},
		{200, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.vars), func(t *testing.T) {
			p := binary(tt.vars)
			if got := p.CombinationCount(); got != tt.want {
				t.Errorf("CombinationCount() = %d, want %d", got, tt.want)
			}
			if got := p.GroupCount(); got != tt.want {
				t.Errorf("GroupCount() = %d, want %d", got, tt.want)
			}
		})
	}
}
