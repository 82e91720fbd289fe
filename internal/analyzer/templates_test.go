package analyzer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/experiment-designer/internal/domain"
)

func TestDefaultTemplates(t *testing.T) {
	templates := DefaultTemplates().Templates()

	var ids []string
	for _, tpl := range templates {
		ids = append(ids, tpl.ID)
		assert.NotEmpty(t, tpl.Name, tpl.ID)
		assert.NotEmpty(t, tpl.Examples, tpl.ID)
	}
	assert.Equal(t, []string{
		"model_comparison",
		"prompt_optimization",
		"cost_efficiency",
		"multivariate_tuning",
		"user_segmentation",
	}, ids)
}

func TestApplyTemplateRoundTrip(t *testing.T) {
	catalog := DefaultTemplates()
	v := NewValidator()

	for _, tpl := range catalog.Templates() {
		t.Run(tpl.ID, func(t *testing.T) {
			params, err := catalog.ApplyTemplate(tpl.ID, nil)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, params.ExtractionConfidence, templateConfidenceFloor)
			require.NotNil(t, params.ConfidenceBreakdown)
			assert.Equal(t, domain.StrategyAutoGenerate, params.ConfidenceBreakdown.Strategy)
			assert.Equal(t, tpl.Name, params.Name)

			complexity := describeComplexity(domain.ComplexitySimple, domain.ComplexityFactors{GroupCount: params.GroupCount()})
			missing := IdentifyMissingParams(params, tpl.Intent, complexity, nil)
			assert.Empty(t, missing.Required)
			assert.Empty(t, v.ValidateParams(params, tpl.Intent))
		})
	}
}

func TestApplyTemplateNotFound(t *testing.T) {
	_, err := DefaultTemplates().ApplyTemplate("nope", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTemplateNotFound))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	var te *domain.TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "nope", te.TemplateID)
}

func TestApplyTemplateModelSubstitution(t *testing.T) {
	models := []string{"gpt-4o", "glm-4", "qwen-max"}
	params, err := DefaultTemplates().ApplyTemplate("multivariate_tuning", &domain.ExtractedParams{Models: models})
	require.NoError(t, err)

	assert.Equal(t, models, params.Models)
	require.Len(t, params.Variables, 2)
	assert.Equal(t, models, params.Variables[0].Values)
	assert.Equal(t, 6, params.CombinationCount())
	assert.Len(t, GenerateVariableCombinations(params.Variables), 6)

	require.Len(t, params.TrafficRatio, 6)
	total := 0
	for _, r := range params.TrafficRatio {
		total += r
	}
	assert.Equal(t, 100, total)
	assert.Empty(t, NewValidator().ValidateParams(params, domain.IntentMultivariate))
}

func TestApplyTemplateUserOverrides(t *testing.T) {
	catalog := DefaultTemplates()

	params, err := catalog.ApplyTemplate("model_comparison", &domain.ExtractedParams{
		TrafficRatio:         []int{70, 30},
		PrimaryMetric:        "accuracy",
		Duration:             &domain.Duration{MaxDays: domain.IntPtr(21)},
		Budget:               &domain.Budget{DailyLimit: domain.FloatPtr(50)},
		ExtractionConfidence: 0.95,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{70, 30}, params.TrafficRatio)
	assert.Equal(t, "accuracy", params.PrimaryMetric)
	assert.Equal(t, 7, *params.Duration.MinDays)
	assert.Equal(t, 21, *params.Duration.MaxDays)
	assert.Equal(t, 1000.0, *params.Budget.MaxCost)
	assert.Equal(t, 50.0, *params.Budget.DailyLimit)
	assert.InDelta(t, 0.95, params.ExtractionConfidence, 1e-9)
}

func TestApplyTemplateDoesNotMutateCatalog(t *testing.T) {
	catalog := DefaultTemplates()

	params, err := catalog.ApplyTemplate("model_comparison", nil)
	require.NoError(t, err)
	params.Models[0] = "mutated"
	*params.Duration.MinDays = 99

	tpl, ok := catalog.Template("model_comparison")
	require.True(t, ok)
	assert.Equal(t, "gpt-4-turbo", tpl.Params.Models[0])
	assert.Equal(t, 7, *tpl.Params.Duration.MinDays)

	copies := catalog.Templates()
	copies[0].Examples[0] = "mutated"
	again, _ := catalog.Template("model_comparison")
	assert.NotEqual(t, "mutated", again.Examples[0])
}

func TestParseTemplatesRejectsBadInput(t *testing.T) {
	_, err := ParseTemplates([]byte("- name: missing id\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("- id: a\n- id: a\n"))
	assert.Error(t, err)

	_, err = ParseTemplates([]byte("{not a list"))
	assert.Error(t, err)
}
