package analyzer

import (
	"strings"

	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

// Checklist weights for extraction confidence
const (
	modelsWeight         = 0.25
	paramConfigWeight    = 0.15
	trafficWeight        = 0.15
	metricsWeight        = 0.15
	durationWeight       = 0.10
	budgetWeight         = 0.08
	variablesWeight      = 0.10
	stratificationWeight = 0.05
)

// Confidence tier thresholds
const (
	highConfidenceThreshold     = 0.8
	moderateConfidenceThreshold = 0.5
)

var confidenceTiers = []struct {
	threshold float64
	breakdown domain.ConfidenceBreakdown
}{
	{highConfidenceThreshold, domain.ConfidenceBreakdown{
		IntentRecognition:     0.95,
		ParameterExtraction:   0.9,
		ConfigurationValidity: 0.9,
		Strategy:              domain.StrategyAutoGenerate,
	}},
	{moderateConfidenceThreshold, domain.ConfidenceBreakdown{
		IntentRecognition:     0.8,
		ParameterExtraction:   0.7,
		ConfigurationValidity: 0.75,
		Strategy:              domain.StrategyGenerateWithConfirm,
	}},
	{0, domain.ConfidenceBreakdown{
		IntentRecognition:     0.6,
		ParameterExtraction:   0.4,
		ConfigurationValidity: 0.5,
		Strategy:              domain.StrategyRequestClarification,
	}},
}

// BreakdownFor maps an overall confidence onto its tier breakdown
func BreakdownFor(confidence float64) domain.ConfidenceBreakdown {
	for _, tier := range confidenceTiers {
		if confidence >= tier.threshold {
			return tier.breakdown
		}
	}
	return confidenceTiers[len(confidenceTiers)-1].breakdown
}

var intentLabels = map[domain.IntentType]string{
	domain.IntentComparison:   "对比测试",
	domain.IntentOptimization: "优化实验",
	domain.IntentExploration:  "探索实验",
	domain.IntentCostAnalysis: "成本分析",
	domain.IntentMultivariate: "多变量实验",
	domain.IntentStratified:   "分层实验",
	domain.IntentOrthogonal:   "正交实验",
}

// Synthesizer merges extractor output into one parameter object
type Synthesizer struct{}

// NewSynthesizer creates a new parameter synthesizer
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{}
}

// Synthesize assembles ExtractedParams and scores how much was recovered
func (s *Synthesizer) Synthesize(
	in nlp.Input,
	ex *nlp.Extraction,
	variables []domain.Variable,
	intent domain.Intent,
	complexity domain.ExperimentComplexity,
) *domain.ExtractedParams {
	params := &domain.ExtractedParams{
		Name:                     experimentName(ex.Models, intent.Type),
		Description:              strings.TrimSpace(in.Raw),
		Models:                   ex.Models,
		Prompts:                  ex.Prompts,
		Temperatures:             ex.Temperatures,
		TopP:                     ex.TopP,
		MaxTokens:                ex.MaxTokens,
		TrafficRatio:             ex.TrafficRatio,
		SplittingStrategy:        ex.SplittingStrategy,
		StratificationDimensions: ex.StratificationDimensions,
		Duration:                 ex.Duration,
		Budget:                   ex.Budget,
		PrimaryMetric:            ex.PrimaryMetric,
		SecondaryMetrics:         ex.SecondaryMetrics,
		Variables:                variables,
		UserSegments:             ex.UserSegments,
	}

	params.ExtractionConfidence = s.Confidence(params, complexity.Level)
	breakdown := BreakdownFor(params.ExtractionConfidence)
	params.ConfidenceBreakdown = &breakdown
	return params
}

// Confidence is achieved/possible over the weighted checklist. The variables
// family only counts towards the possible total for medium or harder designs.
func (s *Synthesizer) Confidence(p *domain.ExtractedParams, level domain.ComplexityLevel) float64 {
	var achieved, possible float64
	check := func(weight float64, ok bool) {
		possible += weight
		if ok {
			achieved += weight
		}
	}

	check(modelsWeight, len(p.Models) > 0)
	check(paramConfigWeight, len(p.Temperatures) > 0 || len(p.TopP) > 0 || len(p.MaxTokens) > 0 || len(p.Prompts) > 0)
	check(trafficWeight, len(p.TrafficRatio) > 0)
	check(metricsWeight, p.PrimaryMetric != "")
	check(durationWeight, !p.Duration.IsEmpty())
	check(budgetWeight, !p.Budget.IsEmpty())
	if level.AtLeast(domain.ComplexityMedium) {
		check(variablesWeight, len(p.Variables) > 0)
	}
	check(stratificationWeight, len(p.UserSegments) > 0 || len(p.StratificationDimensions) > 0)

	if possible == 0 {
		return 0
	}
	return clamp(achieved/possible, 0, 1)
}

func experimentName(models []string, intent domain.IntentType) string {
	label := intentLabels[intent]
	if len(models) == 0 {
		return label
	}
	return strings.Join(models, " vs ") + " " + label
}

// evenSplit divides 100 into n integer shares, earlier groups absorbing the remainder
// evenSplit divides 100 into n shares; nil when a share would fall below
// the minimum group share
func evenSplit(n int) []int {
	if n <= 0 || n > 100/nlp.MinGroupShare {
		return nil
	}
	split := make([]int, n)
	base, rem := 100/n, 100%n
	for i := range split {
		split[i] = base
		if i < rem {
			split[i]++
		}
	}
	return split
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
