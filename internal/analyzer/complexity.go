// Package analyzer turns extracted signals into a validated experiment design:
// complexity assessment, parameter synthesis, validation, suggestions,
// combination generation, template application and quality scoring.
package analyzer

import (
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

var (
	multivariateSignals = []string{"同时测试", "多变量", "多个变量", "多因素", "multivariate", "simultaneous", "combined", "组合"}
	orthogonalSignals   = []string{"正交", "全因子", "所有组合", "orthogonal", "factorial"}
	stratifySignals     = []string{"分层", "新老用户", "新用户", "老用户", "用户群", "细分", "stratif", "segment"}
	advancedSignals     = []string{"序贯", "自适应", "动态分配", "bandit", "sequential", "adaptive", "dynamic allocation"}
)

// levelProfile holds the table lookups keyed by complexity level
type levelProfile struct {
	setupMinutes int
	baseDays     int
	power        float64
}

var levelProfiles = map[domain.ComplexityLevel]levelProfile{
	domain.ComplexitySimple:   {setupMinutes: 5, baseDays: 7, power: 0.8},
	domain.ComplexityMedium:   {setupMinutes: 15, baseDays: 14, power: 0.85},
	domain.ComplexityComplex:  {setupMinutes: 30, baseDays: 21, power: 0.9},
	domain.ComplexityAdvanced: {setupMinutes: 60, baseDays: 30, power: 0.95},
}

// extraDaysPerGroup is added to the base duration for every group beyond two
const extraDaysPerGroup = 3

// ComplexityAssessor tiers a design from intent and textual cues
type ComplexityAssessor struct{}

// NewComplexityAssessor creates a new complexity assessor
func NewComplexityAssessor() *ComplexityAssessor {
	return &ComplexityAssessor{}
}

// Assess applies the rules in order. Each rule can only raise the level,
// except the advanced signal which overrides everything.
func (a *ComplexityAssessor) Assess(text string, intent domain.Intent) domain.ExperimentComplexity {
	level := domain.ComplexitySimple
	factors := domain.ComplexityFactors{
		VariableCount: 1,
		GroupCount:    2,
		MetricCount:   1,
	}

	if intent.Type == domain.IntentMultivariate || nlp.ContainsAny(text, multivariateSignals...) {
		factors.VariableCount = 2
		factors.GroupCount = 4
		level = raise(level, domain.ComplexityMedium)
	}

	if intent.Type == domain.IntentOrthogonal || nlp.ContainsAny(text, orthogonalSignals...) {
		factors.HasOrthogonality = true
		level = raise(level, domain.ComplexityComplex)
	}

	if intent.Type == domain.IntentStratified || nlp.ContainsAny(text, stratifySignals...) {
		factors.HasStratification = true
		if level == domain.ComplexitySimple {
			level = domain.ComplexityMedium
		} else {
			level = raise(level, domain.ComplexityComplex)
		}
	}

	if n := len(nlp.MentionedMetrics(text)); n > 0 {
		factors.MetricCount = n
		if n > 2 {
			level = raise(level, domain.ComplexityComplex)
		}
	}

	if nlp.ContainsAny(text, advancedSignals...) {
		level = domain.ComplexityAdvanced
	}

	return describeComplexity(level, factors)
}

// describeComplexity fills in the level-derived lookups
func describeComplexity(level domain.ComplexityLevel, factors domain.ComplexityFactors) domain.ExperimentComplexity {
	profile := levelProfiles[level]
	extra := extraDaysPerGroup * (factors.GroupCount - 2)
	if extra < 0 {
		extra = 0
	}
	return domain.ExperimentComplexity{
		Level:                       level,
		Factors:                     factors,
		EstimatedSetupTime:          profile.setupMinutes,
		RecommendedMinDuration:      profile.baseDays + extra,
		StatisticalPowerRequirement: profile.power,
	}
}

func raise(current, target domain.ComplexityLevel) domain.ComplexityLevel {
	if target.Rank() > current.Rank() {
		return target
	}
	return current
}
