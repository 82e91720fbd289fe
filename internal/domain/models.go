// Package domain contains the core domain models for the experiment designer.
// These models describe a design-time A/B experiment configuration; nothing here
// executes traffic splitting.
package domain

import (
	"math"
	"strings"
	"time"
)

// IntentType is the high-level category of experiment the user asked for
type IntentType string

const (
	IntentComparison   IntentType = "comparison"
	IntentOptimization IntentType = "optimization"
	IntentExploration  IntentType = "exploration"
	IntentCostAnalysis IntentType = "cost_analysis"
	IntentMultivariate IntentType = "multivariate"
	IntentStratified   IntentType = "stratified"
	IntentOrthogonal   IntentType = "orthogonal"
)

// IntentTypes lists every intent in declaration order. The order doubles as
// the tie-break priority of the classifier.
var IntentTypes = []IntentType{
	IntentComparison,
	IntentOptimization,
	IntentExploration,
	IntentCostAnalysis,
	IntentMultivariate,
	IntentStratified,
	IntentOrthogonal,
}

// ParseIntentType parses a string into an IntentType.
// Returns ok=false if the string doesn't match any known intent.
func ParseIntentType(s string) (IntentType, bool) {
	t := IntentType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range IntentTypes {
		if known == t {
			return t, true
		}
	}
	return "", false
}

// String returns the string representation of the intent type
func (t IntentType) String() string {
	return string(t)
}

// IsMultiFactor reports whether the intent designs more than one variable at once
func (t IntentType) IsMultiFactor() bool {
	return t == IntentMultivariate || t == IntentOrthogonal
}

// Intent is the classified purpose of a user utterance
type Intent struct {
	Type         IntentType   `json:"type"`
	Confidence   float64      `json:"confidence"`
	Description  string       `json:"description"`
	SubTypes     []string     `json:"subTypes,omitempty"`
	Alternatives []IntentType `json:"alternatives,omitempty"` // categories that tied on score
}

// VariableType distinguishes categorical levels from numeric ones
type VariableType string

const (
	VariableCategorical VariableType = "categorical"
	VariableNumeric     VariableType = "numeric"
)

// Variable is one experimental factor and its levels
type Variable struct {
	Name         string       `json:"name" yaml:"name"`
	Type         VariableType `json:"type" yaml:"type"`
	Values       []string     `json:"values" yaml:"values"`
	IsOrthogonal bool         `json:"isOrthogonal" yaml:"isOrthogonal"`
}

// UserSegment is one stratum of a stratified experiment
type UserSegment struct {
	Name         string `json:"name" yaml:"name"`
	Criteria     string `json:"criteria" yaml:"criteria"`
	TrafficRatio int    `json:"trafficRatio" yaml:"trafficRatio"`
}

// AutoStopCondition names a condition that ends an experiment early
type AutoStopCondition string

const (
	StopOnSignificance  AutoStopCondition = "statistical_significance"
	StopOnBudgetExhaust AutoStopCondition = "budget_exhausted"
	StopOnTargetSamples AutoStopCondition = "target_samples_reached"
)

// Duration holds run-length settings. Nil fields were not detected.
type Duration struct {
	MinDays            *int                `json:"minDays,omitempty" yaml:"minDays,omitempty"`
	MaxDays            *int                `json:"maxDays,omitempty" yaml:"maxDays,omitempty"`
	TargetSamples      *int                `json:"targetSamples,omitempty" yaml:"targetSamples,omitempty"`
	AutoStopConditions []AutoStopCondition `json:"autoStopConditions,omitempty" yaml:"autoStopConditions,omitempty"`
}

// IsEmpty reports whether no duration field was set
func (d *Duration) IsEmpty() bool {
	return d == nil || (d.MinDays == nil && d.MaxDays == nil && d.TargetSamples == nil && len(d.AutoStopConditions) == 0)
}

// Budget holds spend limits in the user's currency. Nil fields were not detected.
type Budget struct {
	MaxCost      *float64 `json:"maxCost,omitempty" yaml:"maxCost,omitempty"`
	DailyLimit   *float64 `json:"dailyLimit,omitempty" yaml:"dailyLimit,omitempty"`
	CostPerGroup *float64 `json:"costPerGroup,omitempty" yaml:"costPerGroup,omitempty"`
}

// IsEmpty reports whether no budget field was set
func (b *Budget) IsEmpty() bool {
	return b == nil || (b.MaxCost == nil && b.DailyLimit == nil && b.CostPerGroup == nil)
}

// GenerationStrategy tells callers how to surface a draft experiment
type GenerationStrategy string

const (
	StrategyAutoGenerate         GenerationStrategy = "auto_generate"
	StrategyGenerateWithConfirm  GenerationStrategy = "generate_with_confirmation"
	StrategyRequestClarification GenerationStrategy = "request_clarification"
)

// ConfidenceBreakdown splits the overall confidence into per-stage estimates
type ConfidenceBreakdown struct {
	IntentRecognition     float64            `json:"intentRecognition"`
	ParameterExtraction   float64            `json:"parameterExtraction"`
	ConfigurationValidity float64            `json:"configurationValidity"`
	Strategy              GenerationStrategy `json:"strategy"`
}

// ExtractedParams is the sparse experiment configuration derived from text.
// Every field is independently optional; absence means "not detected".
type ExtractedParams struct {
	Name                     string               `json:"name,omitempty" yaml:"name,omitempty"`
	Description              string               `json:"description,omitempty" yaml:"description,omitempty"`
	Models                   []string             `json:"models,omitempty" yaml:"models,omitempty"`
	Prompts                  []string             `json:"prompts,omitempty" yaml:"prompts,omitempty"`
	Temperatures             []float64            `json:"temperatures,omitempty" yaml:"temperatures,omitempty"`
	TopP                     []float64            `json:"topP,omitempty" yaml:"topP,omitempty"`
	MaxTokens                []int                `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`
	TrafficRatio             []int                `json:"trafficRatio,omitempty" yaml:"trafficRatio,omitempty"`
	SplittingStrategy        string               `json:"splittingStrategy,omitempty" yaml:"splittingStrategy,omitempty"`
	StratificationDimensions []string             `json:"stratificationDimensions,omitempty" yaml:"stratificationDimensions,omitempty"`
	Duration                 *Duration            `json:"duration,omitempty" yaml:"duration,omitempty"`
	Budget                   *Budget              `json:"budget,omitempty" yaml:"budget,omitempty"`
	PrimaryMetric            string               `json:"primaryMetric,omitempty" yaml:"primaryMetric,omitempty"`
	SecondaryMetrics         []string             `json:"secondaryMetrics,omitempty" yaml:"secondaryMetrics,omitempty"`
	Variables                []Variable           `json:"variables,omitempty" yaml:"variables,omitempty"`
	UserSegments             []UserSegment        `json:"userSegments,omitempty" yaml:"userSegments,omitempty"`
	ExtractionConfidence     float64              `json:"extractionConfidence" yaml:"extractionConfidence"`
	ConfidenceBreakdown      *ConfidenceBreakdown `json:"confidenceBreakdown,omitempty" yaml:"-"`
}

// Clone returns a deep copy so callers can patch a result without touching the original
func (p *ExtractedParams) Clone() *ExtractedParams {
	if p == nil {
		return nil
	}
	c := *p
	c.Models = cloneSlice(p.Models)
	c.Prompts = cloneSlice(p.Prompts)
	c.Temperatures = cloneSlice(p.Temperatures)
	c.TopP = cloneSlice(p.TopP)
	c.MaxTokens = cloneSlice(p.MaxTokens)
	c.TrafficRatio = cloneSlice(p.TrafficRatio)
	c.StratificationDimensions = cloneSlice(p.StratificationDimensions)
	c.SecondaryMetrics = cloneSlice(p.SecondaryMetrics)
	c.UserSegments = cloneSlice(p.UserSegments)
	if p.Variables != nil {
		c.Variables = make([]Variable, len(p.Variables))
		for i, v := range p.Variables {
			v.Values = cloneSlice(v.Values)
			c.Variables[i] = v
		}
	}
	if p.Duration != nil {
		d := Duration{
			MinDays:            clonePtr(p.Duration.MinDays),
			MaxDays:            clonePtr(p.Duration.MaxDays),
			TargetSamples:      clonePtr(p.Duration.TargetSamples),
			AutoStopConditions: cloneSlice(p.Duration.AutoStopConditions),
		}
		c.Duration = &d
	}
	if p.Budget != nil {
		b := Budget{
			MaxCost:      clonePtr(p.Budget.MaxCost),
			DailyLimit:   clonePtr(p.Budget.DailyLimit),
			CostPerGroup: clonePtr(p.Budget.CostPerGroup),
		}
		c.Budget = &b
	}
	if p.ConfidenceBreakdown != nil {
		cb := *p.ConfidenceBreakdown
		c.ConfidenceBreakdown = &cb
	}
	return &c
}

// MaxCombinationGroups is the largest factorial design that is enumerated
const MaxCombinationGroups = 256

// CombinationCount returns the product of every variable's level count,
// saturating at math.MaxInt. Zero variables or an empty level list yields zero.
func (p *ExtractedParams) CombinationCount() int {
	if p == nil || len(p.Variables) == 0 {
		return 0
	}
	total := 1
	for _, v := range p.Variables {
		n := len(v.Values)
		if n == 0 {
			return 0
		}
		if total > math.MaxInt/n {
			return math.MaxInt
		}
		total *= n
	}
	return total
}

// GroupCount estimates how many treatment groups the configuration implies
func (p *ExtractedParams) GroupCount() int {
	groups := len(p.Models)
	if n := len(p.TrafficRatio); n > groups {
		groups = n
	}
	if n := p.CombinationCount(); n > groups {
		groups = n
	}
	if groups < 2 {
		groups = 2
	}
	return groups
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 { return &v }

// FieldSpec describes a parameter the caller still has to supply
type FieldSpec struct {
	Field       string   `json:"field"`
	Description string   `json:"description"`
	Options     []string `json:"options,omitempty"`
	Default     any      `json:"default"`
}

// MissingParams separates mandatory gaps from nice-to-have ones
type MissingParams struct {
	Required []FieldSpec `json:"required"`
	Optional []FieldSpec `json:"optional"`
}

// ComplexityLevel tiers an experiment design
type ComplexityLevel string

const (
	ComplexitySimple   ComplexityLevel = "simple"
	ComplexityMedium   ComplexityLevel = "medium"
	ComplexityComplex  ComplexityLevel = "complex"
	ComplexityAdvanced ComplexityLevel = "advanced"
)

// Rank returns the ordinal of the level, simple=0
func (l ComplexityLevel) Rank() int {
	switch l {
	case ComplexityMedium:
		return 1
	case ComplexityComplex:
		return 2
	case ComplexityAdvanced:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether l is the same tier as other or higher
func (l ComplexityLevel) AtLeast(other ComplexityLevel) bool {
	return l.Rank() >= other.Rank()
}

// ComplexityFactors are the structural cues the assessor found
type ComplexityFactors struct {
	VariableCount     int  `json:"variableCount"`
	GroupCount        int  `json:"groupCount"`
	MetricCount       int  `json:"metricCount"`
	HasStratification bool `json:"hasStratification"`
	HasOrthogonality  bool `json:"hasOrthogonality"`
}

// ExperimentComplexity is the assessor's verdict
type ExperimentComplexity struct {
	Level                       ComplexityLevel   `json:"level"`
	Factors                     ComplexityFactors `json:"factors"`
	EstimatedSetupTime          int               `json:"estimatedSetupTime"`     // minutes
	RecommendedMinDuration      int               `json:"recommendedMinDuration"` // days
	StatisticalPowerRequirement float64           `json:"statisticalPowerRequirement"`
}

// ParseResult is the sole output contract of the parsing pipeline
type ParseResult struct {
	Intent          Intent                `json:"intent"`
	ExtractedParams *ExtractedParams      `json:"extractedParams"`
	MissingParams   MissingParams         `json:"missingParams"`
	Suggestions     []string              `json:"suggestions"`
	Errors          []string              `json:"errors"`
	Complexity      *ExperimentComplexity `json:"complexity,omitempty"`
}

// ExperimentTemplate is a read-only catalog entry
type ExperimentTemplate struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Intent      IntentType      `json:"intent" yaml:"intent"`
	Params      ExtractedParams `json:"params" yaml:"params"`
	Examples    []string        `json:"examples" yaml:"examples"`
}

// VariableCombination is one concrete treatment group
type VariableCombination struct {
	ID                   string            `json:"id"`
	Variables            map[string]string `json:"variables"`
	ExpectedTrafficRatio float64           `json:"expectedTrafficRatio"`
	GroupName            string            `json:"groupName"`
	Description          string            `json:"description"`
	IsControl            bool              `json:"isControl"`
}

// ExperienceLevel is how familiar the user is with experimentation
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceExpert       ExperienceLevel = "expert"
)

// UserProfile carries history used to personalise parsing
type UserProfile struct {
	ExperienceLevel       ExperienceLevel `json:"experienceLevel,omitempty" yaml:"experienceLevel,omitempty"`
	CommonExperimentTypes []IntentType    `json:"commonExperimentTypes,omitempty" yaml:"commonExperimentTypes,omitempty"`
	PreferredModels       []string        `json:"preferredModels,omitempty" yaml:"preferredModels,omitempty"`
}

// BusinessContext carries seasonality hints
type BusinessContext struct {
	Industry     string `json:"industry,omitempty" yaml:"industry,omitempty"`
	IsPeakSeason bool   `json:"isPeakSeason,omitempty" yaml:"isPeakSeason,omitempty"`
}

// EnhancedInputContext is optional metadata supplied next to the utterance.
// Timestamp is the caller's clock; the parser never reads the wall clock.
type EnhancedInputContext struct {
	UserProfile     *UserProfile     `json:"userProfile,omitempty" yaml:"userProfile,omitempty"`
	BusinessContext *BusinessContext `json:"businessContext,omitempty" yaml:"businessContext,omitempty"`
	Timestamp       time.Time        `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// IsWeekend reports whether the caller-supplied timestamp falls on a weekend
func (c *EnhancedInputContext) IsWeekend() bool {
	if c == nil || c.Timestamp.IsZero() {
		return false
	}
	wd := c.Timestamp.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SuggestionPriority orders intelligent suggestions
type SuggestionPriority string

const (
	PriorityHigh   SuggestionPriority = "high"
	PriorityMedium SuggestionPriority = "medium"
	PriorityLow    SuggestionPriority = "low"
)

// Rank returns 0 for high, 1 for medium, 2 for low
func (p SuggestionPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// IntelligentSuggestion is structured advice about a configuration
type IntelligentSuggestion struct {
	Type                 string             `json:"type"` // optimization, warning, recommendation, insight
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	Confidence           float64            `json:"confidence"`
	Priority             SuggestionPriority `json:"priority"`
	Category             string             `json:"category"`
	Impact               string             `json:"impact"`
	ImplementationEffort string             `json:"implementationEffort"`
	RelatedParams        []string           `json:"relatedParams,omitempty"`
}

// QualityAssessment is the 0-100 audit of a finished configuration
type QualityAssessment struct {
	Score           int      `json:"score"`
	Feedback        []string `json:"feedback"`
	Recommendations []string `json:"recommendations"`
}
