package analyzer

import (
	"fmt"

	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

// requirement lists the structural needs of one intent type
type requirement struct {
	minModels            int
	requiresPrimary      bool
	requiresVariables    bool
	requiresSegmentation bool
	requiresBudget       bool
}

var requirements = map[domain.IntentType]requirement{
	domain.IntentComparison:   {minModels: 2, requiresPrimary: true},
	domain.IntentOptimization: {minModels: 1, requiresPrimary: true},
	domain.IntentExploration:  {minModels: 1},
	domain.IntentCostAnalysis: {minModels: 1, requiresPrimary: true, requiresBudget: true},
	domain.IntentMultivariate: {minModels: 1, requiresPrimary: true, requiresVariables: true},
	domain.IntentStratified:   {minModels: 1, requiresPrimary: true, requiresSegmentation: true},
	domain.IntentOrthogonal:   {minModels: 1, requiresPrimary: true, requiresVariables: true},
}

// minVariables is how many factors a multi-factor design needs
const minVariables = 2

// Defaults offered for missing fields
const (
	defaultMaxCost    = 1000.0
	defaultDailyLimit = 100.0
)

var (
	variableOptions     = []string{"model", "temperature", "top_p", "prompt"}
	segmentationOptions = []string{"user_tenure", "region", "time_segment", "device_type"}
	strategyOptions     = []string{nlp.SplitRandom, nlp.SplitHashBased, nlp.SplitStratified}
	trafficOptions      = []string{"50/50", "70/30", "80/20", "20/80"}

	defaultSegments = []domain.UserSegment{
		{Name: "新用户", Criteria: "tenure_days<30", TrafficRatio: 50},
		{Name: "老用户", Criteria: "tenure_days>=30", TrafficRatio: 50},
	}
)

// IdentifyMissingParams reports unmet mandatory requirements of the intent as
// required and absent nice-to-have fields as optional, each with a default.
func IdentifyMissingParams(
	params *domain.ExtractedParams,
	intent domain.IntentType,
	complexity domain.ExperimentComplexity,
	ctx *domain.EnhancedInputContext,
) domain.MissingParams {
	missing := domain.MissingParams{
		Required: make([]domain.FieldSpec, 0),
		Optional: make([]domain.FieldSpec, 0),
	}
	req, ok := requirements[intent]
	if !ok {
		req = requirements[domain.IntentComparison]
	}

	if len(params.Models) < req.minModels {
		missing.Required = append(missing.Required, domain.FieldSpec{
			Field:       "models",
			Description: fmt.Sprintf("%s至少需要%d个模型，当前识别到%d个", intentLabels[intent], req.minModels, len(params.Models)),
			Options:     cloneStrings(nlp.KnownModels),
			Default:     defaultModels(params.Models, req.minModels, ctx),
		})
	}

	primary := domain.FieldSpec{
		Field:       "primaryMetric",
		Description: "请指定实验的主要评估指标",
		Options:     cloneStrings(nlp.MetricIDs),
		Default:     defaultPrimaryMetric(intent),
	}
	if params.PrimaryMetric == "" {
		if req.requiresPrimary {
			missing.Required = append(missing.Required, primary)
		} else {
			missing.Optional = append(missing.Optional, primary)
		}
	}

	if req.requiresBudget && params.Budget.IsEmpty() {
		missing.Required = append(missing.Required, domain.FieldSpec{
			Field:       "budget",
			Description: "成本分析实验需要设置总预算",
			Default:     &domain.Budget{MaxCost: domain.FloatPtr(defaultMaxCost), DailyLimit: domain.FloatPtr(defaultDailyLimit)},
		})
	}

	if req.requiresVariables && len(params.Variables) < minVariables {
		missing.Required = append(missing.Required, domain.FieldSpec{
			Field:       "variables",
			Description: fmt.Sprintf("%s至少需要%d个测试变量", intentLabels[intent], minVariables),
			Options:     cloneStrings(variableOptions),
			Default:     defaultVariables(params),
		})
	}

	if req.requiresSegmentation && len(params.UserSegments) == 0 {
		missing.Required = append(missing.Required, domain.FieldSpec{
			Field:       "userSegments",
			Description: "分层实验需要定义至少一个用户分层",
			Options:     cloneStrings(segmentationOptions),
			Default:     append([]domain.UserSegment(nil), defaultSegments...),
		})
	}

	if len(params.TrafficRatio) == 0 {
		missing.Optional = append(missing.Optional, domain.FieldSpec{
			Field:       "trafficRatio",
			Description: "未指定流量分配，默认各组均分",
			Options:     cloneStrings(trafficOptions),
			Default:     evenSplit(params.GroupCount()),
		})
	}

	if params.Duration == nil || (params.Duration.MinDays == nil && params.Duration.MaxDays == nil) {
		rec := complexity.RecommendedMinDuration
		missing.Optional = append(missing.Optional, domain.FieldSpec{
			Field:       "duration",
			Description: fmt.Sprintf("未指定运行时长，建议至少运行%d天", rec),
			Default:     &domain.Duration{MinDays: domain.IntPtr(rec), MaxDays: domain.IntPtr(rec * 2)},
		})
	}

	if !req.requiresBudget && params.Budget.IsEmpty() {
		missing.Optional = append(missing.Optional, domain.FieldSpec{
			Field:       "budget",
			Description: "未设置预算，建议设置总预算和每日上限",
			Default:     &domain.Budget{MaxCost: domain.FloatPtr(defaultMaxCost), DailyLimit: domain.FloatPtr(defaultDailyLimit)},
		})
	}

	if intent.IsMultiFactor() && params.SplittingStrategy == "" {
		missing.Optional = append(missing.Optional, domain.FieldSpec{
			Field:       "splittingStrategy",
			Description: "多变量实验建议指定分流策略",
			Options:     cloneStrings(strategyOptions),
			Default:     nlp.SplitHashBased,
		})
	}

	return missing
}

// defaultModels pads the detected models up to n from the user's preferred
// models, then from the catalog
func defaultModels(current []string, n int, ctx *domain.EnhancedInputContext) []string {
	out := append([]string(nil), current...)
	var pool []string
	if ctx != nil && ctx.UserProfile != nil {
		pool = append(pool, ctx.UserProfile.PreferredModels...)
	}
	pool = append(pool, nlp.KnownModels...)

	for _, m := range pool {
		if len(out) >= n {
			break
		}
		if !containsString(out, m) {
			out = append(out, m)
		}
	}
	return out
}

func defaultPrimaryMetric(intent domain.IntentType) string {
	switch intent {
	case domain.IntentCostAnalysis:
		return "cost_per_conversation"
	case domain.IntentOptimization, domain.IntentMultivariate, domain.IntentOrthogonal:
		return "response_quality"
	default:
		return "user_satisfaction"
	}
}

func defaultVariables(params *domain.ExtractedParams) []domain.Variable {
	models := defaultModels(params.Models, 2, nil)
	return []domain.Variable{
		{Name: "model", Type: domain.VariableCategorical, Values: models},
		{Name: "temperature", Type: domain.VariableNumeric, Values: []string{"0.3", "0.7"}},
	}
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	return append([]string(nil), s...)
}
