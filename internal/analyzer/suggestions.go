package analyzer

import (
	"fmt"
	"strings"

	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

// maxSuggestions caps the plain-text suggestion list
const maxSuggestions = 5

// Budget advice thresholds
const (
	lowBudgetThreshold  = 100.0
	highBudgetThreshold = 10000.0
	manyCombinations    = 8
)

var newFeatureKeywords = []string{"新功能", "新版本", "new feature", "new version"}

// GenerateSuggestions produces priority-ordered advice, capped at five
func GenerateSuggestions(
	in nlp.Input,
	params *domain.ExtractedParams,
	intent domain.Intent,
	complexity domain.ExperimentComplexity,
	ctx *domain.EnhancedInputContext,
) []string {
	suggestions := make([]string, 0, maxSuggestions)
	add := func(s string) {
		suggestions = append(suggestions, s)
	}

	switch {
	case params.ExtractionConfidence >= highConfidenceThreshold:
		add("参数提取完整，可以直接生成实验配置")
	case params.ExtractionConfidence >= moderateConfidenceThreshold:
		add("已识别主要参数，请确认后生成实验")
	default:
		add("描述信息不足，请补充模型、流量分配和评估指标等信息")
	}

	if len(params.Models) == 1 && len(params.Variables) == 0 {
		add("只检测到一个模型，建议添加对照模型或测试变量")
	}

	if isEvenPair(params.TrafficRatio) && nlp.ContainsAny(in.Normalized, newFeatureKeywords...) {
		add("新功能测试建议先采用小流量（如20/80）降低风险")
	}

	if len(params.Models) >= 2 && len(params.TrafficRatio) > 0 && len(params.Models) != len(params.TrafficRatio) && len(params.Variables) == 0 {
		add(fmt.Sprintf("模型数量(%d)与流量分配组数(%d)不一致，将自动调整为均分流量", len(params.Models), len(params.TrafficRatio)))
	}

	if b := params.Budget; b != nil && b.MaxCost != nil {
		switch {
		case *b.MaxCost < lowBudgetThreshold:
			add("预算较低，可能无法获得统计显著的结果，建议提高预算")
		case *b.MaxCost > highBudgetThreshold && b.DailyLimit == nil:
			add("预算较高，建议设置每日预算上限以控制风险")
		}
	}

	if d := params.Duration; d != nil && d.MinDays != nil && *d.MinDays < complexity.RecommendedMinDuration {
		add(fmt.Sprintf("当前运行时长%d天短于推荐的%d天，建议延长实验周期", *d.MinDays, complexity.RecommendedMinDuration))
	}

	if n := params.CombinationCount(); n > manyCombinations {
		add(fmt.Sprintf("变量组合数较多(%d组)，建议减少变量水平或采用部分因子设计", n))
	}

	if costFocused(params, intent.Type) && !hasSuccessMetric(params) {
		add("仅关注成本指标，建议同时设置效果类指标（如满意度或准确率）")
	}

	for _, s := range contextSuggestions(params, complexity, ctx) {
		add(s)
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

func contextSuggestions(params *domain.ExtractedParams, complexity domain.ExperimentComplexity, ctx *domain.EnhancedInputContext) []string {
	if ctx == nil {
		return nil
	}
	var out []string

	if p := ctx.UserProfile; p != nil {
		switch p.ExperienceLevel {
		case domain.ExperienceBeginner:
			out = append(out, "建议从简单的A/B对比开始，熟悉后再尝试多变量实验")
		case domain.ExperienceExpert:
			if complexity.Level == domain.ComplexitySimple {
				out = append(out, "可以考虑多变量或分层设计以获得更多洞察")
			}
		}
		var unused []string
		for _, m := range p.PreferredModels {
			if !containsString(params.Models, m) {
				unused = append(unused, m)
			}
		}
		if len(unused) > 0 && len(params.Models) < 2 {
			out = append(out, fmt.Sprintf("可考虑加入您常用的模型: %s", strings.Join(unused, ", ")))
		}
	}

	if ctx.IsWeekend() {
		out = append(out, "当前为周末，用户行为可能与工作日不同，建议覆盖完整的一周")
	}
	if ctx.BusinessContext != nil && ctx.BusinessContext.IsPeakSeason {
		out = append(out, "当前为业务高峰期，建议降低实验流量比例以控制风险")
	}
	return out
}

func isEvenPair(ratio []int) bool {
	return len(ratio) == 2 && ratio[0] == 50 && ratio[1] == 50
}

func costFocused(params *domain.ExtractedParams, intent domain.IntentType) bool {
	return nlp.IsCostMetric(params.PrimaryMetric) || (intent == domain.IntentCostAnalysis && params.PrimaryMetric == "")
}

func hasSuccessMetric(params *domain.ExtractedParams) bool {
	if params.PrimaryMetric != "" && !nlp.IsCostMetric(params.PrimaryMetric) {
		return true
	}
	for _, m := range params.SecondaryMetrics {
		if !nlp.IsCostMetric(m) {
			return true
		}
	}
	return false
}
