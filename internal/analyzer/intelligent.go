package analyzer

import (
	"fmt"
	"sort"

	"github.com/experiment-designer/internal/domain"
)

// maxIntelligentSuggestions caps the structured advice list
const maxIntelligentSuggestions = 6

// Sizing heuristics for the advice rules
const (
	samplesPerGroup      = 1000
	minPoweredShare      = 10
	maxRecommendedModels = 4
	sequentialMinDays    = 14
)

// Suggestion kinds
const (
	kindOptimization   = "optimization"
	kindWarning        = "warning"
	kindRecommendation = "recommendation"
	kindInsight        = "insight"
)

// intelligentRule inspects a configuration and may emit advice
type intelligentRule func(p *domain.ExtractedParams, ctx *domain.EnhancedInputContext) []domain.IntelligentSuggestion

var intelligentRules = []intelligentRule{
	modelCountAdvice,
	statisticalPowerAdvice,
	sampleSizeAdvice,
	variableInteractionAdvice,
	budgetAdvice,
	segmentationAdvice,
	sequentialTestingAdvice,
	riskMitigationAdvice,
}

// GetIntelligentSuggestions runs every advice rule, sorts by priority then
// confidence and keeps the top six
func GetIntelligentSuggestions(params *domain.ExtractedParams, ctx *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	out := make([]domain.IntelligentSuggestion, 0)
	if params == nil {
		return out
	}
	for _, rule := range intelligentRules {
		out = append(out, rule(params, ctx)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if pi != pj {
			return pi < pj
		}
		return out[i].Confidence > out[j].Confidence
	})

	if len(out) > maxIntelligentSuggestions {
		out = out[:maxIntelligentSuggestions]
	}
	return out
}

func modelCountAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	switch {
	case len(p.Models) < 2 && len(p.Variables) == 0:
		return []domain.IntelligentSuggestion{{
			Type:                 kindRecommendation,
			Title:                "增加对照模型",
			Description:          "当前只有一个模型，缺少对照组，建议至少加入一个基线模型进行对比",
			Confidence:           0.85,
			Priority:             domain.PriorityHigh,
			Category:             "model_selection",
			Impact:               "提升对比结论的可靠性",
			ImplementationEffort: "low",
			RelatedParams:        []string{"models"},
		}}
	case len(p.Models) > maxRecommendedModels:
		return []domain.IntelligentSuggestion{{
			Type:                 kindWarning,
			Title:                "模型数量过多",
			Description:          fmt.Sprintf("同时测试%d个模型会稀释每组流量，建议先筛选到%d个以内", len(p.Models), maxRecommendedModels),
			Confidence:           0.75,
			Priority:             domain.PriorityMedium,
			Category:             "model_selection",
			Impact:               "缩短实验达到显著性的时间",
			ImplementationEffort: "low",
			RelatedParams:        []string{"models", "trafficRatio"},
		}}
	}
	return nil
}

func statisticalPowerAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	for _, share := range p.TrafficRatio {
		if share < minPoweredShare {
			return []domain.IntelligentSuggestion{{
				Type:                 kindWarning,
				Title:                "统计功效不足",
				Description:          fmt.Sprintf("存在流量占比仅%d%%的分组，可能无法在合理时间内检测到显著差异", share),
				Confidence:           0.8,
				Priority:             domain.PriorityHigh,
				Category:             "statistics",
				Impact:               "避免得出无效或误导性的结论",
				ImplementationEffort: "low",
				RelatedParams:        []string{"trafficRatio"},
			}}
		}
	}
	return nil
}

func sampleSizeAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	needed := samplesPerGroup * p.GroupCount()
	if p.Duration == nil || p.Duration.TargetSamples == nil {
		return []domain.IntelligentSuggestion{{
			Type:                 kindRecommendation,
			Title:                "设置目标样本量",
			Description:          fmt.Sprintf("建议设置目标样本量，按当前分组数至少需要约%d个样本", needed),
			Confidence:           0.7,
			Priority:             domain.PriorityMedium,
			Category:             "statistics",
			Impact:               "明确实验结束条件",
			ImplementationEffort: "low",
			RelatedParams:        []string{"duration.targetSamples"},
		}}
	}
	if *p.Duration.TargetSamples < needed {
		return []domain.IntelligentSuggestion{{
			Type:                 kindWarning,
			Title:                "样本量可能不足",
			Description:          fmt.Sprintf("目标样本量%d低于建议的%d，结论的置信度可能不足", *p.Duration.TargetSamples, needed),
			Confidence:           0.85,
			Priority:             domain.PriorityHigh,
			Category:             "statistics",
			Impact:               "保证实验结论的统计显著性",
			ImplementationEffort: "medium",
			RelatedParams:        []string{"duration.targetSamples"},
		}}
	}
	return nil
}

func variableInteractionAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	if len(p.Variables) < 2 {
		return nil
	}
	orthogonal := true
	for _, v := range p.Variables {
		if !v.IsOrthogonal {
			orthogonal = false
			break
		}
	}
	if orthogonal {
		return []domain.IntelligentSuggestion{{
			Type:                 kindInsight,
			Title:                "可评估交互效应",
			Description:          "正交设计覆盖了所有变量组合，可以分析变量之间的交互效应",
			Confidence:           0.6,
			Priority:             domain.PriorityLow,
			Category:             "design",
			Impact:               "发现变量组合带来的额外收益",
			ImplementationEffort: "medium",
			RelatedParams:        []string{"variables"},
		}}
	}
	return []domain.IntelligentSuggestion{{
		Type:                 kindInsight,
		Title:                "考虑变量交互效应",
		Description:          "多个变量可能相互影响，建议采用正交设计以分离各变量的独立效应",
		Confidence:           0.7,
		Priority:             domain.PriorityMedium,
		Category:             "design",
		Impact:               "避免变量混杂导致的错误归因",
		ImplementationEffort: "medium",
		RelatedParams:        []string{"variables"},
	}}
}

func budgetAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	b := p.Budget
	if b.IsEmpty() {
		return []domain.IntelligentSuggestion{{
			Type:                 kindRecommendation,
			Title:                "设置预算上限",
			Description:          "未设置预算，建议设置总预算以避免调用成本失控",
			Confidence:           0.75,
			Priority:             domain.PriorityMedium,
			Category:             "cost",
			Impact:               "控制实验成本",
			ImplementationEffort: "low",
			RelatedParams:        []string{"budget.maxCost"},
		}}
	}
	if b.CostPerGroup != nil && b.MaxCost != nil && *b.CostPerGroup*float64(p.GroupCount()) > *b.MaxCost {
		return []domain.IntelligentSuggestion{{
			Type:                 kindWarning,
			Title:                "分组预算超出总预算",
			Description:          fmt.Sprintf("每组预算%s乘以%d组超过总预算%s", formatAmount(*b.CostPerGroup), p.GroupCount(), formatAmount(*b.MaxCost)),
			Confidence:           0.9,
			Priority:             domain.PriorityHigh,
			Category:             "cost",
			Impact:               "避免实验中途因预算耗尽而中断",
			ImplementationEffort: "low",
			RelatedParams:        []string{"budget.costPerGroup", "budget.maxCost"},
		}}
	}
	if b.MaxCost != nil && b.DailyLimit == nil {
		return []domain.IntelligentSuggestion{{
			Type:                 kindOptimization,
			Title:                "设置每日预算",
			Description:          "建议将总预算拆分为每日上限，使成本在实验周期内均匀分布",
			Confidence:           0.65,
			Priority:             domain.PriorityLow,
			Category:             "cost",
			Impact:               "平滑成本曲线",
			ImplementationEffort: "low",
			RelatedParams:        []string{"budget.dailyLimit"},
		}}
	}
	return nil
}

func segmentationAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	if len(p.UserSegments) > 0 {
		total := 0
		for _, s := range p.UserSegments {
			total += s.TrafficRatio
		}
		if total != 100 {
			return []domain.IntelligentSuggestion{{
				Type:                 kindWarning,
				Title:                "分层流量不完整",
				Description:          fmt.Sprintf("用户分层流量合计为%d%%，部分用户可能未被覆盖", total),
				Confidence:           0.8,
				Priority:             domain.PriorityMedium,
				Category:             "segmentation",
				Impact:               "保证各分层结果可比",
				ImplementationEffort: "low",
				RelatedParams:        []string{"userSegments"},
			}}
		}
		return nil
	}
	if len(p.Models) >= 2 {
		return []domain.IntelligentSuggestion{{
			Type:                 kindInsight,
			Title:                "考虑用户分层",
			Description:          "不同用户群体对模型的偏好可能不同，可以按新老用户分层分析结果",
			Confidence:           0.55,
			Priority:             domain.PriorityLow,
			Category:             "segmentation",
			Impact:               "发现细分人群的差异化表现",
			ImplementationEffort: "medium",
			RelatedParams:        []string{"userSegments", "stratificationDimensions"},
		}}
	}
	return nil
}

func sequentialTestingAdvice(p *domain.ExtractedParams, _ *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	d := p.Duration
	if d == nil || d.MaxDays == nil || *d.MaxDays < sequentialMinDays {
		return nil
	}
	for _, c := range d.AutoStopConditions {
		if c == domain.StopOnSignificance {
			return nil
		}
	}
	return []domain.IntelligentSuggestion{{
		Type:                 kindOptimization,
		Title:                "启用序贯检验",
		Description:          fmt.Sprintf("实验周期长达%d天，建议启用序贯检验，在达到统计显著时提前结束", *d.MaxDays),
		Confidence:           0.7,
		Priority:             domain.PriorityMedium,
		Category:             "statistics",
		Impact:               "缩短实验周期并节省成本",
		ImplementationEffort: "medium",
		RelatedParams:        []string{"duration.autoStopConditions"},
	}}
}

func riskMitigationAdvice(p *domain.ExtractedParams, ctx *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	var out []domain.IntelligentSuggestion
	if ctx != nil && ctx.BusinessContext != nil && ctx.BusinessContext.IsPeakSeason {
		out = append(out, domain.IntelligentSuggestion{
			Type:                 kindWarning,
			Title:                "高峰期实验风险",
			Description:          "业务高峰期进行实验可能影响核心指标，建议降低实验组流量或推迟实验",
			Confidence:           0.8,
			Priority:             domain.PriorityHigh,
			Category:             "risk",
			Impact:               "降低对线上业务的影响",
			ImplementationEffort: "low",
			RelatedParams:        []string{"trafficRatio"},
		})
	}

	hasStop := p.Duration != nil && len(p.Duration.AutoStopConditions) > 0
	hasDaily := p.Budget != nil && p.Budget.DailyLimit != nil
	if !hasStop && !hasDaily {
		priority := domain.PriorityMedium
		if ctx != nil && ctx.UserProfile != nil && ctx.UserProfile.ExperienceLevel == domain.ExperienceBeginner {
			priority = domain.PriorityHigh
		}
		out = append(out, domain.IntelligentSuggestion{
			Type:                 kindRecommendation,
			Title:                "设置风险控制",
			Description:          "建议设置自动停止条件或每日预算上限，防止异常情况持续扩大",
			Confidence:           0.72,
			Priority:             priority,
			Category:             "risk",
			Impact:               "及时止损",
			ImplementationEffort: "low",
			RelatedParams:        []string{"duration.autoStopConditions", "budget.dailyLimit"},
		})
	}
	return out
}
