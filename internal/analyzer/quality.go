package analyzer

import (
	"fmt"

	"github.com/experiment-designer/internal/domain"
)

// Rubric points. Completeness is worth 60, advanced configuration 25 and
// risk control 15.
const (
	pointsModels        = 15
	pointsSingleModel   = 8
	pointsTraffic       = 10
	pointsPrimaryMetric = 15
	pointsDuration      = 10
	pointsBudget        = 10

	pointsAdvanced = 5
	pointsRisk     = 5

	riskMinSamples = 1000
	riskMinDays    = 7
)

// AssessConfigurationQuality audits a finished configuration on a 0-100 scale
func AssessConfigurationQuality(params *domain.ExtractedParams, intent domain.IntentType) domain.QualityAssessment {
	qa := domain.QualityAssessment{
		Feedback:        make([]string, 0),
		Recommendations: make([]string, 0),
	}
	if params == nil {
		qa.Recommendations = append(qa.Recommendations, "请先提供实验配置")
		return qa
	}

	score := 0
	good := func(points int, feedback string) {
		score += points
		qa.Feedback = append(qa.Feedback, feedback)
	}
	recommend := func(r string) {
		qa.Recommendations = append(qa.Recommendations, r)
	}

	// completeness
	switch n := len(params.Models); {
	case n >= 2:
		good(pointsModels, fmt.Sprintf("✓ 已配置%d个对比模型", n))
	case n == 1:
		good(pointsSingleModel, "✓ 已配置1个模型")
		recommend("添加至少一个对照模型以形成有效对比")
	default:
		recommend("请选择参与实验的模型")
	}
	if len(params.TrafficRatio) > 0 {
		good(pointsTraffic, "✓ 已设置流量分配")
	} else {
		recommend("设置各组的流量分配比例")
	}
	if params.PrimaryMetric != "" {
		good(pointsPrimaryMetric, fmt.Sprintf("✓ 主要指标: %s", params.PrimaryMetric))
	} else {
		recommend("明确实验的主要评估指标")
	}
	if d := params.Duration; d != nil && (d.MinDays != nil || d.MaxDays != nil) {
		good(pointsDuration, "✓ 已设置运行时长")
	} else {
		recommend("设置实验运行时长")
	}
	if !params.Budget.IsEmpty() {
		good(pointsBudget, "✓ 已设置预算")
	} else {
		recommend("设置实验预算以控制成本")
	}

	// advanced configuration
	if len(params.SecondaryMetrics) > 0 {
		good(pointsAdvanced, fmt.Sprintf("✓ 配置了%d个次要指标", len(params.SecondaryMetrics)))
	}
	if len(params.Variables) > 0 {
		good(pointsAdvanced, fmt.Sprintf("✓ 定义了%d个测试变量", len(params.Variables)))
	} else if intent.IsMultiFactor() {
		recommend("多变量实验需要定义测试变量")
	}
	if len(params.UserSegments) > 0 {
		good(pointsAdvanced, "✓ 配置了用户分层")
	} else if intent == domain.IntentStratified {
		recommend("分层实验需要定义用户分层")
	}
	if params.SplittingStrategy != "" {
		good(pointsAdvanced, fmt.Sprintf("✓ 分流策略: %s", params.SplittingStrategy))
	}
	if params.Duration != nil && len(params.Duration.AutoStopConditions) > 0 {
		good(pointsAdvanced, "✓ 设置了自动停止条件")
	} else {
		recommend("添加自动停止条件（如达到统计显著）")
	}

	// risk control
	if params.Budget != nil && params.Budget.DailyLimit != nil {
		good(pointsRisk, "✓ 设置了每日预算上限")
	} else {
		recommend("设置每日预算上限以控制风险")
	}
	if params.Duration != nil && params.Duration.TargetSamples != nil && *params.Duration.TargetSamples >= riskMinSamples {
		good(pointsRisk, "✓ 目标样本量充足")
	} else {
		recommend(fmt.Sprintf("设置不少于%d的目标样本量", riskMinSamples))
	}
	if params.Duration != nil && params.Duration.MinDays != nil && *params.Duration.MinDays >= riskMinDays {
		good(pointsRisk, "✓ 运行周期覆盖完整一周")
	} else {
		recommend(fmt.Sprintf("建议实验至少运行%d天以覆盖周期性波动", riskMinDays))
	}

	if score > 100 {
		score = 100
	}
	qa.Score = score
	return qa
}
