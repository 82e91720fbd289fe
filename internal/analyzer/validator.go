package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

// Validation limits
const (
	minInputRunes    = 5
	maxDurationDays  = 365
	minTargetSamples = 100
	maxCombinations  = 16
	minTemperature   = 0.0
	maxTemperature   = 2.0
	minTopP          = 0.0
	maxTopP          = 1.0
)

// ShortInputMessage is reported when the utterance is too short to parse
const ShortInputMessage = "输入描述过短，请至少提供5个字符的实验描述"

// Validator checks a synthesized configuration. Problems are returned as
// messages and never as Go errors.
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs every structural check against params
func (v *Validator) Validate(in nlp.Input, params *domain.ExtractedParams, intent domain.IntentType) []string {
	errs := make([]string, 0)

	if in.Len() < minInputRunes {
		errs = append(errs, ShortInputMessage)
	}

	errs = append(errs, v.ValidateParams(params, intent)...)
	return errs
}

// ValidateParams checks a configuration regardless of where it came from
func (v *Validator) ValidateParams(params *domain.ExtractedParams, intent domain.IntentType) []string {
	var errs []string
	if params == nil {
		return errs
	}

	if len(params.TrafficRatio) > 0 {
		errs = append(errs, v.ValidateTrafficRatio(params.TrafficRatio)...)
	}
	errs = append(errs, validateBudget(params.Budget)...)
	errs = append(errs, validateDuration(params.Duration)...)

	for _, m := range params.Models {
		if !nlp.IsKnownModel(m) {
			errs = append(errs, fmt.Sprintf("未知模型: %s", m))
		}
	}

	if bad := outOfRange(params.Temperatures, minTemperature, maxTemperature); len(bad) > 0 {
		errs = append(errs, fmt.Sprintf("temperature取值超出范围[0,2]: %s", strings.Join(bad, ", ")))
	}
	if bad := outOfRange(params.TopP, minTopP, maxTopP); len(bad) > 0 {
		errs = append(errs, fmt.Sprintf("top_p取值超出范围[0,1]: %s", strings.Join(bad, ", ")))
	}

	combos := params.CombinationCount()
	if intent.IsMultiFactor() && len(params.Variables) < minVariables {
		errs = append(errs, fmt.Sprintf("多变量实验至少需要%d个变量，当前为%d个", minVariables, len(params.Variables)))
	}
	if combos > maxCombinations {
		errs = append(errs, fmt.Sprintf("变量组合数(%d)过多，建议不超过%d组", combos, maxCombinations))
	}
	if intent.IsMultiFactor() && combos > 0 && len(params.TrafficRatio) > 0 && len(params.TrafficRatio) != combos {
		errs = append(errs, fmt.Sprintf("流量分配组数(%d)与变量组合数(%d)不一致", len(params.TrafficRatio), combos))
	}

	if intent == domain.IntentStratified {
		if len(params.UserSegments) == 0 {
			errs = append(errs, "分层实验至少需要1个用户分层")
		} else {
			total := 0
			for _, s := range params.UserSegments {
				total += s.TrafficRatio
			}
			if !nlp.WithinTolerance(total) {
				errs = append(errs, fmt.Sprintf("用户分层流量总和为%d%%，应接近100%%", total))
			}
		}
	}

	if intent == domain.IntentCostAnalysis {
		if params.Budget.IsEmpty() {
			errs = append(errs, "成本分析实验需要设置预算")
		}
		if !nlp.IsCostMetric(params.PrimaryMetric) {
			errs = append(errs, "成本分析实验的主要指标应为成本类指标（如cost_per_conversation）")
		}
	}

	return errs
}

// ValidateTrafficRatio checks the sum tolerance and per-group bounds
func (v *Validator) ValidateTrafficRatio(ratio []int) []string {
	var errs []string
	if len(ratio) == 0 {
		return errs
	}
	total := 0
	for i, r := range ratio {
		total += r
		if r < nlp.MinGroupShare || r > nlp.MaxGroupShare {
			errs = append(errs, fmt.Sprintf("第%d组流量比例%d%%超出范围，应在%d%%到%d%%之间", i+1, r, nlp.MinGroupShare, nlp.MaxGroupShare))
		}
	}
	if !nlp.WithinTolerance(total) {
		errs = append(errs, fmt.Sprintf("流量分配总和为%d%%，应接近100%%", total))
	}
	return errs
}

func validateBudget(b *domain.Budget) []string {
	var errs []string
	if b == nil {
		return errs
	}
	if b.MaxCost != nil && *b.MaxCost <= 0 {
		errs = append(errs, "总预算必须大于0")
	}
	if b.MaxCost != nil && b.DailyLimit != nil && *b.DailyLimit > *b.MaxCost {
		errs = append(errs, fmt.Sprintf("每日预算限额(%s)不能超过总预算(%s)", formatAmount(*b.DailyLimit), formatAmount(*b.MaxCost)))
	}
	return errs
}

func validateDuration(d *domain.Duration) []string {
	var errs []string
	if d == nil {
		return errs
	}
	if d.MinDays != nil && *d.MinDays < 1 {
		errs = append(errs, "最短运行天数必须至少为1天")
	}
	if d.MaxDays != nil && *d.MaxDays > maxDurationDays {
		errs = append(errs, fmt.Sprintf("最长运行天数不能超过%d天", maxDurationDays))
	}
	if d.MinDays != nil && d.MaxDays != nil && *d.MinDays > *d.MaxDays {
		errs = append(errs, fmt.Sprintf("最短运行天数(%d)不能大于最长运行天数(%d)", *d.MinDays, *d.MaxDays))
	}
	if d.TargetSamples != nil && *d.TargetSamples < minTargetSamples {
		errs = append(errs, fmt.Sprintf("目标样本量(%d)过小，至少需要%d", *d.TargetSamples, minTargetSamples))
	}
	return errs
}

func outOfRange(values []float64, lo, hi float64) []string {
	var bad []string
	for _, v := range values {
		if v < lo || v > hi {
			bad = append(bad, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return bad
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
