package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

func TestValidateShortInput(t *testing.T) {
	v := NewValidator()

	errs := v.Validate(nlp.NewInput("  ab  "), &domain.ExtractedParams{}, domain.IntentComparison)
	assert.Equal(t, []string{ShortInputMessage}, errs)

	errs = v.Validate(nlp.NewInput("测试五个字"), &domain.ExtractedParams{}, domain.IntentComparison)
	assert.NotNil(t, errs)
	assert.Empty(t, errs)
}

func TestValidateParams(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		params *domain.ExtractedParams
		intent domain.IntentType
		want   []string
	}{
		{
			name:   "valid comparison",
			params: &domain.ExtractedParams{Models: []string{"gpt-4o", "glm-4"}, TrafficRatio: []int{50, 50}},
			intent: domain.IntentComparison,
		},
		{
			name:   "traffic over tolerance",
			params: &domain.ExtractedParams{TrafficRatio: []int{60, 60}},
			intent: domain.IntentComparison,
			want:   []string{"流量分配总和为120%，应接近100%"},
		},
		{
			name:   "traffic within tolerance",
			params: &domain.ExtractedParams{TrafficRatio: []int{33, 33, 33}},
			intent: domain.IntentComparison,
		},
		{
			name:   "group share out of bounds",
			params: &domain.ExtractedParams{TrafficRatio: []int{98, 2}},
			intent: domain.IntentComparison,
			want:   []string{"第1组流量比例98%超出范围，应在1%到95%之间"},
		},
		{
			name: "daily limit above total",
			params: &domain.ExtractedParams{Budget: &domain.Budget{
				MaxCost: domain.FloatPtr(100), DailyLimit: domain.FloatPtr(200),
			}},
			intent: domain.IntentComparison,
			want:   []string{"每日预算限额(200)不能超过总预算(100)"},
		},
		{
			name:   "non-positive budget",
			params: &domain.ExtractedParams{Budget: &domain.Budget{MaxCost: domain.FloatPtr(0)}},
			intent: domain.IntentComparison,
			want:   []string{"总预算必须大于0"},
		},
		{
			name: "inverted duration",
			params: &domain.ExtractedParams{Duration: &domain.Duration{
				MinDays: domain.IntPtr(14), MaxDays: domain.IntPtr(7),
			}},
			intent: domain.IntentComparison,
			want:   []string{"最短运行天数(14)不能大于最长运行天数(7)"},
		},
		{
			name: "duration limits",
			params: &domain.ExtractedParams{Duration: &domain.Duration{
				MinDays: domain.IntPtr(0), MaxDays: domain.IntPtr(400), TargetSamples: domain.IntPtr(50),
			}},
			intent: domain.IntentComparison,
			want: []string{
				"最短运行天数必须至少为1天",
				"最长运行天数不能超过365天",
				"目标样本量(50)过小，至少需要100",
			},
		},
		{
			name:   "unknown model and parameter ranges",
			params: &domain.ExtractedParams{Models: []string{"gpt-9"}, Temperatures: []float64{2.5}, TopP: []float64{1.2}},
			intent: domain.IntentComparison,
			want: []string{
				"未知模型: gpt-9",
				"temperature取值超出范围[0,2]: 2.5",
				"top_p取值超出范围[0,1]: 1.2",
			},
		},
		{
			name: "multivariate needs two variables",
			params: &domain.ExtractedParams{Variables: []domain.Variable{
				{Name: "model", Values: []string{"gpt-4o", "glm-4"}},
			}},
			intent: domain.IntentMultivariate,
			want:   []string{"多变量实验至少需要2个变量，当前为1个"},
		},
		{
			name: "too many combinations",
			params: &domain.ExtractedParams{Variables: []domain.Variable{
				{Name: "a", Values: []string{"1", "2", "3"}},
				{Name: "b", Values: []string{"1", "2", "3"}},
				{Name: "c", Values: []string{"1", "2"}},
			}},
			intent: domain.IntentComparison,
			want:   []string{"变量组合数(18)过多，建议不超过16组"},
		},
		{
			name: "ratio does not match combinations",
			params: &domain.ExtractedParams{
				TrafficRatio: []int{50, 50},
				Variables: []domain.Variable{
					{Name: "a", Values: []string{"1", "2"}},
					{Name: "b", Values: []string{"1", "2"}},
				},
			},
			intent: domain.IntentOrthogonal,
			want:   []string{"流量分配组数(2)与变量组合数(4)不一致"},
		},
		{
			name:   "stratified without segments",
			params: &domain.ExtractedParams{},
			intent: domain.IntentStratified,
			want:   []string{"分层实验至少需要1个用户分层"},
		},
		{
			name: "stratified segments do not sum",
			params: &domain.ExtractedParams{UserSegments: []domain.UserSegment{
				{Name: "a", TrafficRatio: 30}, {Name: "b", TrafficRatio: 30},
			}},
			intent: domain.IntentStratified,
			want:   []string{"用户分层流量总和为60%，应接近100%"},
		},
		{
			name:   "cost analysis without budget or cost metric",
			params: &domain.ExtractedParams{PrimaryMetric: "accuracy"},
			intent: domain.IntentCostAnalysis,
			want: []string{
				"成本分析实验需要设置预算",
				"成本分析实验的主要指标应为成本类指标（如cost_per_conversation）",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.ValidateParams(tt.params, tt.intent)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateParamsNil(t *testing.T) {
	assert.Empty(t, NewValidator().ValidateParams(nil, domain.IntentComparison))
}
