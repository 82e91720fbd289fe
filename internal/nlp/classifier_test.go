package nlp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/experiment-designer/internal/domain"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name       string
		text       string
		want       domain.IntentType
		confidence float64
	}{
		{"comparison", "我想测试GPT-4和Claude-3在客服场景的效果", domain.IntentComparison, 0.7},
		{"optimization beats budget wording", "预算限制500美元，优化响应速度和质量的平衡点", domain.IntentOptimization, 0.775},
		{"cost analysis", "分析两个模型的成本和性价比", domain.IntentCostAnalysis, 0.85},
		{"exploration", "探索新的提示词写法", domain.IntentExploration, 0.625},
		{"multivariate", "多变量实验，同时测试模型和温度", domain.IntentMultivariate, 0.775},
		{"stratified", "针对新老用户分层", domain.IntentStratified, 0.95},
		{"orthogonal", "正交设计覆盖所有组合", domain.IntentOrthogonal, 0.775},
		{"nothing matches", "hello", domain.IntentComparison, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intent := c.Classify(Normalize(tt.text), nil)
			assert.Equal(t, tt.want, intent.Type)
			assert.InDelta(t, tt.confidence, intent.Confidence, 1e-9)
			assert.NotEmpty(t, intent.Description)
		})
	}
}

func TestClassifyTieBreak(t *testing.T) {
	c := NewClassifier()

	intent := c.Classify("对比一下还是优化", nil)
	assert.Equal(t, domain.IntentComparison, intent.Type, "first declared category wins a tie")
	assert.Equal(t, []domain.IntentType{domain.IntentOptimization}, intent.Alternatives)

	intent = c.Classify("hello", nil)
	assert.Empty(t, intent.Alternatives, "zero scores are not reported as ties")
}

func TestClassifyContextBoost(t *testing.T) {
	c := NewClassifier()
	text := "对比一下"

	plain := c.Classify(text, nil)
	assert.InDelta(t, 0.625, plain.Confidence, 1e-9)

	withCtx := c.Classify(text, &domain.EnhancedInputContext{})
	assert.InDelta(t, 0.725, withCtx.Confidence, 1e-9)

	withProfile := c.Classify(text, &domain.EnhancedInputContext{
		UserProfile: &domain.UserProfile{
			CommonExperimentTypes: []domain.IntentType{domain.IntentComparison},
		},
	})
	assert.InDelta(t, 0.8, withProfile.Confidence, 1e-9)

	saturated := c.Classify("对比 比较 compare versus 测试 效果 test", &domain.EnhancedInputContext{})
	assert.InDelta(t, 0.98, saturated.Confidence, 1e-9)
}

func TestClassifySubTypes(t *testing.T) {
	c := NewClassifier()

	intent := c.Classify(Normalize("对比模型和Prompt的效果"), nil)
	assert.Equal(t, domain.IntentComparison, intent.Type)
	assert.Equal(t, []string{"model_comparison", "prompt_comparison"}, intent.SubTypes)

	intent = c.Classify("优化参数", nil)
	assert.Empty(t, intent.SubTypes, "sub types only apply to comparisons")
}
