package nlp

import (
	"sort"

	"github.com/experiment-designer/internal/domain"
)

// modelAlias maps a lowercase surface form to a canonical model id
type modelAlias struct {
	alias     string
	canonical string
}

var modelAliases = []modelAlias{
	{"gpt-4-turbo", "gpt-4-turbo"},
	{"gpt-4o", "gpt-4o"},
	{"gpt-4", "gpt-4-turbo"},
	{"gpt4", "gpt-4-turbo"},
	{"gpt-3.5-turbo", "gpt-3.5-turbo"},
	{"gpt-3.5", "gpt-3.5-turbo"},
	{"gpt3.5", "gpt-3.5-turbo"},
	{"chatgpt", "gpt-3.5-turbo"},
	{"claude-3-opus", "claude-3-opus"},
	{"claude-3-sonnet", "claude-3-sonnet"},
	{"claude-3-haiku", "claude-3-haiku"},
	{"claude-3", "claude-3-opus"},
	{"claude", "claude-3-opus"},
	{"opus", "claude-3-opus"},
	{"sonnet", "claude-3-sonnet"},
	{"haiku", "claude-3-haiku"},
	{"gemini-pro", "gemini-pro"},
	{"gemini", "gemini-pro"},
	{"llama-3-70b", "llama-3-70b"},
	{"llama3", "llama-3-70b"},
	{"llama", "llama-3-70b"},
	{"qwen-max", "qwen-max"},
	{"qwen", "qwen-max"},
	{"通义千问", "qwen-max"},
	{"ernie-bot", "ernie-bot"},
	{"ernie", "ernie-bot"},
	{"文心一言", "ernie-bot"},
	{"glm-4", "glm-4"},
	{"glm", "glm-4"},
	{"智谱", "glm-4"},
	{"deepseek-chat", "deepseek-chat"},
	{"deepseek", "deepseek-chat"},
}

// sortedAliases is modelAliases ordered longest first so the scanner
// always prefers "gpt-4o" over "gpt-4".
var sortedAliases = func() []modelAlias {
	out := make([]modelAlias, len(modelAliases))
	copy(out, modelAliases)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].alias) > len(out[j].alias)
	})
	return out
}()

// KnownModels is the canonical allow-list in catalog order
var KnownModels = []string{
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-3.5-turbo",
	"claude-3-opus",
	"claude-3-sonnet",
	"claude-3-haiku",
	"gemini-pro",
	"llama-3-70b",
	"qwen-max",
	"ernie-bot",
	"glm-4",
	"deepseek-chat",
}

var knownModelSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(KnownModels))
	for _, id := range KnownModels {
		m[id] = struct{}{}
	}
	return m
}()

// IsKnownModel reports whether id is on the canonical allow-list
func IsKnownModel(id string) bool {
	_, ok := knownModelSet[id]
	return ok
}

// metricPhrase maps a surface phrase to a canonical metric id
type metricPhrase struct {
	phrase string
	metric string
}

var metricPhrases = []metricPhrase{
	{"满意度", "user_satisfaction"},
	{"satisfaction", "user_satisfaction"},
	{"响应速度", "response_time"},
	{"响应时间", "response_time"},
	{"延迟", "response_time"},
	{"latency", "response_time"},
	{"response time", "response_time"},
	{"准确率", "accuracy"},
	{"准确性", "accuracy"},
	{"accuracy", "accuracy"},
	{"质量", "response_quality"},
	{"quality", "response_quality"},
	{"转化率", "conversion_rate"},
	{"conversion", "conversion_rate"},
	{"成本", "cost_per_conversation"},
	{"费用", "cost_per_conversation"},
	{"cost", "cost_per_conversation"},
	{"解决率", "resolution_rate"},
	{"resolution", "resolution_rate"},
	{"留存", "retention_rate"},
	{"retention", "retention_rate"},
	{"点击率", "click_through_rate"},
	{"ctr", "click_through_rate"},
	{"参与度", "engagement"},
	{"engagement", "engagement"},
	{"token消耗", "token_usage"},
	{"token usage", "token_usage"},
	{"错误率", "error_rate"},
	{"error rate", "error_rate"},
}

// MetricIDs lists every canonical metric id in catalog order
var MetricIDs = []string{
	"user_satisfaction",
	"response_time",
	"accuracy",
	"response_quality",
	"conversion_rate",
	"cost_per_conversation",
	"resolution_rate",
	"retention_rate",
	"click_through_rate",
	"engagement",
	"token_usage",
	"error_rate",
}

// costMetrics are metrics that measure spend rather than success
var costMetrics = map[string]bool{
	"cost_per_conversation": true,
	"token_usage":           true,
}

// IsCostMetric reports whether metric measures spend
func IsCostMetric(metric string) bool {
	return costMetrics[metric]
}

// weightedKeyword is one classifier keyword and its score contribution
type weightedKeyword struct {
	keyword string
	weight  float64
}

const (
	highSignalWeight = 1.5
	normalWeight     = 1.0
)

func high(kws ...string) []weightedKeyword {
	return weighted(highSignalWeight, kws)
}

func normal(kws ...string) []weightedKeyword {
	return weighted(normalWeight, kws)
}

func weighted(w float64, kws []string) []weightedKeyword {
	out := make([]weightedKeyword, len(kws))
	for i, kw := range kws {
		out[i] = weightedKeyword{keyword: kw, weight: w}
	}
	return out
}

// intentKeywords is evaluated in domain.IntentTypes order
var intentKeywords = map[domain.IntentType][]weightedKeyword{
	domain.IntentComparison: append(
		high("对比", "比较", "compare", "comparison", " vs", "versus"),
		normal("测试", "效果", "test")...),
	domain.IntentOptimization: append(
		high("优化", "optimi", "调优"),
		normal("提升", "改进", "平衡", "最佳", "improve", "tune")...),
	domain.IntentExploration: append(
		high("探索", "explore", "exploration"),
		normal("尝试", "发现", "研究", "try out", "discover")...),
	domain.IntentCostAnalysis: append(
		high("成本", "cost", "费用", "性价比"),
		normal("省钱", "便宜", "预算", "budget", "roi")...),
	domain.IntentMultivariate: append(
		high("多变量", "multivariate", "多因素"),
		normal("同时测试", "多个参数", "组合", "multiple parameters")...),
	domain.IntentStratified: append(
		high("分层", "stratif", "新老用户"),
		normal("新用户", "老用户", "用户群", "segment", "细分")...),
	domain.IntentOrthogonal: append(
		high("正交", "orthogonal", "全因子", "factorial"),
		normal("所有组合", "交互", "interaction")...),
}

var intentDescriptions = map[domain.IntentType]string{
	domain.IntentComparison:   "对比测试：比较不同模型或配置的效果差异",
	domain.IntentOptimization: "优化实验：寻找参数或配置的最佳取值",
	domain.IntentExploration:  "探索实验：尝试新的配置并发现潜在机会",
	domain.IntentCostAnalysis: "成本分析：在效果与成本之间评估性价比",
	domain.IntentMultivariate: "多变量实验：同时测试多个变量的影响",
	domain.IntentStratified:   "分层实验：按用户群体分层进行测试",
	domain.IntentOrthogonal:   "正交实验：全因子组合测试变量间的交互效应",
}

// IntentDescription returns the human-readable description of an intent type
func IntentDescription(t domain.IntentType) string {
	return intentDescriptions[t]
}

type subTypeRule struct {
	subType  string
	keywords []string
}

var comparisonSubTypes = []subTypeRule{
	{"model_comparison", []string{"模型", "model"}},
	{"prompt_comparison", []string{"prompt", "提示词"}},
	{"parameter_comparison", []string{"参数", "parameter"}},
}

// orthogonalKeywords mark a full-factorial design
var orthogonalKeywords = []string{"正交", "组合", "全因子", "orthogonal", "combination", "factorial"}
