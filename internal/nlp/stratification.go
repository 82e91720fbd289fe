package nlp

import "github.com/experiment-designer/internal/domain"

// Splitting strategies understood by the traffic router
const (
	SplitRandom     = "random"
	SplitHashBased  = "hash_based"
	SplitStratified = "stratified"
)

type dimensionRule struct {
	dimension string
	keywords  []string
	segments  []domain.UserSegment
}

var dimensionRules = []dimensionRule{
	{
		dimension: "user_tenure",
		keywords:  []string{"新老用户", "新用户", "老用户", "new user", "returning user", "existing user"},
		segments: []domain.UserSegment{
			{Name: "新用户", Criteria: "tenure_days<30", TrafficRatio: 50},
			{Name: "老用户", Criteria: "tenure_days>=30", TrafficRatio: 50},
		},
	},
	{dimension: "region", keywords: []string{"地区", "区域", "地域", "region"}},
	{dimension: "time_segment", keywords: []string{"时间段", "时段", "time segment", "time of day"}},
	{dimension: "device_type", keywords: []string{"设备", "终端", "device"}},
}

var splittingRules = []struct {
	strategy string
	keywords []string
}{
	{SplitStratified, []string{"分层", "stratif"}},
	{SplitHashBased, []string{"哈希", "hash"}},
	{SplitRandom, []string{"随机", "random"}},
}

// ExtractStratification detects segmentation dimensions, the synthetic
// new/returning segments and an explicit splitting strategy. A detected
// dimension without a stated strategy implies stratified splitting.
func (e *RulesExtractor) ExtractStratification(text string) (dimensions []string, segments []domain.UserSegment, strategy string) {
	for _, rule := range dimensionRules {
		if !ContainsAny(text, rule.keywords...) {
			continue
		}
		dimensions = append(dimensions, rule.dimension)
		segments = append(segments, rule.segments...)
	}

	for _, rule := range splittingRules {
		if ContainsAny(text, rule.keywords...) {
			strategy = rule.strategy
			break
		}
	}
	if strategy == "" && len(dimensions) > 0 {
		strategy = SplitStratified
	}
	return dimensions, segments, strategy
}
