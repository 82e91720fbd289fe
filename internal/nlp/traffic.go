package nlp

import (
	"math"
	"regexp"
	"strconv"
)

// trafficTolerance is how far from 100 a split may sum and still be accepted
const trafficTolerance = 5

// Bounds on a single group's share of traffic, in percent
const (
	MinGroupShare = 1
	MaxGroupShare = 95
)

// trafficRule turns one textual pattern into candidate splits. When reports
// returns true for the text, an invalid candidate is surfaced as rejected.
type trafficRule struct {
	name      string
	candidate func(text string) [][]int
	reports   func(text string) bool
}

var (
	percentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	eachRe    = regexp.MustCompile(`(?:各|每组|每个|each group|each|per group)\s*(?:分配|分得|占|获得|gets?|receives?|with)?\s*(\d+(?:\.\d+)?)\s*%`)
	ratioRe   = regexp.MustCompile(`(\d+)\s*(?::|比|/)\s*(\d+)(?:\s*(?::|比|/)\s*(\d+))?`)
)

type semanticSplit struct {
	phrases []string
	split   []int
}

var semanticSplits = []semanticSplit{
	{[]string{"平均分配", "均分", "平分", "evenly", "各一半", "even split", "50/50"}, []int{50, 50}},
	{[]string{"小流量", "small traffic", "灰度", "canary"}, []int{20, 80}},
	{[]string{"大部分", "mostly", "majority"}, []int{80, 20}},
}

// trafficRules are tried in priority order; the first valid candidate wins
var trafficRules = []trafficRule{
	{name: "explicit_percentages", candidate: explicitPercentages, reports: always},
	{name: "each_percentage", candidate: eachPercentage, reports: always},
	{name: "ratio_notation", candidate: ratioNotation, reports: mentionsTraffic},
	{name: "semantic_phrase", candidate: semanticPhrase},
}

// trafficWords mark a ratio as a traffic split rather than a time or version
var trafficWords = []string{"流量", "分流", "分配", "比例", "traffic", "split", "ratio"}

func always(string) bool { return true }

func mentionsTraffic(text string) bool {
	return ContainsAny(text, trafficWords...)
}

// ExtractTrafficRatio returns the first candidate split whose sum is within
// tolerance of 100. When no rule produced a valid split, the first invalid
// candidate of a reporting rule is returned as rejected so validation can
// report it.
func (e *RulesExtractor) ExtractTrafficRatio(text string) (ratio []int, rejected []int) {
	for _, rule := range trafficRules {
		for _, c := range rule.candidate(text) {
			if validSplit(c) {
				return c, nil
			}
			if rejected == nil && rule.reports != nil && rule.reports(text) {
				rejected = c
			}
		}
	}
	return nil, rejected
}

func validSplit(split []int) bool {
	if len(split) < 2 {
		return false
	}
	for _, v := range split {
		if v < MinGroupShare || v > MaxGroupShare {
			return false
		}
	}
	return WithinTolerance(sum(split))
}

// WithinTolerance reports whether a split total is close enough to 100
func WithinTolerance(total int) bool {
	return total >= 100-trafficTolerance && total <= 100+trafficTolerance
}

func sum(vs []int) int {
	total := 0
	for _, v := range vs {
		total += v
	}
	return total
}

func percentages(text string) []int {
	var out []int
	for _, m := range percentRe.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out = append(out, roundInt(v))
		}
	}
	return out
}

// explicitPercentages proposes every stated percentage, then each adjacent pair
func explicitPercentages(text string) [][]int {
	all := percentages(text)
	if len(all) < 2 {
		return nil
	}
	candidates := [][]int{all}
	if len(all) > 2 {
		for i := 0; i+1 < len(all); i++ {
			candidates = append(candidates, []int{all[i], all[i+1]})
		}
	}
	return candidates
}

// eachPercentage expands "each X%" into round(100/X) equal groups
func eachPercentage(text string) [][]int {
	var candidates [][]int
	for _, m := range eachRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil || v <= 0 {
			continue
		}
		n := roundInt(100 / v)
		if n < 2 {
			n = 2
		}
		split := make([]int, n)
		for i := range split {
			split[i] = roundInt(v)
		}
		candidates = append(candidates, split)
	}
	return candidates
}

// ratioNotation normalises "X:Y(:Z)" so the parts sum to exactly 100
func ratioNotation(text string) [][]int {
	var candidates [][]int
	for _, m := range ratioRe.FindAllStringSubmatch(text, -1) {
		var parts []float64
		for _, g := range m[1:] {
			if g == "" {
				continue
			}
			v, err := strconv.ParseFloat(g, 64)
			if err != nil {
				continue
			}
			parts = append(parts, v)
		}
		if split := normalizeParts(parts); split != nil {
			candidates = append(candidates, split)
		}
	}
	return candidates
}

func normalizeParts(parts []float64) []int {
	total := 0.0
	for _, p := range parts {
		if p <= 0 {
			return nil
		}
		total += p
	}
	if total <= 0 || len(parts) < 2 {
		return nil
	}
	split := make([]int, len(parts))
	assigned := 0
	for i, p := range parts {
		if i == len(parts)-1 {
			split[i] = 100 - assigned
			break
		}
		split[i] = int(math.Round(p * 100 / total))
		assigned += split[i]
	}
	return split
}

func semanticPhrase(text string) [][]int {
	for _, s := range semanticSplits {
		if ContainsAny(text, s.phrases...) {
			return [][]int{append([]int(nil), s.split...)}
		}
	}
	return nil
}
