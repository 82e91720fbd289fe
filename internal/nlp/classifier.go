package nlp

import (
	"math"
	"strings"

	"github.com/experiment-designer/internal/domain"
)

// Confidence shaping for the intent classifier
const (
	intentConfidenceFloor   = 0.4
	intentConfidencePerUnit = 0.15
	intentConfidenceCap     = 0.95
	contextBoost            = 0.1
	contextCap              = 0.98
	profileBoost            = 0.5
)

// Classifier scores text against the weighted keyword table of every intent
type Classifier struct{}

// NewClassifier creates a new keyword classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Scores returns the raw weighted keyword score of every intent
func (c *Classifier) Scores(text string) map[domain.IntentType]float64 {
	scores := make(map[domain.IntentType]float64, len(domain.IntentTypes))
	for _, t := range domain.IntentTypes {
		for _, kw := range intentKeywords[t] {
			if strings.Contains(text, kw.keyword) {
				scores[t] += kw.weight
			}
		}
	}
	return scores
}

// Classify picks the highest scoring intent. Ties go to the category declared
// first and the other tied categories are reported as alternatives. Text that
// matches nothing is a comparison at the floor confidence.
func (c *Classifier) Classify(text string, ctx *domain.EnhancedInputContext) domain.Intent {
	scores := c.Scores(text)

	best := domain.IntentComparison
	bestScore := 0.0
	for _, t := range domain.IntentTypes {
		if scores[t] > bestScore {
			best, bestScore = t, scores[t]
		}
	}

	var alternatives []domain.IntentType
	if bestScore > 0 {
		for _, t := range domain.IntentTypes {
			if t != best && scores[t] == bestScore {
				alternatives = append(alternatives, t)
			}
		}
	}

	score := bestScore
	if ctx != nil && ctx.UserProfile != nil {
		for _, common := range ctx.UserProfile.CommonExperimentTypes {
			if common == best {
				score += profileBoost
				break
			}
		}
	}

	confidence := math.Min(intentConfidenceCap, score*intentConfidencePerUnit+intentConfidenceFloor)
	if ctx != nil {
		confidence = math.Min(contextCap, confidence+contextBoost)
	}

	intent := domain.Intent{
		Type:         best,
		Confidence:   confidence,
		Description:  IntentDescription(best),
		Alternatives: alternatives,
	}
	if best == domain.IntentComparison {
		for _, rule := range comparisonSubTypes {
			if ContainsAny(text, rule.keywords...) {
				intent.SubTypes = append(intent.SubTypes, rule.subType)
			}
		}
	}
	return intent
}
