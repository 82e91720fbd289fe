package nlp

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/experiment-designer/internal/domain"
)

// Extraction is the union of everything the pattern bank detected.
// Zero values mean "not detected".
type Extraction struct {
	Models                   []string
	Prompts                  []string
	Temperatures             []float64
	TopP                     []float64
	MaxTokens                []int
	TrafficRatio             []int
	RejectedTraffic          []int // explicit percentages that never formed a valid split
	Duration                 *domain.Duration
	Budget                   *domain.Budget
	PrimaryMetric            string
	SecondaryMetrics         []string
	UserSegments             []domain.UserSegment
	StratificationDimensions []string
	SplittingStrategy        string
}

// RulesExtractor runs the pattern bank over an utterance
type RulesExtractor struct{}

// NewRulesExtractor creates a new rule-based extractor
func NewRulesExtractor() *RulesExtractor {
	return &RulesExtractor{}
}

// Extract runs every independent extractor. Variables depend on complexity
// and are built separately with ExtractVariables.
func (e *RulesExtractor) Extract(in Input) *Extraction {
	text := in.Normalized
	ex := &Extraction{}

	ex.Models = e.ExtractModels(text)
	ex.Prompts = e.ExtractPrompts(in)
	ex.Temperatures, ex.TopP, ex.MaxTokens = e.ExtractNumericParams(text)
	ex.TrafficRatio, ex.RejectedTraffic = e.ExtractTrafficRatio(text)
	ex.Duration = e.ExtractDuration(text)
	ex.Budget = e.ExtractBudget(text)
	ex.PrimaryMetric, ex.SecondaryMetrics = e.ExtractMetrics(text)
	ex.StratificationDimensions, ex.UserSegments, ex.SplittingStrategy = e.ExtractStratification(text)

	return ex
}

// ExtractModels finds canonical model ids in first-seen order without duplicates.
// At each position the longest alias wins.
func (e *RulesExtractor) ExtractModels(text string) []string {
	var models []string
	seen := make(map[string]bool)

	for i := 0; i < len(text); {
		matched := false
		for _, a := range sortedAliases {
			if strings.HasPrefix(text[i:], a.alias) {
				if !seen[a.canonical] {
					seen[a.canonical] = true
					models = append(models, a.canonical)
				}
				i += len(a.alias)
				matched = true
				break
			}
		}
		if !matched {
			_, size := utf8.DecodeRuneInString(text[i:])
			i += size
		}
	}
	return models
}

var (
	numberRe      = regexp.MustCompile(`\d+(?:\.\d+)?`)
	numberListSrc = `(\d+(?:\.\d+)?(?:\s*(?:和|与|,|/|or|and|vs)\s*\d+(?:\.\d+)?)*)`
	assignSrc     = `\s*(?:=|:|为|是|设为|设置为|取|of|at)?\s*`

	temperatureRe = regexp.MustCompile(`(?:temperature|temp|温度)` + assignSrc + numberListSrc)
	topPRe        = regexp.MustCompile(`(?:top[-_ ]?p)` + assignSrc + numberListSrc)
	maxTokensRe   = regexp.MustCompile(`(?:max[-_ ]?tokens?|最大token数?|最大令牌数?)` + assignSrc + numberListSrc)
)

// ExtractNumericParams captures temperature, top-p and max-tokens lists.
// Out-of-range values are dropped silently.
func (e *RulesExtractor) ExtractNumericParams(text string) (temps []float64, topP []float64, maxTokens []int) {
	for _, v := range captureNumbers(temperatureRe, text) {
		if v >= 0 && v <= 2 {
			temps = appendUniqueFloat(temps, v)
		}
	}
	for _, v := range captureNumbers(topPRe, text) {
		if v >= 0 && v <= 1 {
			topP = appendUniqueFloat(topP, v)
		}
	}
	for _, v := range captureNumbers(maxTokensRe, text) {
		n := int(v)
		if float64(n) == v && n > 0 && n <= 4000 && !containsInt(maxTokens, n) {
			maxTokens = append(maxTokens, n)
		}
	}
	return temps, topP, maxTokens
}

func captureNumbers(re *regexp.Regexp, text string) []float64 {
	var out []float64
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		for _, raw := range numberRe.FindAllString(m[1], -1) {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				out = append(out, v)
			}
		}
	}
	return out
}

var (
	promptKeywords = []string{"prompt", "提示词", "提示语", "话术"}
	quotedRe       = regexp.MustCompile(`["“「『]([^"”」』]{2,200})["”」』]`)
)

// ExtractPrompts lifts quoted passages when the text talks about prompts
func (e *RulesExtractor) ExtractPrompts(in Input) []string {
	if !ContainsAny(in.Normalized, promptKeywords...) {
		return nil
	}
	var prompts []string
	for _, m := range quotedRe.FindAllStringSubmatch(in.Raw, -1) {
		p := strings.TrimSpace(m[1])
		if p != "" && !containsString(prompts, p) {
			prompts = append(prompts, p)
		}
	}
	return prompts
}

// ExtractMetrics picks the earliest-mentioned metric as primary and the
// remaining distinct ones, in order of appearance, as secondary.
func (e *RulesExtractor) ExtractMetrics(text string) (primary string, secondary []string) {
	ids := MentionedMetrics(text)
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], ids[1:]
}

// MentionedMetrics returns distinct metric ids ordered by first position in text
func MentionedMetrics(text string) []string {
	type hit struct {
		metric string
		pos    int
		order  int
	}
	first := make(map[string]hit)
	for i, mp := range metricPhrases {
		pos := strings.Index(text, mp.phrase)
		if pos < 0 {
			continue
		}
		if h, ok := first[mp.metric]; !ok || pos < h.pos {
			first[mp.metric] = hit{metric: mp.metric, pos: pos, order: i}
		}
	}
	hits := make([]hit, 0, len(first))
	for _, h := range first {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].order < hits[j].order
	})
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.metric
	}
	return ids
}

// ExtractVariables builds experimental factors from already-extracted lists.
// Callers only invoke it for medium or harder designs.
func (e *RulesExtractor) ExtractVariables(text string, ex *Extraction) []domain.Variable {
	orthogonal := ContainsAny(text, orthogonalKeywords...)
	var vars []domain.Variable

	if len(ex.Models) > 1 {
		vars = append(vars, domain.Variable{
			Name:         "model",
			Type:         domain.VariableCategorical,
			Values:       append([]string(nil), ex.Models...),
			IsOrthogonal: orthogonal,
		})
	}
	if len(ex.Temperatures) >= 2 {
		vars = append(vars, domain.Variable{
			Name:         "temperature",
			Type:         domain.VariableNumeric,
			Values:       formatFloats(ex.Temperatures),
			IsOrthogonal: orthogonal,
		})
	}
	if len(ex.TopP) >= 2 {
		vars = append(vars, domain.Variable{
			Name:         "top_p",
			Type:         domain.VariableNumeric,
			Values:       formatFloats(ex.TopP),
			IsOrthogonal: orthogonal,
		})
	}
	if len(ex.Prompts) >= 2 {
		vars = append(vars, domain.Variable{
			Name:         "prompt",
			Type:         domain.VariableCategorical,
			Values:       append([]string(nil), ex.Prompts...),
			IsOrthogonal: orthogonal,
		})
	}
	return vars
}

func formatFloats(vs []float64) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return out
}

func appendUniqueFloat(s []float64, v float64) []float64 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
