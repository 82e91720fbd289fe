package nlp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/experiment-designer/internal/domain"
)

const countSrc = `(\d+|[一二两三四五六七八九十]+)`

var (
	dayRangeRe = regexp.MustCompile(countSrc + `\s*(?:到|至|-|~)\s*` + countSrc + `\s*(?:天|日|days?\b)`)

	// durationUnits are tried in order; the first unit that matches wins
	durationUnits = []struct {
		re   *regexp.Regexp
		days int
	}{
		{regexp.MustCompile(`(至少|最少|不少于|at least|最多|不超过|at most)?\s*` + countSrc + `\s*(?:天|日|days?\b)`), 1},
		{regexp.MustCompile(`(至少|最少|不少于|at least|最多|不超过|at most)?\s*` + countSrc + `\s*(?:周|个星期|星期|个礼拜|礼拜|weeks?\b)`), 7},
		{regexp.MustCompile(`(至少|最少|不少于|at least|最多|不超过|at most)?\s*` + countSrc + `\s*(?:个月|months?\b)`), 30},
	}

	samplesRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(万|k|千)?\s*(?:个|名|条|次)?\s*(样本|samples?\b|用户|users?\b|会话|sessions?\b|对话|conversations?\b)`)
)

// minUserSamples is the smallest user count read as a sample size; smaller
// counts name segments or cohorts
const minUserSamples = 100

// segmentSuffixes after a user noun mean it names groups, not samples
var segmentSuffixes = []string{"群", "分层", "组", "类型", "画像", "segment", "group", "cohort"}

var autoStopKeywords = []struct {
	condition domain.AutoStopCondition
	keywords  []string
}{
	{domain.StopOnSignificance, []string{"显著", "significan"}},
	{domain.StopOnBudgetExhaust, []string{"预算用完", "预算耗尽", "预算花完", "budget exhaust", "budget runs out", "out of budget"}},
	{domain.StopOnTargetSamples, []string{"达到样本", "样本量达到", "样本达到", "达到目标样本", "sample size reached", "target samples reached", "reach the target sample"}},
}

var chineseDigits = map[rune]int{
	'一': 1, '二': 2, '两': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// parseCount reads an ASCII or small Chinese numeral such as 7, 十, 二十一
func parseCount(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	total, current := 0, 0
	for _, r := range s {
		if r == '十' {
			if current == 0 {
				current = 1
			}
			total += current * 10
			current = 0
			continue
		}
		d, ok := chineseDigits[r]
		if !ok {
			return 0, false
		}
		current = d
	}
	total += current
	return total, total > 0
}

// ExtractDuration recognises day ranges, day/week/month counts, target
// sample sizes and auto-stop conditions. Nil when nothing was found.
func (e *RulesExtractor) ExtractDuration(text string) *domain.Duration {
	d := &domain.Duration{}

	if m := dayRangeRe.FindStringSubmatch(text); m != nil {
		lo, ok1 := parseCount(m[1])
		hi, ok2 := parseCount(m[2])
		if ok1 && ok2 {
			d.MinDays = domain.IntPtr(lo)
			d.MaxDays = domain.IntPtr(hi)
		}
	}

	if d.MinDays == nil && d.MaxDays == nil {
		for _, unit := range durationUnits {
			m := unit.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			n, ok := parseCount(m[2])
			if !ok {
				continue
			}
			days := n * unit.days
			switch m[1] {
			case "至少", "最少", "不少于", "at least":
				d.MinDays = domain.IntPtr(days)
			case "最多", "不超过", "at most":
				d.MaxDays = domain.IntPtr(days)
			default:
				d.MinDays = domain.IntPtr(days)
				d.MaxDays = domain.IntPtr(days)
			}
			break
		}
	}

	if n, ok := targetSamples(text); ok {
		d.TargetSamples = domain.IntPtr(n)
	}

	for _, rule := range autoStopKeywords {
		if ContainsAny(text, rule.keywords...) {
			d.AutoStopConditions = append(d.AutoStopConditions, rule.condition)
		}
	}

	if d.IsEmpty() {
		return nil
	}
	return d
}

// targetSamples returns the first sample count in text. User counts only
// qualify when they reach minUserSamples and are not followed by a segment word.
func targetSamples(text string) (int, bool) {
	for _, loc := range samplesRe.FindAllStringSubmatchIndex(text, -1) {
		v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		unit := ""
		if loc[4] >= 0 {
			unit = text[loc[4]:loc[5]]
		}
		n := roundInt(v * multiplier(unit))
		if noun := text[loc[6]:loc[7]]; noun == "用户" || strings.HasPrefix(noun, "user") {
			if n < minUserSamples || hasPrefixAny(strings.TrimLeft(text[loc[1]:], " "), segmentSuffixes...) {
				continue
			}
		}
		return n, true
	}
	return 0, false
}

func multiplier(unit string) float64 {
	switch unit {
	case "万":
		return 10000
	case "k", "千":
		return 1000
	default:
		return 1
	}
}

const amountSrc = `\$?\s*(\d+(?:\.\d+)?)\s*(万|k|千)?`

var (
	dailyBudgetRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:每天|每日|日预算|daily|per day)\s*(?:预算|限额|上限|花费|消费|budget|limit|cap)?\s*(?:为|是|:|of|不超过|最多|控制在)?\s*` + amountSrc),
		regexp.MustCompile(amountSrc + `\s*(?:元|块|美元|美金|dollars?|usd)?\s*(?:/天|/日|每天|每日|per day|a day|/day)`),
	}
	groupBudgetRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:每组|每个组|每个分组|per group|each group)\s*(?:预算|budget)?\s*(?:为|是|:|of)?\s*` + amountSrc),
	}

	// totalBudgetRes are priority ordered: later matches overwrite earlier ones
	totalBudgetRes = []*regexp.Regexp{
		regexp.MustCompile(amountSrc + `\s*(?:元|块钱|块|美元|美金|刀|dollars?|usd|rmb)`),
		regexp.MustCompile(amountSrc + `\s*(?:元|块钱|块|美元|美金|dollars?|usd|rmb)?\s*的?\s*(?:总预算|预算|budget)`),
		regexp.MustCompile(`(?:总预算|预算|budget|成本控制在|花费不超过|cost limit)[^\d$]{0,6}` + amountSrc),
	}
)

// ExtractBudget finds daily, per-group and total limits. Daily and per-group
// spans are masked before total patterns run so they are not double counted.
func (e *RulesExtractor) ExtractBudget(text string) *domain.Budget {
	b := &domain.Budget{}
	masked := text

	for _, re := range dailyBudgetRes {
		if v, span, ok := matchAmount(re, masked); ok {
			b.DailyLimit = domain.FloatPtr(v)
			masked = mask(masked, span)
			break
		}
	}
	for _, re := range groupBudgetRes {
		if v, span, ok := matchAmount(re, masked); ok {
			b.CostPerGroup = domain.FloatPtr(v)
			masked = mask(masked, span)
			break
		}
	}
	for _, re := range totalBudgetRes {
		if v, _, ok := matchAmount(re, masked); ok {
			b.MaxCost = domain.FloatPtr(v)
		}
	}

	if b.IsEmpty() {
		return nil
	}
	return b
}

// currencyWords and budgetWords are the evidence that a number is money
var (
	currencyWords = []string{"$", "元", "块", "美元", "美金", "刀", "dollar", "usd", "rmb"}
	budgetWords   = []string{"预算", "限额", "上限", "花费", "消费", "成本", "budget", "limit", "cap", "cost"}

	// countUnits after a number mean it counts something other than money
	countUnits = []string{"%", "个", "名", "条", "次", "人", "样本", "用户", "请求", "会话", "对话", "轮",
		"sample", "user", "request", "session", "conversation", "token", "call"}
)

// matchAmount returns the first match of re that reads as money: the number
// is not followed by a count unit and a currency or budget word is present.
func matchAmount(re *regexp.Regexp, text string) (float64, []int, bool) {
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		matched, after := text[loc[0]:loc[1]], strings.TrimLeft(text[loc[1]:], " ")
		if hasPrefixAny(after, countUnits...) {
			continue
		}
		if !ContainsAny(matched, currencyWords...) && !ContainsAny(matched, budgetWords...) && !hasPrefixAny(after, currencyWords...) {
			continue
		}
		unit := ""
		if loc[4] >= 0 {
			unit = text[loc[4]:loc[5]]
		}
		v, err := strconv.ParseFloat(text[loc[2]:loc[3]], 64)
		if err != nil {
			continue
		}
		return v * multiplier(unit), loc[:2], true
	}
	return 0, nil, false
}

func hasPrefixAny(text string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func mask(text string, span []int) string {
	return text[:span[0]] + strings.Repeat(" ", span[1]-span[0]) + text[span[1]:]
}
