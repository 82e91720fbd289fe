package analyzer

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/experiment-designer/internal/domain"
)

//go:embed templates.yaml
var templatesYAML []byte

// templateConfidenceFloor is the minimum confidence of an applied template
const templateConfidenceFloor = 0.85

// TemplateCatalog holds the read-only built-in templates
type TemplateCatalog struct {
	templates []domain.ExperimentTemplate
	byID      map[string]int
}

// ParseTemplates decodes a YAML template list into a catalog
func ParseTemplates(data []byte) (*TemplateCatalog, error) {
	var templates []domain.ExperimentTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	c := &TemplateCatalog{
		templates: templates,
		byID:      make(map[string]int, len(templates)),
	}
	for i, t := range templates {
		if t.ID == "" {
			return nil, fmt.Errorf("template %d has no id", i)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate template id %q", t.ID)
		}
		c.byID[t.ID] = i
	}
	return c, nil
}

var (
	defaultCatalog     *TemplateCatalog
	defaultCatalogOnce sync.Once
)

// DefaultTemplates returns the embedded catalog. The embedded file is part of
// the binary so a decode failure is a build defect and panics.
func DefaultTemplates() *TemplateCatalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseTemplates(templatesYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Templates returns deep copies of every template in catalog order
func (c *TemplateCatalog) Templates() []domain.ExperimentTemplate {
	out := make([]domain.ExperimentTemplate, len(c.templates))
	for i, t := range c.templates {
		out[i] = copyTemplate(t)
	}
	return out
}

// Template returns a deep copy of one template
func (c *TemplateCatalog) Template(id string) (domain.ExperimentTemplate, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.ExperimentTemplate{}, false
	}
	return copyTemplate(c.templates[i]), true
}

func copyTemplate(t domain.ExperimentTemplate) domain.ExperimentTemplate {
	t.Params = *t.Params.Clone()
	t.Examples = cloneStrings(t.Examples)
	return t
}

// ApplyTemplate layers user overrides on top of a template's defaults. User
// models are substituted into the template's model variable and the traffic
// split is re-evened when the group count no longer matches.
func (c *TemplateCatalog) ApplyTemplate(id string, user *domain.ExtractedParams) (*domain.ExtractedParams, error) {
	t, ok := c.Template(id)
	if !ok {
		return nil, domain.NewTemplateError(id, domain.ErrTemplateNotFound)
	}
	result := &t.Params
	if user == nil {
		user = &domain.ExtractedParams{}
	}
	user = user.Clone()

	if user.Name != "" {
		result.Name = user.Name
	} else if result.Name == "" {
		result.Name = t.Name
	}
	if user.Description != "" {
		result.Description = user.Description
	} else if result.Description == "" {
		result.Description = t.Description
	}

	userSetModelVar := false
	for _, v := range user.Variables {
		if v.Name == "model" {
			userSetModelVar = true
		}
	}
	if len(user.Models) > 0 {
		result.Models = user.Models
		if !userSetModelVar {
			for i := range result.Variables {
				if result.Variables[i].Name == "model" {
					result.Variables[i].Values = cloneStrings(user.Models)
				}
			}
		}
	}

	if len(user.Prompts) > 0 {
		result.Prompts = user.Prompts
	}
	if len(user.Temperatures) > 0 {
		result.Temperatures = user.Temperatures
	}
	if len(user.TopP) > 0 {
		result.TopP = user.TopP
	}
	if len(user.MaxTokens) > 0 {
		result.MaxTokens = user.MaxTokens
	}
	if user.SplittingStrategy != "" {
		result.SplittingStrategy = user.SplittingStrategy
	}
	if len(user.StratificationDimensions) > 0 {
		result.StratificationDimensions = user.StratificationDimensions
	}
	if user.PrimaryMetric != "" {
		result.PrimaryMetric = user.PrimaryMetric
	}
	if len(user.SecondaryMetrics) > 0 {
		result.SecondaryMetrics = user.SecondaryMetrics
	}
	if len(user.UserSegments) > 0 {
		result.UserSegments = user.UserSegments
	}
	result.Variables = mergeVariables(result.Variables, user.Variables)
	result.Duration = mergeDuration(result.Duration, user.Duration)
	result.Budget = mergeBudget(result.Budget, user.Budget)

	if len(user.TrafficRatio) > 0 {
		result.TrafficRatio = user.TrafficRatio
	} else if groups := templateGroups(result); groups > 0 && groups != len(result.TrafficRatio) {
		if split := evenSplit(groups); split != nil {
			result.TrafficRatio = split
		}
	}

	result.ExtractionConfidence = templateConfidenceFloor
	if user.ExtractionConfidence > result.ExtractionConfidence {
		result.ExtractionConfidence = user.ExtractionConfidence
	}
	if t.Params.ExtractionConfidence > result.ExtractionConfidence {
		result.ExtractionConfidence = t.Params.ExtractionConfidence
	}
	breakdown := BreakdownFor(result.ExtractionConfidence)
	result.ConfidenceBreakdown = &breakdown

	return result, nil
}

// templateGroups is the number of treatment groups implied by the merged
// configuration: the combination count when variables exist, else the models
func templateGroups(p *domain.ExtractedParams) int {
	if n := p.CombinationCount(); n > 0 {
		return n
	}
	return len(p.Models)
}

// mergeVariables replaces same-named template variables and appends new ones
func mergeVariables(base, overrides []domain.Variable) []domain.Variable {
	if len(overrides) == 0 {
		return base
	}
	out := append([]domain.Variable(nil), base...)
	for _, o := range overrides {
		replaced := false
		for i := range out {
			if out[i].Name == o.Name {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

func mergeDuration(base, override *domain.Duration) *domain.Duration {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}
	merged := *base
	if override.MinDays != nil {
		merged.MinDays = override.MinDays
	}
	if override.MaxDays != nil {
		merged.MaxDays = override.MaxDays
	}
	if override.TargetSamples != nil {
		merged.TargetSamples = override.TargetSamples
	}
	if len(override.AutoStopConditions) > 0 {
		merged.AutoStopConditions = override.AutoStopConditions
	}
	return &merged
}

func mergeBudget(base, override *domain.Budget) *domain.Budget {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}
	merged := *base
	if override.MaxCost != nil {
		merged.MaxCost = override.MaxCost
	}
	if override.DailyLimit != nil {
		merged.DailyLimit = override.DailyLimit
	}
	if override.CostPerGroup != nil {
		merged.CostPerGroup = override.CostPerGroup
	}
	return &merged
}
