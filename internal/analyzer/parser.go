package analyzer

import (
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/nlp"
)

// Parser is the full intent and parameter extraction pipeline. It holds only
// read-only tables and is safe for concurrent use.
type Parser struct {
	extractor   *nlp.RulesExtractor
	classifier  *nlp.Classifier
	assessor    *ComplexityAssessor
	synthesizer *Synthesizer
	validator   *Validator
	catalog     *TemplateCatalog
}

// NewParser creates a parser backed by the built-in template catalog
func NewParser() *Parser {
	return NewParserWithCatalog(DefaultTemplates())
}

// NewParserWithCatalog creates a parser with a custom template catalog
func NewParserWithCatalog(catalog *TemplateCatalog) *Parser {
	return &Parser{
		extractor:   nlp.NewRulesExtractor(),
		classifier:  nlp.NewClassifier(),
		assessor:    NewComplexityAssessor(),
		synthesizer: NewSynthesizer(),
		validator:   NewValidator(),
		catalog:     catalog,
	}
}

// ParseInput runs the pipeline over one utterance. It never fails; problems
// are reported in the result's Errors and MissingParams.
func (p *Parser) ParseInput(text string, ctx *domain.EnhancedInputContext) *domain.ParseResult {
	in := nlp.NewInput(text)

	intent := p.classifier.Classify(in.Normalized, ctx)
	ex := p.extractor.Extract(in)
	complexity := p.assessor.Assess(in.Normalized, intent)

	var variables []domain.Variable
	if complexity.Level.AtLeast(domain.ComplexityMedium) {
		variables = p.extractor.ExtractVariables(in.Normalized, ex)
	}

	params := p.synthesizer.Synthesize(in, ex, variables, intent, complexity)

	errs := p.validator.Validate(in, params, intent.Type)
	if len(ex.RejectedTraffic) > 0 {
		errs = append(errs, p.validator.ValidateTrafficRatio(ex.RejectedTraffic)...)
	}

	return &domain.ParseResult{
		Intent:          intent,
		ExtractedParams: params,
		MissingParams:   IdentifyMissingParams(params, intent.Type, complexity, ctx),
		Suggestions:     GenerateSuggestions(in, params, intent, complexity, ctx),
		Errors:          errs,
		Complexity:      &complexity,
	}
}

// GetExperimentTemplates returns the template catalog
func (p *Parser) GetExperimentTemplates() []domain.ExperimentTemplate {
	return p.catalog.Templates()
}

// Templates implements domain.TemplateCatalog
func (p *Parser) Templates() []domain.ExperimentTemplate {
	return p.catalog.Templates()
}

// Template implements domain.TemplateCatalog
func (p *Parser) Template(id string) (domain.ExperimentTemplate, bool) {
	return p.catalog.Template(id)
}

// ApplyTemplate merges user overrides onto a named template
func (p *Parser) ApplyTemplate(id string, user *domain.ExtractedParams) (*domain.ExtractedParams, error) {
	return p.catalog.ApplyTemplate(id, user)
}

// AssessConfigurationQuality scores a configuration on the 0-100 rubric
func (p *Parser) AssessConfigurationQuality(params *domain.ExtractedParams, intent domain.IntentType) domain.QualityAssessment {
	return AssessConfigurationQuality(params, intent)
}

// GetIntelligentSuggestions returns structured advice for a configuration
func (p *Parser) GetIntelligentSuggestions(params *domain.ExtractedParams, ctx *domain.EnhancedInputContext) []domain.IntelligentSuggestion {
	return GetIntelligentSuggestions(params, ctx)
}

// GenerateVariableCombinations expands variables into treatment groups
func (p *Parser) GenerateVariableCombinations(variables []domain.Variable) []domain.VariableCombination {
	return GenerateVariableCombinations(variables)
}

// ValidateParams checks an externally edited configuration
func (p *Parser) ValidateParams(params *domain.ExtractedParams, intent domain.IntentType) []string {
	return p.validator.ValidateParams(params, intent)
}

var (
	_ domain.IntentParser         = (*Parser)(nil)
	_ domain.TemplateCatalog      = (*Parser)(nil)
	_ domain.TemplateCatalog      = (*TemplateCatalog)(nil)
	_ domain.ConfigurationAuditor = (*Parser)(nil)
)
