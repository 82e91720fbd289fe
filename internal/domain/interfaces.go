// Package domain contains interfaces that define contracts for the application.
package domain

// IntentParser turns an utterance into a full parse result.
// Implementations must be safe for concurrent use and deterministic.
type IntentParser interface {
	// ParseInput runs the whole pipeline over text and optional context
	ParseInput(text string, ctx *EnhancedInputContext) *ParseResult
}

// TemplateCatalog exposes the read-only experiment templates
type TemplateCatalog interface {
	// Templates returns every template in catalog order
	Templates() []ExperimentTemplate

	// Template returns one template by id
	Template(id string) (ExperimentTemplate, bool)
}

// ConfigurationAuditor scores a finished configuration
type ConfigurationAuditor interface {
	AssessConfigurationQuality(params *ExtractedParams, intent IntentType) QualityAssessment
}
