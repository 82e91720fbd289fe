// Package controller provides programmatic API access to the experiment
// parser. The web server, the Lambda handler and the CLI all go through it so
// every surface gets the same limits, logging, metrics and tracing.
package controller

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/experiment-designer/internal/analyzer"
	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
	"github.com/experiment-designer/internal/metrics"
	"github.com/experiment-designer/internal/tracing"
)

// Version is reported by the health endpoint and attached to logs
const Version = "1.0.0"

// Controller provides programmatic access to the parser APIs
type Controller struct {
	cfg     *config.Config
	logger  *logging.Logger
	parser  *analyzer.Parser
	metrics *metrics.Metrics
}

// Option customizes a Controller
type Option func(*Controller)

// WithConfig overrides the global configuration
func WithConfig(cfg *config.Config) Option {
	return func(c *Controller) { c.cfg = cfg }
}

// WithLogger overrides the controller logger
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithMetrics enables Prometheus instrumentation
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithParser replaces the default parser, e.g. with a custom template catalog
func WithParser(p *analyzer.Parser) Option {
	return func(c *Controller) { c.parser = p }
}

// New creates a new Controller instance
func New(opts ...Option) *Controller {
	c := &Controller{}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg == nil {
		c.cfg = config.Get()
	}
	if c.logger == nil {
		logger, err := logging.New(logging.Config{
			Level:       logging.ParseLevel(c.cfg.Logging.Level),
			LogDir:      c.cfg.Logging.LogDir,
			EnableFile:  c.cfg.Logging.EnableFile,
			EnableJSON:  c.cfg.Logging.EnableJSON,
			EnableColor: c.cfg.Logging.EnableColor,
			MaxSizeMB:   c.cfg.Logging.MaxSizeMB,
			MaxBackups:  c.cfg.Logging.MaxBackups,
			MaxAgeDays:  c.cfg.Logging.MaxAgeDays,
			Compress:    c.cfg.Logging.Compress,
			Component:   "controller",
			Version:     Version,
		})
		if err != nil || logger == nil {
			logger = logging.GetDefault()
		}
		c.logger = logger
	}
	if c.parser == nil {
		c.parser = analyzer.NewParser()
	}
	return c
}

// Parser returns the underlying parser
func (c *Controller) Parser() *analyzer.Parser {
	return c.parser
}

// ParseRequest is one utterance with optional caller context
type ParseRequest struct {
	Text    string                       `json:"text"`
	Context *domain.EnhancedInputContext `json:"context,omitempty"`
}

// BatchRequest is a list of utterances parsed together
type BatchRequest struct {
	Items []ParseRequest `json:"items"`
}

// BatchResponse holds one result per item in input order
type BatchResponse struct {
	Results []*domain.ParseResult `json:"results"`
}

// AssessRequest asks for a quality score of a finished configuration
type AssessRequest struct {
	Params *domain.ExtractedParams `json:"params"`
	Intent domain.IntentType       `json:"intent"`
}

// SuggestionsRequest asks for structured advice on a configuration
type SuggestionsRequest struct {
	Params  *domain.ExtractedParams      `json:"params"`
	Context *domain.EnhancedInputContext `json:"context,omitempty"`
}

// CombinationsRequest asks for the treatment groups of a set of variables
type CombinationsRequest struct {
	Variables []domain.Variable `json:"variables"`
}

// Parse runs the pipeline over one utterance
func (c *Controller) Parse(ctx context.Context, req ParseRequest) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "controller.Parse")
	defer span.End()

	start := time.Now()
	result := c.parser.ParseInput(req.Text, req.Context)
	elapsed := time.Since(start)

	strategy := domain.StrategyRequestClarification
	if b := result.ExtractedParams.ConfidenceBreakdown; b != nil {
		strategy = b.Strategy
	}
	span.SetAttributes(
		tracing.AttrInputRunes.Int(len([]rune(req.Text))),
		tracing.AttrIntent.String(result.Intent.Type.String()),
		tracing.AttrConfidence.Float64(result.ExtractedParams.ExtractionConfidence),
		tracing.AttrStrategy.String(string(strategy)),
		tracing.AttrComplexity.String(string(result.Complexity.Level)),
	)

	if c.metrics != nil {
		c.metrics.ParseRequests.WithLabelValues(result.Intent.Type.String(), string(strategy)).Inc()
		c.metrics.ParseDuration.Observe(elapsed.Seconds())
		c.metrics.ExtractionConfidence.Observe(result.ExtractedParams.ExtractionConfidence)
		if n := len(result.Errors); n > 0 {
			c.metrics.ValidationIssues.WithLabelValues(result.Intent.Type.String()).Add(float64(n))
		}
	}

	c.logger.Debug("Parsed input: intent=%s confidence=%.2f strategy=%s missing=%d errors=%d took=%s",
		result.Intent.Type, result.ExtractedParams.ExtractionConfidence, strategy,
		len(result.MissingParams.Required), len(result.Errors), elapsed)
	return result, nil
}

// ParseBatch parses every item concurrently, bounded by the configured limit.
// Results keep input order.
func (c *Controller) ParseBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	n := len(req.Items)
	if n == 0 {
		return nil, domain.NewValidationError("items", "batch must contain at least one item")
	}
	if limit := c.cfg.Parser.BatchLimit; limit > 0 && n > limit {
		c.logger.Warn("Rejected batch of %d items (limit %d)", n, limit)
		return nil, fmt.Errorf("%w: %d items exceeds limit of %d", domain.ErrBatchTooLarge, n, limit)
	}

	ctx, span := tracing.StartSpan(ctx, "controller.ParseBatch")
	defer span.End()
	span.SetAttributes(tracing.AttrBatchSize.Int(n))

	if c.cfg.Parser.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Parser.Timeout)
		defer cancel()
	}

	results := make([]*domain.ParseResult, n)
	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Parser.Concurrency > 0 {
		g.SetLimit(c.cfg.Parser.Concurrency)
	}
	for i, item := range req.Items {
		i, item := i, item
		g.Go(func() error {
			r, err := c.Parse(gctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("Batch parse failed: %v", err)
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.BatchSize.Observe(float64(n))
	}
	c.logger.Info("Parsed batch of %d items", n)
	return &BatchResponse{Results: results}, nil
}

// Templates returns the experiment template catalog
func (c *Controller) Templates() []domain.ExperimentTemplate {
	return c.parser.GetExperimentTemplates()
}

// ApplyTemplate merges overrides onto the named template
func (c *Controller) ApplyTemplate(ctx context.Context, id string, overrides *domain.ExtractedParams) (*domain.ExtractedParams, error) {
	ctx, span := tracing.StartSpan(ctx, "controller.ApplyTemplate")
	defer span.End()
	span.SetAttributes(tracing.AttrTemplateID.String(id))

	params, err := c.parser.ApplyTemplate(id, overrides)
	if err != nil {
		tracing.RecordError(ctx, err)
		c.recordTemplate(id, "not_found")
		c.logger.Warn("Template apply failed: id=%s err=%v", id, err)
		return nil, err
	}
	c.recordTemplate(id, "success")
	c.logger.Info("Applied template %s: models=%v groups=%d", id, params.Models, len(params.TrafficRatio))
	return params, nil
}

func (c *Controller) recordTemplate(id, status string) {
	if c.metrics == nil {
		return
	}
	if _, ok := c.parser.Template(id); !ok {
		// unbounded label values from unknown ids collapse into one series
		id = "unknown"
	}
	c.metrics.TemplateApplications.WithLabelValues(id, status).Inc()
}

// Assess scores a configuration on the 0-100 rubric
func (c *Controller) Assess(ctx context.Context, req AssessRequest) (domain.QualityAssessment, error) {
	if req.Params == nil {
		return domain.QualityAssessment{}, domain.NewValidationError("params", "params are required")
	}
	intent, err := resolveIntent(req.Intent)
	if err != nil {
		return domain.QualityAssessment{}, err
	}

	_, span := tracing.StartSpan(ctx, "controller.Assess")
	defer span.End()

	qa := c.parser.AssessConfigurationQuality(req.Params, intent)
	c.logger.Debug("Assessed configuration: intent=%s score=%d", intent, qa.Score)
	return qa, nil
}

// Suggestions returns prioritized advice for a configuration
func (c *Controller) Suggestions(ctx context.Context, req SuggestionsRequest) ([]domain.IntelligentSuggestion, error) {
	if req.Params == nil {
		return nil, domain.NewValidationError("params", "params are required")
	}

	_, span := tracing.StartSpan(ctx, "controller.Suggestions")
	defer span.End()

	return c.parser.GetIntelligentSuggestions(req.Params, req.Context), nil
}

// Combinations expands variables into their treatment groups
func (c *Controller) Combinations(ctx context.Context, req CombinationsRequest) ([]domain.VariableCombination, error) {
	if len(req.Variables) == 0 {
		return nil, domain.NewValidationError("variables", "at least one variable is required")
	}
	groups := (&domain.ExtractedParams{Variables: req.Variables}).CombinationCount()
	switch {
	case groups == 0:
		return nil, domain.NewValidationError("variables", "every variable needs at least one value")
	case groups == math.MaxInt:
		return nil, domain.NewValidationError("variables", fmt.Sprintf("combinations exceed limit of %d", domain.MaxCombinationGroups))
	case groups > domain.MaxCombinationGroups:
		return nil, domain.NewValidationError("variables", fmt.Sprintf("%d combinations exceeds limit of %d", groups, domain.MaxCombinationGroups))
	}

	_, span := tracing.StartSpan(ctx, "controller.Combinations")
	defer span.End()

	return c.parser.GenerateVariableCombinations(req.Variables), nil
}

// resolveIntent defaults an empty intent to comparison and rejects unknown ones
func resolveIntent(t domain.IntentType) (domain.IntentType, error) {
	if t == "" {
		return domain.IntentComparison, nil
	}
	intent, ok := domain.ParseIntentType(string(t))
	if !ok {
		return "", domain.NewValidationError("intent", fmt.Sprintf("unknown intent %q", t))
	}
	return intent, nil
}
