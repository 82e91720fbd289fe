// Package cli implements the command-line interface for the experiment designer.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/controller"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
	"github.com/experiment-designer/internal/web"
)

// commandTimeout bounds a single CLI operation
const commandTimeout = 30 * time.Second

// CLI encapsulates the command-line interface
type CLI struct {
	rootCmd *cobra.Command
	logger  *logging.Logger
	ctrl    *controller.Controller
	cfg     *config.Config
}

// New creates a new CLI instance
func New() *CLI {
	cfg := config.Get()
	logger, err := logging.New(logging.Config{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		LogDir:      cfg.Logging.LogDir,
		EnableFile:  cfg.Logging.EnableFile,
		EnableJSON:  cfg.Logging.EnableJSON,
		EnableColor: cfg.Logging.EnableColor,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
		Component:   "cli",
		Version:     controller.Version,
		// keep stdout clean for piping JSON output
		Output: os.Stderr,
	})
	if err != nil {
		logger = logging.GetDefault()
	}
	return newCLI(cfg, logger)
}

func newCLI(cfg *config.Config, logger *logging.Logger) *CLI {
	c := &CLI{
		logger: logger,
		cfg:    cfg,
		ctrl:   controller.New(controller.WithConfig(cfg), controller.WithLogger(logger)),
	}
	c.buildCommands()
	return c
}

// Execute runs the CLI
func (c *CLI) Execute() error {
	defer c.logger.Close()
	return c.rootCmd.Execute()
}

// buildCommands constructs the command tree
func (c *CLI) buildCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "experiment-designer",
		Short: "Turn natural-language A/B test requests into experiment configurations",
		Long: `
  ┌─┐─┐ ┬┌─┐┌─┐┬─┐┬┌┬┐┌─┐┌┐┌┌┬┐  ┌┬┐┌─┐┌─┐┬┌─┐┌┐┌┌─┐┬─┐
  ├┤ ┌┴┬┘├─┘├┤ ├┬┘││││├┤ │││ │    ││├┤ └─┐││ ┬│││├┤ ├┬┘
  └─┘┴ └─┴  └─┘┴└─┴┴ ┴└─┘┘└┘ ┴   ─┴┘└─┘└─┘┴└─┘┘└┘└─┘┴└─

  Describe an experiment in plain Chinese or English and get back a
  structured configuration: models, traffic split, duration, budget,
  metrics and variables, plus what is still missing and what to fix.

  Nothing is executed. The output is a design for you to review.`,
		Version:       controller.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c.rootCmd.AddCommand(c.parseCmd())
	c.rootCmd.AddCommand(c.templatesCmd())
	c.rootCmd.AddCommand(c.applyCmd())
	c.rootCmd.AddCommand(c.assessCmd())
	c.rootCmd.AddCommand(c.suggestCmd())
	c.rootCmd.AddCommand(c.combinationsCmd())
	c.rootCmd.AddCommand(c.webCmd())
	c.rootCmd.AddCommand(c.logsCmd())
}

// parseCmd creates the parse command
func (c *CLI) parseCmd() *cobra.Command {
	var (
		contextFile  string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "parse TEXT",
		Short: "Parse an experiment description",
		Long: `Parse a natural-language experiment description into a structured configuration.

Examples:
  # Compare two models on an even split
  experiment-designer parse "我想测试GPT-4和Claude-3在客服场景的效果，各分配50%流量，运行7天"

  # Include caller context (profile, peak season, timestamp)
  experiment-designer parse "对比GPT-4和Claude" --context ctx.yaml

  # Machine-readable output
  experiment-designer parse "compare gpt-4o and glm-4 for 14 days" --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputCtx, err := loadContext(contextFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			text := strings.Join(args, " ")
			c.logger.Info("Starting parse command: runes=%d context=%v", len([]rune(text)), inputCtx != nil)
			result, err := c.ctrl.Parse(ctx, controller.ParseRequest{Text: text, Context: inputCtx})
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return displayParseResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&contextFile, "context", "", "YAML file with user profile, business context and timestamp")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// templatesCmd creates the templates command
func (c *CLI) templatesCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List experiment templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := c.ctrl.Templates()
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), templates)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tINTENT\tGROUPS\tDESCRIPTION")
			fmt.Fprintln(w, "--\t----\t------\t------\t-----------")
			for _, t := range templates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Name, t.Intent, t.Params.GroupCount(), t.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// applyCmd creates the apply command
func (c *CLI) applyCmd() *cobra.Command {
	var (
		models       []string
		metric       string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "apply ID",
		Short: "Apply an experiment template",
		Long: `Apply a catalog template, optionally overriding its models and primary metric.

Examples:
  experiment-designer apply model_comparison --models gpt-4o,claude-3-5-sonnet
  experiment-designer apply cost_efficiency --metric cost_per_request --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := c.applyTemplate(cmd.Context(), args[0], models, metric)
			if err != nil {
				return err
			}
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), params)
			}
			return displayParams(cmd.OutOrStdout(), params)
		},
	}

	cmd.Flags().StringSliceVar(&models, "models", nil, "Models to substitute (e.g., --models gpt-4o,glm-4)")
	cmd.Flags().StringVar(&metric, "metric", "", "Primary metric override")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

// assessCmd creates the assess command
func (c *CLI) assessCmd() *cobra.Command {
	var (
		templateID string
		models     []string
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Score a template configuration",
		Long: `Score a template configuration on the 0-100 quality rubric.

Examples:
  experiment-designer assess --template multivariate_tuning
  experiment-designer assess --template model_comparison --models gpt-4o`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if templateID == "" {
				return fmt.Errorf("--template is required")
			}
			params, err := c.applyTemplate(cmd.Context(), templateID, models, "")
			if err != nil {
				return err
			}
			tmpl, _ := c.ctrl.Parser().Template(templateID)
			qa, err := c.ctrl.Assess(cmd.Context(), controller.AssessRequest{Params: params, Intent: tmpl.Intent})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "📊 Quality score: %d/100 (%s)\n", qa.Score, templateID)
			printList(out, "Feedback", "•", qa.Feedback)
			printList(out, "Recommendations", "💡", qa.Recommendations)
			return nil
		},
	}

	cmd.Flags().StringVar(&templateID, "template", "", "Template id to assess")
	cmd.Flags().StringSliceVar(&models, "models", nil, "Models to substitute before scoring")
	return cmd
}

// suggestCmd creates the suggest command
func (c *CLI) suggestCmd() *cobra.Command {
	var contextFile string

	cmd := &cobra.Command{
		Use:   "suggest TEXT",
		Short: "Parse a description and list prioritized suggestions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputCtx, err := loadContext(contextFile)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			result, err := c.ctrl.Parse(ctx, controller.ParseRequest{Text: strings.Join(args, " "), Context: inputCtx})
			if err != nil {
				return err
			}
			suggestions, err := c.ctrl.Suggestions(ctx, controller.SuggestionsRequest{Params: result.ExtractedParams, Context: inputCtx})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(suggestions) == 0 {
				fmt.Fprintln(out, "✅ No suggestions: the configuration looks complete.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PRIORITY\tTYPE\tTITLE\tCONFIDENCE\tDESCRIPTION")
			fmt.Fprintln(w, "--------\t----\t-----\t----------\t-----------")
			for _, s := range suggestions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", s.Priority, s.Type, s.Title, s.Confidence, s.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&contextFile, "context", "", "YAML file with user profile, business context and timestamp")
	return cmd
}

// combinationsCmd creates the combinations command
func (c *CLI) combinationsCmd() *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "combinations",
		Short: "Expand variables into treatment groups",
		Long: `Expand experimental variables into their full-factorial treatment groups.

Examples:
  experiment-designer combinations --var model=gpt-4o,glm-4 --var temperature=0.2,0.7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVariables(vars)
			if err != nil {
				return err
			}
			combos, err := c.ctrl.Combinations(cmd.Context(), controller.CombinationsRequest{Variables: variables})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tGROUP\tTRAFFIC\tDESCRIPTION")
			fmt.Fprintln(w, "--\t-----\t-------\t-----------")
			for _, combo := range combos {
				fmt.Fprintf(w, "%s\t%s\t%.2f%%\t%s\n", combo.ID, combo.GroupName, combo.ExpectedTrafficRatio, combo.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable as name=value1,value2 (repeatable)")
	return cmd
}

// webCmd creates the web API command
func (c *CLI) webCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start the HTTP API",
		Long: `Start the JSON HTTP API serving parse, templates, assess, suggestions and combinations.

Examples:
  # Start on the configured port (default 8000)
  experiment-designer web

  # Start on custom port
  experiment-designer web --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWeb(cmd, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the API server on (default from config)")
	return cmd
}

// logsCmd lists the rotated log files under the configured log directory
func (c *CLI) logsCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List log files",
		RunE: func(cmd *cobra.Command, args []string) error {
			files := logging.GetLogFiles(c.cfg.Logging.LogDir)
			if outputFormat == "json" {
				return writeJSON(cmd.OutOrStdout(), files)
			}
			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No log files in %s\n", c.cfg.Logging.LogDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%s\n", f.Name, logging.FormatSize(f.Size), f.Modified.Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	return cmd
}

func (c *CLI) runWeb(cmd *cobra.Command, port int) error {
	if port <= 0 {
		port = c.cfg.Server.Port
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🌐 Starting Experiment Designer API...")
	fmt.Fprintf(out, "   Listening on http://localhost:%d/api\n", port)
	fmt.Fprintln(out, "   Press Ctrl+C to stop")
	fmt.Fprintln(out)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return web.NewServer(port, web.WithConfig(c.cfg), web.WithLogger(c.logger)).Start(ctx)
}

func (c *CLI) applyTemplate(ctx context.Context, id string, models []string, metric string) (*domain.ExtractedParams, error) {
	var overrides *domain.ExtractedParams
	if len(models) > 0 || metric != "" {
		overrides = &domain.ExtractedParams{Models: models, PrimaryMetric: metric}
	}
	return c.ctrl.ApplyTemplate(ctx, id, overrides)
}

// loadContext reads an optional YAML context file
func loadContext(path string) (*domain.EnhancedInputContext, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}
	var inputCtx domain.EnhancedInputContext
	if err := yaml.Unmarshal(data, &inputCtx); err != nil {
		return nil, fmt.Errorf("parse context file %s: %w", path, err)
	}
	return &inputCtx, nil
}

// parseVariables turns name=a,b flags into variables
func parseVariables(flags []string) ([]domain.Variable, error) {
	if len(flags) == 0 {
		return nil, fmt.Errorf("at least one --var is required")
	}
	variables := make([]domain.Variable, 0, len(flags))
	for _, f := range flags {
		name, rawValues, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q: want name=value1,value2", f)
		}
		v := domain.Variable{Name: name, Type: domain.VariableNumeric}
		for _, raw := range strings.Split(rawValues, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				v.Type = domain.VariableCategorical
			}
			v.Values = append(v.Values, raw)
		}
		if len(v.Values) == 0 {
			return nil, fmt.Errorf("invalid --var %q: no values", f)
		}
		variables = append(variables, v)
	}
	return variables, nil
}

func displayParseResult(out io.Writer, result *domain.ParseResult) error {
	p := result.ExtractedParams
	strategy := domain.StrategyRequestClarification
	if p.ConfidenceBreakdown != nil {
		strategy = p.ConfidenceBreakdown.Strategy
	}

	fmt.Fprintf(out, "🎯 Intent: %s (%.2f) - %s\n", result.Intent.Type, result.Intent.Confidence, result.Intent.Description)
	if len(result.Intent.Alternatives) > 0 {
		fmt.Fprintf(out, "   Alternatives: %v\n", result.Intent.Alternatives)
	}
	fmt.Fprintf(out, "📈 Extraction confidence: %.2f  strategy: %s\n", p.ExtractionConfidence, strategy)
	if result.Complexity != nil {
		fmt.Fprintf(out, "🧩 Complexity: %s (setup ~%d min, min %d days)\n",
			result.Complexity.Level, result.Complexity.EstimatedSetupTime, result.Complexity.RecommendedMinDuration)
	}
	fmt.Fprintln(out)

	if err := displayParams(out, p); err != nil {
		return err
	}

	if len(result.MissingParams.Required) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "❓ Missing required parameters:")
		for _, f := range result.MissingParams.Required {
			fmt.Fprintf(out, "   • %s: %s\n", f.Field, f.Description)
		}
	}
	printList(out, "Suggestions", "💡", result.Suggestions)
	printList(out, "Errors", "❌", result.Errors)
	return nil
}

func displayParams(out io.Writer, p *domain.ExtractedParams) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tVALUE")
	fmt.Fprintln(w, "-----\t-----")
	row := func(field, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s\t%s\n", field, value)
		}
	}
	row("name", p.Name)
	row("models", strings.Join(p.Models, ", "))
	row("traffic", joinInts(p.TrafficRatio, "/"))
	row("splitting", p.SplittingStrategy)
	row("primary metric", p.PrimaryMetric)
	row("secondary metrics", strings.Join(p.SecondaryMetrics, ", "))
	row("temperatures", joinFloats(p.Temperatures))
	row("top_p", joinFloats(p.TopP))
	row("max tokens", joinInts(p.MaxTokens, ", "))
	if d := p.Duration; !d.IsEmpty() {
		row("duration", formatDuration(d))
	}
	if b := p.Budget; !b.IsEmpty() {
		row("budget", formatBudget(b))
	}
	for _, v := range p.Variables {
		row("variable "+v.Name, fmt.Sprintf("%s [%s]", strings.Join(v.Values, ", "), v.Type))
	}
	for _, s := range p.UserSegments {
		row("segment "+s.Name, fmt.Sprintf("%d%% (%s)", s.TrafficRatio, s.Criteria))
	}
	row("stratify by", strings.Join(p.StratificationDimensions, ", "))
	return w.Flush()
}

func formatDuration(d *domain.Duration) string {
	var parts []string
	if d.MinDays != nil && d.MaxDays != nil && *d.MinDays != *d.MaxDays {
		parts = append(parts, fmt.Sprintf("%d-%d days", *d.MinDays, *d.MaxDays))
	} else if d.MaxDays != nil {
		parts = append(parts, fmt.Sprintf("%d days", *d.MaxDays))
	} else if d.MinDays != nil {
		parts = append(parts, fmt.Sprintf(">= %d days", *d.MinDays))
	}
	if d.TargetSamples != nil {
		parts = append(parts, fmt.Sprintf("%d samples", *d.TargetSamples))
	}
	for _, c := range d.AutoStopConditions {
		parts = append(parts, "stop on "+string(c))
	}
	return strings.Join(parts, ", ")
}

func formatBudget(b *domain.Budget) string {
	var parts []string
	if b.MaxCost != nil {
		parts = append(parts, fmt.Sprintf("max %.2f", *b.MaxCost))
	}
	if b.DailyLimit != nil {
		parts = append(parts, fmt.Sprintf("daily %.2f", *b.DailyLimit))
	}
	if b.CostPerGroup != nil {
		parts = append(parts, fmt.Sprintf("per group %.2f", *b.CostPerGroup))
	}
	return strings.Join(parts, ", ")
}

func printList(out io.Writer, title, bullet string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "   %s %s\n", bullet, item)
	}
}

func joinInts(vals []int, sep string) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, sep)
}

func joinFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
