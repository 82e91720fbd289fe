package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Logging.EnableFile = false
	logger, err := logging.New(logging.Config{Level: logging.ERROR, Output: io.Discard})
	require.NoError(t, err)
	return newCLI(cfg, logger)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := newTestCLI(t)
	var out bytes.Buffer
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetErr(io.Discard)
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.Execute()
	return out.String(), err
}

func TestCLIRootCommand(t *testing.T) {
	c := newTestCLI(t)
	require.NotNil(t, c.rootCmd)

	var names []string
	for _, cmd := range c.rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, expected := range []string{"parse", "templates", "apply", "assess", "suggest", "combinations", "web", "logs"} {
		assert.Contains(t, names, expected)
	}
}

func TestParseCommandTable(t *testing.T) {
	out, err := run(t, "parse", "我想测试GPT-4和Claude-3在客服场景的效果，各分配50%流量，运行7天")
	require.NoError(t, err)
	assert.Contains(t, out, "Intent: comparison")
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "50/50")
}

func TestParseCommandJSON(t *testing.T) {
	out, err := run(t, "parse", "对比GPT-4和Claude", "--output", "json")
	require.NoError(t, err)

	var result domain.ParseResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, domain.IntentComparison, result.Intent.Type)
	assert.Equal(t, "对比GPT-4和Claude", result.ExtractedParams.Description)
}

func TestParseCommandContextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
userProfile:
  experienceLevel: expert
businessContext:
  isPeakSeason: true
timestamp: 2026-10-17T10:00:00Z
`), 0o644))

	out, err := run(t, "suggest", "对比GPT-4和Claude", "--context", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PRIORITY")
	assert.Contains(t, out, "高峰期实验风险")

	_, err = run(t, "parse", "对比GPT-4和Claude", "--context", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read context file")
}

func TestParseCommandRequiresText(t *testing.T) {
	_, err := run(t, "parse")
	assert.Error(t, err)
}

func TestTemplatesCommand(t *testing.T) {
	out, err := run(t, "templates")
	require.NoError(t, err)
	for _, id := range []string{"model_comparison", "prompt_optimization", "cost_efficiency", "multivariate_tuning", "user_segmentation"} {
		assert.Contains(t, out, id)
	}

	out, err = run(t, "templates", "-o", "json")
	require.NoError(t, err)
	var templates []domain.ExperimentTemplate
	require.NoError(t, json.Unmarshal([]byte(out), &templates))
	assert.Len(t, templates, 5)
}

func TestApplyCommand(t *testing.T) {
	out, err := run(t, "apply", "model_comparison", "--models", "gpt-4o,glm-4", "-o", "json")
	require.NoError(t, err)
	var params domain.ExtractedParams
	require.NoError(t, json.Unmarshal([]byte(out), &params))
	assert.Equal(t, []string{"gpt-4o", "glm-4"}, params.Models)

	_, err = run(t, "apply", "nope")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestAssessCommand(t *testing.T) {
	out, err := run(t, "assess", "--template", "model_comparison")
	require.NoError(t, err)
	assert.Contains(t, out, "Quality score: 90/100")

	_, err = run(t, "assess")
	assert.ErrorContains(t, err, "--template is required")
}

func TestCombinationsCommand(t *testing.T) {
	out, err := run(t, "combinations", "--var", "model=gpt-4o,glm-4", "--var", "temperature=0.2,0.7")
	require.NoError(t, err)
	assert.Contains(t, out, "combo_4")
	assert.Contains(t, out, "25.00%")

	_, err = run(t, "combinations")
	assert.Error(t, err)
}

func TestParseVariables(t *testing.T) {
	vars, err := parseVariables([]string{"model=a,b", "temperature=0.2, 0.7"})
	require.NoError(t, err)
	require.Len(t, vars, 2)
	assert.Equal(t, domain.Variable{Name: "model", Type: domain.VariableCategorical, Values: []string{"a", "b"}}, vars[0])
	assert.Equal(t, domain.Variable{Name: "temperature", Type: domain.VariableNumeric, Values: []string{"0.2", "0.7"}}, vars[1])

	for _, bad := range []string{"model", "=a,b", "model=", "model=,"} {
		_, err := parseVariables([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "7-14 days, 2000 samples", formatDuration(&domain.Duration{
		MinDays: domain.IntPtr(7), MaxDays: domain.IntPtr(14), TargetSamples: domain.IntPtr(2000),
	}))
	assert.Equal(t, "7 days", formatDuration(&domain.Duration{MinDays: domain.IntPtr(7), MaxDays: domain.IntPtr(7)}))
	assert.Equal(t, ">= 3 days, stop on budget_exhausted", formatDuration(&domain.Duration{
		MinDays: domain.IntPtr(3), AutoStopConditions: []domain.AutoStopCondition{domain.StopOnBudgetExhaust},
	}))
}

func TestLogsCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiment-designer-2026-10-14.log"), []byte("hello\n"), 0o644))

	cfg := config.DefaultConfig()
	cfg.Logging.EnableFile = false
	cfg.Logging.LogDir = dir
	logger, err := logging.New(logging.Config{Level: logging.ERROR, Output: io.Discard})
	require.NoError(t, err)
	c := newCLI(cfg, logger)

	var out bytes.Buffer
	c.rootCmd.SetOut(&out)
	c.rootCmd.SetArgs([]string{"logs"})
	require.NoError(t, c.rootCmd.Execute())
	assert.Contains(t, out.String(), "experiment-designer-2026-10-14.log")
	assert.Contains(t, out.String(), "6 B")

	out.Reset()
	cfg.Logging.LogDir = filepath.Join(dir, "empty")
	c.rootCmd.SetArgs([]string{"logs"})
	require.NoError(t, c.rootCmd.Execute())
	assert.Contains(t, out.String(), "No log files")
}
