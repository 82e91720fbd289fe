package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
	"github.com/experiment-designer/internal/metrics"
	"github.com/experiment-designer/internal/tracing"
)

func newTestController(t *testing.T, mutate func(*config.Config)) (*Controller, *metrics.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Logging.EnableFile = false
	if mutate != nil {
		mutate(cfg)
	}
	logger, err := logging.New(logging.Config{Level: logging.DEBUG, Output: io.Discard})
	require.NoError(t, err)
	m := metrics.New(prometheus.NewRegistry())
	return New(WithConfig(cfg), WithLogger(logger), WithMetrics(m)), m
}

func TestNewController(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NotNil(t, ctrl)
	assert.NotNil(t, ctrl.cfg)
	assert.NotNil(t, ctrl.logger)
	assert.NotNil(t, ctrl.Parser())
	assert.Len(t, ctrl.Templates(), 5)
}

func TestParse(t *testing.T) {
	ctrl, m := newTestController(t, nil)

	result, err := ctrl.Parse(context.Background(), ParseRequest{
		Text: "我想测试GPT-4和Claude-3在客服场景的效果，各分配50%流量，运行7天",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentComparison, result.Intent.Type)
	assert.Equal(t, []int{50, 50}, result.ExtractedParams.TrafficRatio)

	got := testutil.ToFloat64(m.ParseRequests.WithLabelValues("comparison", string(domain.StrategyGenerateWithConfirm)))
	assert.Equal(t, 1.0, got)
}

func TestParseCancelled(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ctrl.Parse(ctx, ParseRequest{Text: "对比GPT-4和Claude"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseBatchKeepsOrder(t *testing.T) {
	ctrl, m := newTestController(t, func(c *config.Config) { c.Parser.Concurrency = 4 })

	var items []ParseRequest
	for i := 0; i < 40; i++ {
		items = append(items, ParseRequest{Text: fmt.Sprintf("对比GPT-4和Claude，运行%d天", i+1)})
	}

	resp, err := ctrl.ParseBatch(context.Background(), BatchRequest{Items: items})
	require.NoError(t, err)
	require.Len(t, resp.Results, len(items))
	for i, r := range resp.Results {
		require.NotNil(t, r)
		assert.Equal(t, items[i].Text, r.ExtractedParams.Description)
	}
	assert.Equal(t, uint64(1), histogramCount(t, m.BatchSize))
}

func TestParseBatchLimits(t *testing.T) {
	ctrl, _ := newTestController(t, func(c *config.Config) { c.Parser.BatchLimit = 2 })

	_, err := ctrl.ParseBatch(context.Background(), BatchRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	items := []ParseRequest{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	_, err = ctrl.ParseBatch(context.Background(), BatchRequest{Items: items})
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
	assert.Contains(t, err.Error(), "3 items")
}

func TestParseBatchCancelled(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ctrl.ParseBatch(ctx, BatchRequest{Items: []ParseRequest{{Text: "对比两个模型"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestApplyTemplate(t *testing.T) {
	ctrl, m := newTestController(t, nil)

	params, err := ctrl.ApplyTemplate(context.Background(), "cost_efficiency", &domain.ExtractedParams{Models: []string{"gpt-4o", "glm-4"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "glm-4"}, params.Models)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TemplateApplications.WithLabelValues("cost_efficiency", "success")))

	_, err = ctrl.ApplyTemplate(context.Background(), "does-not-exist", nil)
	assert.True(t, errors.Is(err, domain.ErrTemplateNotFound))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TemplateApplications.WithLabelValues("unknown", "not_found")))
}

func TestAssess(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx := context.Background()

	_, err := ctrl.Assess(ctx, AssessRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = ctrl.Assess(ctx, AssessRequest{Params: &domain.ExtractedParams{}, Intent: "nonsense"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "intent", ve.Field)

	qa, err := ctrl.Assess(ctx, AssessRequest{Params: &domain.ExtractedParams{Models: []string{"gpt-4o"}}})
	require.NoError(t, err)
	assert.Equal(t, 8, qa.Score)
}

func TestSuggestions(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	_, err := ctrl.Suggestions(context.Background(), SuggestionsRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := ctrl.Suggestions(context.Background(), SuggestionsRequest{Params: &domain.ExtractedParams{}})
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestCombinations(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx := context.Background()

	_, err := ctrl.Combinations(ctx, CombinationsRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	many := make([]string, 20)
	for i := range many {
		many[i] = fmt.Sprint(i)
	}
	_, err = ctrl.Combinations(ctx, CombinationsRequest{Variables: []domain.Variable{
		{Name: "a", Values: many}, {Name: "b", Values: many},
	}})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "400 combinations"))

	_, err = ctrl.Combinations(ctx, CombinationsRequest{Variables: []domain.Variable{{Name: "model"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	combos, err := ctrl.Combinations(ctx, CombinationsRequest{Variables: []domain.Variable{
		{Name: "model", Values: []string{"a", "b"}},
		{Name: "temp", Values: []string{"0.2", "0.7"}},
	}})
	require.NoError(t, err)
	assert.Len(t, combos, 4)
}

func TestCombinationsCountOverflow(t *testing.T) {
	ctrl, _ := newTestController(t, nil)

	for _, n := range []int{63, 64} {
		t.Run(fmt.Sprintf("%d binary variables", n), func(t *testing.T) {
			vars := make([]domain.Variable, n)
			for i := range vars {
				vars[i] = domain.Variable{Name: fmt.Sprintf("v%d", i), Values: []string{"on", "off"}}
			}
			combos, err := ctrl.Combinations(context.Background(), CombinationsRequest{Variables: vars})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.ErrorContains(t, err, "exceed limit of 256")
			assert.Nil(t, combos)
		})
	}
}

func TestParseRecordsSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	p := tracing.NewProvider("experiment-designer", "test", sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctrl, _ := newTestController(t, nil)
	_, err := ctrl.ParseBatch(context.Background(), BatchRequest{Items: []ParseRequest{{Text: "对比GPT-4和Claude"}}})
	require.NoError(t, err)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"controller.Parse", "controller.ParseBatch"}, names)
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(h))
	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	return families[0].GetMetric()[0].GetHistogram().GetSampleCount()
}
