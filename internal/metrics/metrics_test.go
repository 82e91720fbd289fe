package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ParseRequests.WithLabelValues("comparison", "auto_generate").Inc()
	m.ParseRequests.WithLabelValues("comparison", "auto_generate").Inc()
	m.RateLimited.Inc()
	m.ParseDuration.Observe(0.002)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ParseRequests.WithLabelValues("comparison", "auto_generate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimited))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "expdesign_parse_requests_total")
	assert.Contains(t, names, "expdesign_parse_duration_seconds")
	assert.Contains(t, names, "expdesign_rate_limited_total")
}

func TestNewIsolatedRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
