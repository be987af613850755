package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the sum of all samples of a counter family and its number
// of series.
func gathered(t *testing.T, m *Metrics, name string) (float64, int) {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				sum += metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				sum += float64(metric.GetHistogram().GetSampleCount())
			}
		}
		return sum, len(mf.GetMetric())
	}
	return 0, 0
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveSearch("description", OutcomeOK)
	m.ObserveSearch("description", OutcomeOK)
	m.ObserveSearch("quote", OutcomeFailed)
	m.ObserveUpstream(LegAI, time.Now(), errors.New("down"))
	m.ObserveUpstream(LegCatalog, time.Now(), nil)
	m.HistoryWriteFailed()

	sum, series := gathered(t, m, "shelfscout_search_requests_total")
	assert.Equal(t, 3.0, sum)
	assert.Equal(t, 2, series)

	sum, series = gathered(t, m, "shelfscout_upstream_failures_total")
	assert.Equal(t, 1.0, sum)
	assert.Equal(t, 1, series)

	sum, series = gathered(t, m, "shelfscout_upstream_duration_seconds")
	assert.Equal(t, 2.0, sum)
	assert.Equal(t, 2, series)

	sum, _ = gathered(t, m, "shelfscout_history_write_failures_total")
	assert.Equal(t, 1.0, sum)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSearch("quote", OutcomeFailed)
		m.ObserveUpstream(LegAI, time.Now(), nil)
		m.HistoryWriteFailed()
	})
}
