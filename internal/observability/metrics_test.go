package observability

import (
	"testing"

	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.InterruptReceived(lightning.ReasonStrike)
	m.InterruptReceived(lightning.ReasonStrike)
	m.InterruptReceived(lightning.ReasonDisturber)
	km := 12.0
	m.StrikeRecorded(&km)
	m.StrikeRecorded(nil)
	m.HandlerError("distance")
	m.PersistError()
	m.IntervalFlushed(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Interrupts.WithLabelValues("strike")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Interrupts.WithLabelValues("disturber")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Strikes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StrikesOutOfRange))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlerErrors.WithLabelValues("distance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistErrors))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.IntervalStrikes))
}

func TestNewMetricsRegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
