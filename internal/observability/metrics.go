// Package observability exposes the lightning service's Prometheus metrics
package observability

import (
	"github.com/chrissnell/remoteweather-lightning/internal/lightning"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the lightning service. It
// implements lightning.Observer.
type Metrics struct {
	Interrupts        *prometheus.CounterVec // labels: reason={noise,disturber,strike,...}
	Strikes           prometheus.Counter
	StrikesOutOfRange prometheus.Counter
	HandlerErrors     *prometheus.CounterVec // labels: stage
	PersistErrors     prometheus.Counter
	IntervalStrikes   prometheus.Gauge
	StrikeDistance    prometheus.Histogram
}

var _ lightning.Observer = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "as3935",
			Name:      "interrupts_total",
			Help:      "Sensor interrupts by classified reason.",
		}, []string{"reason"}),
		Strikes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "as3935",
			Name:      "strikes_total",
			Help:      "Lightning strikes added to the interval buffer.",
		}),
		StrikesOutOfRange: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "as3935",
			Name:      "strikes_out_of_range_total",
			Help:      "Strikes detected beyond the sensor's distance range.",
		}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "as3935",
			Name:      "handler_errors_total",
			Help:      "Interrupts dropped because a sensor operation failed.",
		}, []string{"stage"}),
		PersistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "as3935",
			Name:      "persist_errors_total",
			Help:      "Strikes that could not be written to the archive.",
		}),
		IntervalStrikes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "as3935",
			Name:      "interval_strikes",
			Help:      "Strike count attached to the most recent record.",
		}),
		StrikeDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "as3935",
			Name:      "strike_distance_km",
			Help:      "Estimated distance to the storm front per strike.",
			Buckets:   []float64{1, 5, 10, 14, 20, 27, 34, 40},
		}),
	}

	reg.MustRegister(m.Interrupts, m.Strikes, m.StrikesOutOfRange, m.HandlerErrors, m.PersistErrors, m.IntervalStrikes, m.StrikeDistance)
	return m
}

func (m *Metrics) InterruptReceived(reason lightning.Reason) {
	m.Interrupts.WithLabelValues(reason.String()).Inc()
}

func (m *Metrics) StrikeRecorded(distanceKm *float64) {
	m.Strikes.Inc()
	if distanceKm == nil {
		m.StrikesOutOfRange.Inc()
		return
	}
	m.StrikeDistance.Observe(*distanceKm)
}

func (m *Metrics) HandlerError(stage string) {
	m.HandlerErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) PersistError() {
	m.PersistErrors.Inc()
}

func (m *Metrics) IntervalFlushed(count int) {
	m.IntervalStrikes.Set(float64(count))
}
