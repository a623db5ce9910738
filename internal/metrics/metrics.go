package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg *prometheus.Registry

	roundsCreated  prometheus.Counter
	roundsResolved *prometheus.CounterVec
	rejected       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		roundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rps_rounds_created_total",
			Help: "Rounds committed by the server",
		}),
		roundsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rps_rounds_resolved_total",
				Help: "Rounds played, by result from the user's side",
			},
			[]string{"outcome"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rps_invalid_requests_total",
				Help: "Requests rejected before reaching a round",
			},
			[]string{"reason"},
		),
	}

	m.reg.MustRegister(
		m.roundsCreated,
		m.roundsResolved,
		m.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) RoundCreated() {
	m.roundsCreated.Inc()
}

func (m *Metrics) RoundResolved(outcome string) {
	m.roundsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
