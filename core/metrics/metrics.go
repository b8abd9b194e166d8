// Package metrics exposes prometheus counters for reconcile runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Outcomes counts per-entity reconcile outcomes. It satisfies
// reconcile.Recorder.
type Outcomes struct {
	vec *prometheus.CounterVec
}

// NewOutcomes creates the guild_backup_outcomes_total counter and registers it
// with reg.
func NewOutcomes(reg prometheus.Registerer) (*Outcomes, error) {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "guild_backup",
			Name:      "outcomes_total",
			Help:      "Entities processed by reconcile and copy runs, by kind and action.",
		},
		[]string{"kind", "action"},
	)
	if err := reg.Register(vec); err != nil {
		return nil, err
	}
	return &Outcomes{vec: vec}, nil
}

// Observe increments the counter for kind and action.
func (o *Outcomes) Observe(kind, action string) {
	o.vec.WithLabelValues(kind, action).Inc()
}

// Handler serves the metrics gathered by g on a fasthttp request.
func Handler(g prometheus.Gatherer) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
