// Package metrics exposes Prometheus collectors for queue and dispatch
// activity. Collectors register on a caller-supplied registerer so tests and
// the CLI can each use their own registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portalsync"

// Collectors implements queue.Observer and backend.DispatchObserver.
type Collectors struct {
	depth      prometheus.Gauge
	enqueued   *prometheus.CounterVec
	replayed   *prometheus.CounterVec
	dispatched *prometheus.CounterVec
	online     prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Number of actions waiting in the offline queue.",
		}),
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "enqueued_total",
			Help:      "Actions deferred to the offline queue.",
		}, []string{"action_type"}),
		replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "replayed_total",
			Help:      "Replay attempts of queued actions by result.",
		}, []string{"action_type", "result"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "dispatched_total",
			Help:      "Requests dispatched to a backend by mode and outcome.",
		}, []string{"mode", "action_type", "outcome"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connectivity",
			Name:      "online",
			Help:      "1 when the live backend is considered reachable.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.depth, c.enqueued, c.replayed, c.dispatched, c.online} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// QueueDepth records the current queue size.
func (c *Collectors) QueueDepth(depth int) { c.depth.Set(float64(depth)) }

// ActionEnqueued counts a deferred action.
func (c *Collectors) ActionEnqueued(actionType string) {
	c.enqueued.WithLabelValues(actionType).Inc()
}

// ActionReplayed counts a replay attempt.
func (c *Collectors) ActionReplayed(actionType, result string) {
	c.replayed.WithLabelValues(actionType, result).Inc()
}

// Dispatched counts a backend request.
func (c *Collectors) Dispatched(mode, actionType, outcome string) {
	c.dispatched.WithLabelValues(mode, actionType, outcome).Inc()
}

// SetOnline records the connectivity state.
func (c *Collectors) SetOnline(online bool) {
	if online {
		c.online.Set(1)
		return
	}
	c.online.Set(0)
}

// Handler serves the metrics in gatherer over HTTP.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
