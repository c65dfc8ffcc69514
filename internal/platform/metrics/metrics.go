package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Orchestrator holds the Prometheus metrics of the saga orchestrator.
type Orchestrator struct {
	CommandsProcessed prometheus.Counter
	EventsEmitted     *prometheus.CounterVec
	DeadLetters       prometheus.Counter
}

// NewOrchestrator creates and registers the orchestrator metrics on reg.
func NewOrchestrator(reg prometheus.Registerer) *Orchestrator {
	factory := promauto.With(reg)
	return &Orchestrator{
		CommandsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_commands_processed_total",
			Help: "Total number of transfer commands consumed by the orchestrator",
		}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saga_events_emitted_total",
			Help: "Total number of domain events emitted, by event type",
		}, []string{"type"}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Name: "saga_dead_letters_total",
			Help: "Total number of commands routed to the dead-letter stream",
		}),
	}
}

// Gateway holds the Prometheus metrics of the fan-out gateway.
type Gateway struct {
	ActiveConnections prometheus.Gauge
	EventsRouted      prometheus.Counter
	EventsDropped     prometheus.Counter
}

// NewGateway creates and registers the gateway metrics on reg.
func NewGateway(reg prometheus.Registerer) *Gateway {
	factory := promauto.With(reg)
	return &Gateway{
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_active_connections",
			Help: "Number of currently open WebSocket connections",
		}),
		EventsRouted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_events_routed_total",
			Help: "Total number of events delivered to at least one subscriber",
		}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_events_dropped_total",
			Help: "Total number of events with no live subscriber",
		}),
	}
}
