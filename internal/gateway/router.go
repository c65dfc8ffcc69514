package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/transfer-saga/internal/platform/metrics"
)

// Router is the event-stream side of the gateway: it consumes domain events
// and fans each one out to the connections subscribed under the event's
// user. Events for users with no live connection are dropped.
type Router struct {
	registry *Registry
	log      *slog.Logger
	metrics  *metrics.Gateway
}

func NewRouter(registry *Registry, log *slog.Logger, m *metrics.Gateway) *Router {
	return &Router{registry: registry, log: log, metrics: m}
}

// HandleMessage routes one serialized domain event. The raw message bytes
// are pushed as-is: clients receive the event exactly as it was appended to
// the log. Events that cannot be decoded are logged and skipped.
func (r *Router) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var env struct {
		Type          string `json:"type"`
		UserID        string `json:"userId"`
		TransactionID string `json:"transactionId"`
	}
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		r.log.Error("dropping undecodable event", "offset", msg.Offset, "err", err)
		return nil
	}

	delivered := r.registry.Route(env.UserID, msg.Value)
	if delivered == 0 {
		r.metrics.EventsDropped.Inc()
		r.log.Debug("no live subscriber for event",
			"type", env.Type, "userId", env.UserID, "transactionId", env.TransactionID)
		return nil
	}

	r.metrics.EventsRouted.Inc()
	r.log.Info("event forwarded",
		"type", env.Type, "userId", env.UserID, "connections", delivered)
	return nil
}
