// audit/dispatcher.go
package audit

import (
	"context"

	"go.uber.org/zap"

	logger "github.com/cardlyhq/cardly/logging"
	"github.com/cardlyhq/cardly/util"
)

// Dispatcher moves audit events from the event bus into the Service.
// It is the only consumer of TopicSecurityEvent; producers never talk
// to the repository directly, so persistence outages stay out of the
// decision path.
type Dispatcher struct {
	service Service
}

// NewDispatcher creates a dispatcher and subscribes it to the bus.
func NewDispatcher(service Service, bus *util.EventBus) *Dispatcher {
	d := &Dispatcher{service: service}
	bus.Subscribe(TopicSecurityEvent, d.handle)
	return d
}

func (d *Dispatcher) handle(ctx context.Context, event util.Event) error {
	auditEvent, ok := event.Payload.(Event)
	if !ok {
		logger.Warn("Unexpected payload on audit topic", zap.String("type", event.Type))
		return nil
	}
	d.service.Record(ctx, auditEvent)
	return nil
}
