package stream

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// BindDispatcher nudges the broker after every lifecycle event so live
// subscribers re-read the affected ticket.
func BindDispatcher(dispatcher events.Dispatcher, broker *Broker) {
	relay := func(ctx context.Context, event events.Event) error {
		broker.NotifyChanged(ctx, event.TicketID)
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketResolved,
		events.EventTicketMessageAdded,
		events.EventTicketDeleted,
	} {
		dispatcher.Subscribe(eventType, relay)
	}
}
