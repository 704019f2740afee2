package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/pkg/email"
)

// NotificationService turns lifecycle events into fire-and-forget emails.
// Dispatch failures are logged as warnings; they never roll back or block
// the mutation that triggered them.
type NotificationService struct {
	dispatcher events.Dispatcher
	sender     email.Sender
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, sender email.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		sender:     sender,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, event, []string{payload.CreatorEmail},
		fmt.Sprintf("Ticket received: %s", payload.Title),
		fmt.Sprintf("<p>Hi %s,</p><p>We received your ticket <b>%s</b> and will triage it shortly.</p>",
			payload.CreatedByName, payload.Title))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, event, []string{payload.AssigneeEmail},
		fmt.Sprintf("Ticket assigned to you: %s", payload.Title),
		fmt.Sprintf("<p>Hi %s,</p><p>The ticket <b>%s</b> has been assigned to you.</p>",
			payload.AssignedToName, payload.Title))
	return nil
}

func (n *NotificationService) handleTicketResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketResolvedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, event, []string{payload.CreatorEmail},
		fmt.Sprintf("Ticket resolved: %s", payload.Title),
		fmt.Sprintf("<p>Your ticket <b>%s</b> was resolved by %s.</p><p>%s</p><p>Reply to the ticket if the issue persists.</p>",
			payload.Title, payload.ResolvedByName, payload.SolutionText))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, event, []string{payload.CreatorEmail},
		fmt.Sprintf("Ticket update: %s", payload.Title),
		fmt.Sprintf("<p>Your ticket <b>%s</b> moved from %s to %s.</p>",
			payload.Title, payload.OldStatus, payload.NewStatus))
	return nil
}

func (n *NotificationService) send(ctx context.Context, event events.Event, to []string, subject, htmlBody string) {
	if n.sender == nil {
		return
	}
	recipients := make([]string, 0, len(to))
	for _, addr := range to {
		if addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return
	}
	if err := n.sender.Send(ctx, email.Message{To: recipients, Subject: subject, HTMLBody: htmlBody}); err != nil {
		n.logger.Warn("notification dispatch failed",
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
