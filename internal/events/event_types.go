package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketResolved      EventType = "ticket_resolved"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketDeleted       EventType = "ticket_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UID  string      `json:"uid"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title         string                `json:"title"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      domain.TicketCategory `json:"category"`
	CreatedBy     string                `json:"created_by"`
	CreatorEmail  string                `json:"creator_email"`
	CreatedByName string                `json:"created_by_name"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssignedTo     string `json:"assigned_to"`
	AssignedToName string `json:"assigned_to_name"`
	AssigneeEmail  string `json:"assignee_email"`
	Title          string `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	Title        string              `json:"title"`
	CreatorEmail string              `json:"creator_email,omitempty"`
}

// TicketResolvedPayload payload.
type TicketResolvedPayload struct {
	Title          string `json:"title"`
	SolutionText   string `json:"solution_text"`
	ResolvedByName string `json:"resolved_by_name"`
	CreatorEmail   string `json:"creator_email"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string      `json:"message_id"`
	SenderID    string      `json:"sender_id"`
	SenderRole  domain.Role `json:"sender_role"`
	BodyPreview string      `json:"body_preview"`
	Reopened    bool        `json:"reopened"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Title             string `json:"title"`
	AttachmentObjects int    `json:"attachment_objects"`
	FailedDeletes     int    `json:"failed_deletes"`
}
