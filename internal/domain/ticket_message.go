package domain

import "time"

// TicketMessage is one entry of a ticket's conversation thread. Messages
// are append-only; no edit or delete path exists. SenderDisplayName is a
// snapshot taken when the message is written.
type TicketMessage struct {
	ID                string
	TicketID          string
	SenderID          string
	SenderDisplayName string
	SenderRole        Role
	Body              string
	CreatedAt         time.Time
}
