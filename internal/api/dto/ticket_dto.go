package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AttachmentRequest references an object already uploaded against a
// presigned credential.
type AttachmentRequest struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	FileKey   string `json:"file_key"`
}

// AttachmentResponse is the wire form of a stored attachment reference.
type AttachmentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
	Category    domain.TicketCategory `json:"category"`
	Attachments []AttachmentRequest   `json:"attachments"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// AssignRequest payload.
type AssignRequest struct {
	WorkerUID string `json:"worker_uid"`
}

// ResolveRequest payload.
type ResolveRequest struct {
	SolutionText string              `json:"solution_text"`
	Attachments  []AttachmentRequest `json:"attachments"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary is the list-view wire form.
type TicketSummary struct {
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	Category       domain.TicketCategory `json:"category"`
	CreatedBy      string                `json:"created_by"`
	CreatedByName  string                `json:"created_by_name"`
	AssignedTo     *string               `json:"assigned_to,omitempty"`
	AssignedToName *string               `json:"assigned_to_name,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// SolutionResponse is the wire form of a resolution record.
type SolutionResponse struct {
	Text           string               `json:"text"`
	Attachments    []AttachmentResponse `json:"attachments"`
	ResolvedByName string               `json:"resolved_by_name"`
	ResolvedAt     time.Time            `json:"resolved_at"`
}

// TicketMessageResponse is the wire form of one thread entry.
type TicketMessageResponse struct {
	ID                string      `json:"id"`
	SenderID          string      `json:"sender_id"`
	SenderDisplayName string      `json:"sender_display_name"`
	SenderRole        domain.Role `json:"sender_role"`
	Body              string      `json:"body"`
	CreatedAt         time.Time   `json:"created_at"`
}

// TicketDetailResponse is the detail-view wire form including the thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Attachments []AttachmentResponse    `json:"attachments"`
	Solution    *SolutionResponse       `json:"solution,omitempty"`
	Messages    []TicketMessageResponse `json:"messages"`
}
