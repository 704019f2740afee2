package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// TicketCategory is a closed set of request categories.
type TicketCategory string

const (
	TicketCategoryHardware TicketCategory = "HARDWARE"
	TicketCategorySoftware TicketCategory = "SOFTWARE"
	TicketCategoryNetwork  TicketCategory = "NETWORK"
	TicketCategoryAccount  TicketCategory = "ACCOUNT"
	TicketCategoryOther    TicketCategory = "OTHER"
)

// ValidPriority reports enum membership.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// ValidCategory reports enum membership.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork, TicketCategoryAccount, TicketCategoryOther:
		return true
	}
	return false
}

// AttachmentOwner discriminates which part of the ticket owns an attachment.
type AttachmentOwner string

const (
	AttachmentOwnerTicket   AttachmentOwner = "TICKET"
	AttachmentOwnerSolution AttachmentOwner = "SOLUTION"
)

// Attachment references an object held in external storage. FileKey is the
// opaque bucket key used for deletion; URL is externally resolvable.
type Attachment struct {
	ID        string
	TicketID  string
	Owner     AttachmentOwner
	Name      string
	URL       string
	MimeType  string
	SizeBytes int64
	FileKey   string
	CreatedAt time.Time
}

// Solution is the resolution record written exactly once when a ticket
// transitions to RESOLVED.
type Solution struct {
	Text           string
	Attachments    []Attachment
	ResolvedByName string
	ResolvedAt     time.Time
}

// Ticket is the aggregate for a support request. CreatedByName and
// AssignedToName are display-name snapshots taken at write time and are
// never refreshed on later profile renames.
type Ticket struct {
	ID             string
	Title          string
	Description    string
	Status         TicketStatus
	Priority       TicketPriority
	Category       TicketCategory
	CreatedBy      string
	CreatedByName  string
	AssignedTo     *string
	AssignedToName *string
	Attachments    []Attachment
	Solution       *Solution
	Messages       []TicketMessage
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusInProgress, TicketStatusOpen, TicketStatusClosed},
	TicketStatusClosed:     {},
}

// ValidTransition reports whether a status edit from current to next is
// permitted. CLOSED is terminal.
func ValidTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
