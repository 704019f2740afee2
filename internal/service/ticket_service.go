package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const (
	minSolutionLen = 10
	maxSolutionLen = 2000
	maxMessageLen  = 2000
	maxTitleLen    = 200
	maxBodyLen     = 5000
)

// ObjectDeleter removes attachment objects from external storage. Deletes
// are best-effort during ticket deletion; failures are logged, never fatal.
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// TicketService is the lifecycle engine: every status transition,
// assignment, and resolution flows through here, checked against the
// authorization gate before any store mutation.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	profiles   repository.ProfileRepository
	objects    ObjectDeleter
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	ProfileRepo repository.ProfileRepository
	Objects     ObjectDeleter
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// AttachmentInput references an already-uploaded object.
type AttachmentInput struct {
	Name      string
	URL       string
	MimeType  string
	SizeBytes int64
	FileKey   string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	Category    domain.TicketCategory
	Attachments []AttachmentInput
}

// TicketListFilter describes listing filters. Status/priority narrowing is
// honored for admins only.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		profiles:   deps.ProfileRepo,
		objects:    deps.Objects,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicket opens a new ticket. The creator's display name is
// snapshotted onto the record at write time.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.Profile, input TicketCreateInput) (*domain.Ticket, error) {
	if !authz.CanCreate(creator.Role) {
		return nil, apperrors.NewForbidden("role cannot create tickets")
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || utf8.RuneCountInString(title) > maxTitleLen {
		return nil, apperrors.NewValidationError("title required, at most 200 characters", nil)
	}
	if description == "" || utf8.RuneCountInString(description) > maxBodyLen {
		return nil, apperrors.NewValidationError("description required, at most 5000 characters", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	category := input.Category
	if category == "" {
		category = domain.TicketCategoryOther
	}
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": category})
	}

	ticket := &domain.Ticket{
		Title:         title,
		Description:   description,
		Status:        domain.TicketStatusOpen,
		Priority:      priority,
		Category:      category,
		CreatedBy:     creator.UID,
		CreatedByName: creator.DisplayName,
		Attachments:   attachmentsFromInput(input.Attachments),
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor(creator),
		Payload: events.TicketCreatedPayload{
			Title:         ticket.Title,
			Priority:      ticket.Priority,
			Category:      ticket.Category,
			CreatedBy:     ticket.CreatedBy,
			CreatorEmail:  creator.Email,
			CreatedByName: ticket.CreatedByName,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its message thread. A viewer outside the
// gate gets the same not-found as a missing id.
func (s *TicketService) GetTicket(ctx context.Context, viewer *domain.Profile, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, viewer, ticketID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Messages = msgs
	return ticket, nil
}

// ListTickets returns the viewer's role-scoped ticket list ordered by
// updated_at descending. Status/priority filters apply to admins only.
func (s *TicketService) ListTickets(ctx context.Context, viewer *domain.Profile, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.ScopedFilter(viewer, filter.Statuses, filter.Priorities)
	repoFilter.Limit = filter.Limit
	repoFilter.Offset = filter.Offset
	result, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// AddMessage appends to the ticket thread. Closed tickets accept no
// messages. A creator reply on a RESOLVED ticket reopens it: back to
// IN_PROGRESS when an assignee is set (they should continue), else OPEN.
func (s *TicketService) AddMessage(ctx context.Context, sender *domain.Profile, ticketID, body string) (*domain.TicketMessage, error) {
	ticket, err := s.loadVisible(ctx, sender, ticketID)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLen {
		return nil, apperrors.NewValidationError("message must be 1 to 2000 characters", nil)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("ticket is closed", nil)
	}

	var reopenTo *domain.TicketStatus
	if ticket.Status == domain.TicketStatusResolved {
		if ticket.CreatedBy != sender.UID {
			return nil, apperrors.NewConflict("resolved ticket accepts replies from its creator only", nil)
		}
		next := domain.TicketStatusOpen
		if ticket.AssignedTo != nil {
			next = domain.TicketStatusInProgress
		}
		reopenTo = &next
	}

	msg := &domain.TicketMessage{
		ID:                uuid.NewString(),
		TicketID:          ticket.ID,
		SenderID:          sender.UID,
		SenderDisplayName: sender.DisplayName,
		SenderRole:        sender.Role,
		Body:              body,
	}
	if err := s.messages.Create(ctx, msg, reopenTo); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    actor(sender),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderID:    msg.SenderID,
			SenderRole:  msg.SenderRole,
			BodyPreview: preview(msg.Body, 120),
			Reopened:    reopenTo != nil,
		},
	})
	return msg, nil
}

// Assign sets the assignee and forces the ticket to IN_PROGRESS. Closed
// tickets are rejected outright. The target must hold the WORKER or ADMIN
// role; trusting the admin UI alone is not enough.
func (s *TicketService) Assign(ctx context.Context, actorProfile *domain.Profile, ticketID, workerUID string) (*domain.Ticket, error) {
	if !authz.CanAssign(actorProfile.Role) {
		return nil, apperrors.NewForbidden("only admins assign tickets")
	}
	ticket, err := s.loadVisible(ctx, actorProfile, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("closed tickets cannot be assigned", nil)
	}

	worker, err := s.profiles.GetByUID(ctx, workerUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewValidationError("assignee profile does not exist", map[string]any{"uid": workerUID})
		}
		return nil, apperrors.MapError(err)
	}
	if worker.Role != domain.RoleWorker && worker.Role != domain.RoleAdmin {
		return nil, apperrors.NewValidationError("assignee must hold the worker role", map[string]any{"uid": workerUID})
	}

	if err := s.tickets.UpdateAssignment(ctx, ticket.ID, worker.UID, worker.DisplayName); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.AssignedTo = &worker.UID
	ticket.AssignedToName = &worker.DisplayName
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = time.Now()

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actor(actorProfile),
		Payload: events.TicketAssignedPayload{
			AssignedTo:     worker.UID,
			AssignedToName: worker.DisplayName,
			AssigneeEmail:  worker.Email,
			Title:          ticket.Title,
		},
	})
	return ticket, nil
}

// Resolve flips the ticket to RESOLVED and writes the solution record in
// one atomic store mutation. Attachment references must already be
// confirmed uploads; the write carries references only.
func (s *TicketService) Resolve(ctx context.Context, actorProfile *domain.Profile, ticketID, solutionText string, attachments []AttachmentInput) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, actorProfile, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManage(actorProfile.Role, actorProfile.UID, ticket) {
		return nil, apperrors.NewForbidden("cannot manage this ticket")
	}

	solutionText = strings.TrimSpace(solutionText)
	// Bounds count characters, not bytes; multibyte text gets the same budget.
	if n := utf8.RuneCountInString(solutionText); n < minSolutionLen || n > maxSolutionLen {
		return nil, apperrors.NewValidationError("solution text must be 10 to 2000 characters", nil)
	}
	if !domain.ValidTransition(ticket.Status, domain.TicketStatusResolved) {
		return nil, apperrors.NewConflict("ticket cannot be resolved in current status",
			map[string]any{"status": ticket.Status})
	}

	solution := domain.Solution{
		Text:           solutionText,
		Attachments:    attachmentsFromInput(attachments),
		ResolvedByName: actorProfile.DisplayName,
	}
	if err := s.tickets.Resolve(ctx, ticket.ID, solution); err != nil {
		return nil, apperrors.MapError(err)
	}

	creatorEmail := s.lookupEmail(ctx, ticket.CreatedBy)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    actor(actorProfile),
		Payload: events.TicketResolvedPayload{
			Title:          ticket.Title,
			SolutionText:   solutionText,
			ResolvedByName: actorProfile.DisplayName,
			CreatorEmail:   creatorEmail,
		},
	})
	return s.GetTicket(ctx, actorProfile, ticket.ID)
}

// Close moves a ticket to CLOSED. The creator may confirm closure of a
// RESOLVED ticket; workers and admins close via the gate from any
// non-terminal state.
func (s *TicketService) Close(ctx context.Context, actorProfile *domain.Profile, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, actorProfile, ticketID)
	if err != nil {
		return nil, err
	}

	creatorConfirming := ticket.CreatedBy == actorProfile.UID && ticket.Status == domain.TicketStatusResolved
	if !creatorConfirming && !authz.CanManage(actorProfile.Role, actorProfile.UID, ticket) {
		return nil, apperrors.NewForbidden("cannot close this ticket")
	}
	if !domain.ValidTransition(ticket.Status, domain.TicketStatusClosed) {
		return nil, apperrors.NewConflict("ticket cannot be closed in current status",
			map[string]any{"status": ticket.Status})
	}
	return s.applyStatus(ctx, actorProfile, ticket, domain.TicketStatusClosed)
}

// UpdateStatus applies an explicit status edit. RESOLVED is reachable only
// through Resolve, which carries the solution record.
func (s *TicketService) UpdateStatus(ctx context.Context, actorProfile *domain.Profile, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, actorProfile, ticketID)
	if err != nil {
		return nil, err
	}
	if !authz.CanManage(actorProfile.Role, actorProfile.UID, ticket) {
		return nil, apperrors.NewForbidden("cannot manage this ticket")
	}
	if newStatus == domain.TicketStatusResolved {
		return nil, apperrors.NewValidationError("use the resolve operation to resolve a ticket", nil)
	}
	if !domain.ValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition",
			map[string]any{"from": ticket.Status, "to": newStatus})
	}
	return s.applyStatus(ctx, actorProfile, ticket, newStatus)
}

// Delete removes a ticket and attempts best-effort deletion of every
// backing attachment object, the solution's included. Object-delete
// failures are logged and counted but never block record removal.
func (s *TicketService) Delete(ctx context.Context, actorProfile *domain.Profile, ticketID string) error {
	if !authz.CanDelete(actorProfile.Role) {
		return apperrors.NewForbidden("only admins delete tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}

	objects := append([]domain.Attachment{}, ticket.Attachments...)
	if ticket.Solution != nil {
		objects = append(objects, ticket.Solution.Attachments...)
	}
	failed := 0
	for _, att := range objects {
		if s.objects == nil {
			break
		}
		if err := s.objects.Delete(ctx, att.FileKey); err != nil {
			failed++
			s.logger.Warn("attachment object delete failed; orphan object left behind",
				zap.String("ticket_id", ticket.ID),
				zap.String("file_key", att.FileKey),
				zap.Error(err))
		}
	}

	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actor(actorProfile),
		Payload: events.TicketDeletedPayload{
			Title:             ticket.Title,
			AttachmentObjects: len(objects),
			FailedDeletes:     failed,
		},
	})
	return nil
}

func (s *TicketService) applyStatus(ctx context.Context, actorProfile *domain.Profile, ticket *domain.Ticket, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	oldStatus := ticket.Status
	if err := s.tickets.UpdateStatus(ctx, ticket.ID, newStatus); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Status = newStatus
	ticket.UpdatedAt = time.Now()

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actor(actorProfile),
		Payload: events.TicketStatusChangedPayload{
			OldStatus:    oldStatus,
			NewStatus:    newStatus,
			Title:        ticket.Title,
			CreatorEmail: s.lookupEmail(ctx, ticket.CreatedBy),
		},
	})
	return ticket, nil
}

// loadVisible fetches a ticket and applies the view gate. Both a missing
// id and a denied view yield the identical not-found error.
func (s *TicketService) loadVisible(ctx context.Context, viewer *domain.Profile, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !authz.CanView(viewer.Role, viewer.UID, ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// lookupEmail is best-effort; notification payloads tolerate an empty
// recipient.
func (s *TicketService) lookupEmail(ctx context.Context, uid string) string {
	profile, err := s.profiles.GetByUID(ctx, uid)
	if err != nil {
		return ""
	}
	return profile.Email
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func attachmentsFromInput(inputs []AttachmentInput) []domain.Attachment {
	result := make([]domain.Attachment, 0, len(inputs))
	for _, in := range inputs {
		result = append(result, domain.Attachment{
			Name:      in.Name,
			URL:       in.URL,
			MimeType:  in.MimeType,
			SizeBytes: in.SizeBytes,
			FileKey:   in.FileKey,
		})
	}
	return result
}

func actor(profile *domain.Profile) events.Actor {
	return events.Actor{UID: profile.UID, Role: profile.Role}
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
