package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures scoped listing parameters. CreatedBy/AssignedTo
// implement the role scoping; Statuses/Priorities are the admin-only
// narrowing filters.
type TicketFilter struct {
	CreatedBy  *string
	AssignedTo *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateAssignment(ctx context.Context, id, assignedTo, assignedToName string) error
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	Resolve(ctx context.Context, id string, solution domain.Solution) error
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, status, priority, category,
        created_by, created_by_name, assigned_to, assigned_to_name,
        solution_text, solution_resolved_by_name, solution_resolved_at,
        created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, category, created_by, created_by_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.CreatedBy,
		ticket.CreatedByName,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}
	return insertAttachments(ctx, r.pool, ticket.ID, domain.AttachmentOwnerTicket, ticket.Attachments)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicketRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.hydrateAttachments(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// UpdateAssignment sets the assignee and forces IN_PROGRESS; assignment and
// "in progress" are coupled.
func (r *ticketRepository) UpdateAssignment(ctx context.Context, id, assignedTo, assignedToName string) error {
	const query = `
        UPDATE tickets SET assigned_to=$1, assigned_to_name=$2, status=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, assignedTo, assignedToName, domain.TicketStatusInProgress, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Resolve writes the status flip and the solution record in one
// transaction so partial application is never observable. Attachment
// references passed here must already be confirmed uploads.
func (r *ticketRepository) Resolve(ctx context.Context, id string, solution domain.Solution) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE tickets SET status=$1, solution_text=$2, solution_resolved_by_name=$3,
            solution_resolved_at=NOW(), updated_at=NOW()
        WHERE id=$4`
	cmd, err := tx.Exec(ctx, query, domain.TicketStatusResolved, solution.Text, solution.ResolvedByName, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if err := insertAttachments(ctx, tx, id, domain.AttachmentOwnerSolution, solution.Attachments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes the ticket record; messages and attachment rows cascade.
func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) hydrateAttachments(ctx context.Context, ticket *domain.Ticket) error {
	attachments, err := listAttachments(ctx, r.pool, ticket.ID)
	if err != nil {
		return err
	}
	for _, att := range attachments {
		switch att.Owner {
		case domain.AttachmentOwnerSolution:
			if ticket.Solution != nil {
				ticket.Solution.Attachments = append(ticket.Solution.Attachments, att)
			}
		default:
			ticket.Attachments = append(ticket.Attachments, att)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row rowScanner) (*domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		solutionText   *string
		solutionByName *string
		solutionAt     *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.CreatedBy,
		&ticket.CreatedByName,
		&ticket.AssignedTo,
		&ticket.AssignedToName,
		&solutionText,
		&solutionByName,
		&solutionAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if solutionText != nil {
		ticket.Solution = &domain.Solution{
			Text:           *solutionText,
			ResolvedByName: deref(solutionByName),
		}
		if solutionAt != nil {
			ticket.Solution.ResolvedAt = *solutionAt
		}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
