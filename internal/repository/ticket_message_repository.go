package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// messageStore is the slice of the pool the message repository needs,
// narrowed so tests can stand in for it.
type messageStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TicketMessageRepository manages ticket thread messages. The list is
// append-only; there is no update or delete.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage, reopenTo *domain.TicketStatus) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	store messageStore
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{store: pool}
}

// Create appends the message and refreshes the ticket's updated_at in one
// transaction, flipping the status when reopenTo is set. Either both land
// or neither does.
func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage, reopenTo *domain.TicketStatus) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO ticket_messages (id, ticket_id, sender_id, sender_display_name, sender_role, body)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	if err := tx.QueryRow(ctx, insert,
		msg.ID,
		msg.TicketID,
		msg.SenderID,
		msg.SenderDisplayName,
		msg.SenderRole,
		msg.Body,
	).Scan(&msg.CreatedAt); err != nil {
		return err
	}

	touch := `UPDATE tickets SET updated_at=NOW() WHERE id=$1`
	args := []any{msg.TicketID}
	if reopenTo != nil {
		touch = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2`
		args = []any{*reopenTo, msg.TicketID}
	}
	cmd, err := tx.Exec(ctx, touch, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

// ListByTicket returns the thread in send order. seq breaks created_at
// ties; two messages landing in the same clock tick must not flip order
// between reads.
func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, sender_id, sender_display_name, sender_role, body, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.store.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.SenderDisplayName,
			&msg.SenderRole,
			&msg.Body,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
