package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx so attachment
// rows can be written inside the resolve transaction.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// insertAttachments stamps ticket/owner onto each attachment and writes
// them with their slice index as sort_order. created_at alone cannot order
// them back: rows written inside one transaction share NOW().
func insertAttachments(ctx context.Context, q pgxQuerier, ticketID string, owner domain.AttachmentOwner, atts []domain.Attachment) error {
	for i := range atts {
		atts[i].TicketID = ticketID
		atts[i].Owner = owner
		if err := insertAttachment(ctx, q, &atts[i], i); err != nil {
			return err
		}
	}
	return nil
}

func insertAttachment(ctx context.Context, q pgxQuerier, att *domain.Attachment, sortOrder int) error {
	const query = `
        INSERT INTO attachments (ticket_id, owner, name, url, mime_type, size_bytes, file_key, sort_order)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at`
	return q.QueryRow(ctx, query,
		att.TicketID,
		att.Owner,
		att.Name,
		att.URL,
		att.MimeType,
		att.SizeBytes,
		att.FileKey,
		sortOrder,
	).Scan(&att.ID, &att.CreatedAt)
}

func listAttachments(ctx context.Context, q pgxQuerier, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, owner, name, url, mime_type, size_bytes, file_key, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY sort_order ASC, id ASC`
	rows, err := q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.Owner,
			&att.Name,
			&att.URL,
			&att.MimeType,
			&att.SizeBytes,
			&att.FileKey,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
