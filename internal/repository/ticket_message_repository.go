package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	// Append inserts the message and moves the ticket's updated_at to the
	// message timestamp in the same write.
	Append(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Append(ctx context.Context, msg *domain.Message) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx,
		`UPDATE threads SET updated_at=GREATEST(updated_at, $1) WHERE id=$2`,
		msg.CreatedAt, msg.ThreadID)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := insertMessage(ctx, tx, msg); err != nil {
		return translatePgError(err)
	}
	return tx.Commit(ctx)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM threads WHERE id=$1)`, ticketID).Scan(&exists); err != nil {
		return nil, translatePgError(err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	msgs, err := listMessages(ctx, r.pool, []string{ticketID})
	if err != nil {
		return nil, err
	}
	return msgs[ticketID], nil
}

func insertMessage(ctx context.Context, tx pgx.Tx, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (id, thread_id, content, sender_type, sender_name, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := tx.Exec(ctx, query,
		msg.ID,
		msg.ThreadID,
		msg.Content,
		msg.SenderType,
		msg.SenderName,
		msg.CreatedAt,
	)
	return err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// listMessages loads messages for the given tickets keyed by ticket id.
func listMessages(ctx context.Context, db querier, ticketIDs []string) (map[string][]domain.Message, error) {
	const query = `
        SELECT id, thread_id, content, sender_type, sender_name, created_at
        FROM messages WHERE thread_id = ANY($1) ORDER BY created_at ASC, id ASC`
	rows, err := db.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.Message, len(ticketIDs))
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.Content,
			&msg.SenderType,
			&msg.SenderName,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[msg.ThreadID] = append(result[msg.ThreadID], msg)
	}
	return result, rows.Err()
}
