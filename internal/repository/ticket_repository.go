package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// TicketFilter narrows what a backend returns. Backends may ignore it; callers
// always re-apply role scoping on the result.
type TicketFilter struct {
	StudentID    *string
	AssignedTo   *string
	WithMessages bool
}

// TicketRepository encapsulates ticket persistence. It enforces no domain rules.
type TicketRepository interface {
	// Create persists the ticket together with its initial messages.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes status, priority, assignment and updated_at.
	Update(ctx context.Context, ticket *domain.Ticket) error
	// GetByID returns the ticket with its messages in chronological order.
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the Postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, issue_type, status, priority, assigned_to,
               student_id, student_name, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO threads (id, title, description, issue_type, status, priority, assigned_to,
                             student_id, student_name, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	if _, err := tx.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.IssueType,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.StudentID,
		ticket.StudentName,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		return translatePgError(err)
	}
	for i := range ticket.Messages {
		if err := insertMessage(ctx, tx, &ticket.Messages[i]); err != nil {
			return translatePgError(err)
		}
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE threads SET status=$1, priority=$2, assigned_to=$3, updated_at=GREATEST(updated_at, $4)
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedTo,
		ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return translatePgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM threads WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translatePgError(err)
	}
	msgs, err := listMessages(ctx, r.pool, []string{ticket.ID})
	if err != nil {
		return nil, err
	}
	ticket.Messages = msgs[ticket.ID]
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("lower(assigned_to)=lower($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM threads WHERE %s ORDER BY created_at DESC`,
		ticketColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if !filter.WithMessages || len(tickets) == 0 {
		return tickets, nil
	}

	ids := make([]string, len(tickets))
	for i := range tickets {
		ids[i] = tickets[i].ID
	}
	msgs, err := listMessages(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range tickets {
		tickets[i].Messages = msgs[tickets[i].ID]
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.IssueType,
		&ticket.Status,
		&ticket.Priority,
		&ticket.AssignedTo,
		&ticket.StudentID,
		&ticket.StudentName,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
