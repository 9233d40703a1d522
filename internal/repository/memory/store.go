// Package memory provides an in-process backend for every repository
// interface. It stands in for the real database in development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
)

// Store holds all records behind one lock so a ticket write and its message
// writes are observed together.
type Store struct {
	mu          sync.RWMutex
	tickets     map[string]*domain.Ticket
	departments map[string]*domain.Department
	users       map[string]*domain.User
	history     map[string][]domain.TicketHistory
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets:     make(map[string]*domain.Ticket),
		departments: make(map[string]*domain.Department),
		users:       make(map[string]*domain.User),
		history:     make(map[string][]domain.TicketHistory),
	}
}

// Tickets exposes the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }

// Messages exposes the message repository view.
func (s *Store) Messages() repository.TicketMessageRepository { return messageRepo{s} }

// Departments exposes the department repository view.
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }

// Users exposes the user repository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// History exposes the audit repository view.
func (s *Store) History() repository.TicketHistoryRepository { return historyRepo{s} }

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.tickets[ticket.ID]; exists {
		return repository.ErrDuplicate
	}
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = ticket.Status
	stored.Priority = ticket.Priority
	stored.AssignedTo = nil
	if ticket.AssignedTo != nil {
		dept := *ticket.AssignedTo
		stored.AssignedTo = &dept
	}
	if ticket.UpdatedAt.After(stored.UpdatedAt) {
		stored.UpdatedAt = ticket.UpdatedAt
	}
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return stored.Clone(), nil
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Ticket, 0, len(r.s.tickets))
	for _, stored := range r.s.tickets {
		if filter.StudentID != nil && stored.StudentID != *filter.StudentID {
			continue
		}
		if filter.AssignedTo != nil && (stored.AssignedTo == nil || !strings.EqualFold(*stored.AssignedTo, *filter.AssignedTo)) {
			continue
		}
		cp := stored.Clone()
		if !filter.WithMessages {
			cp.Messages = nil
		}
		result = append(result, *cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Append(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.tickets[msg.ThreadID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Messages = append(stored.Messages, *msg)
	if msg.CreatedAt.After(stored.UpdatedAt) {
		stored.UpdatedAt = msg.CreatedAt
	}
	return nil
}

func (r messageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.tickets[ticketID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]domain.Message, len(stored.Messages))
	copy(out, stored.Messages)
	return out, nil
}

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.departments {
		if strings.EqualFold(existing.Name, dept.Name) {
			return repository.ErrDuplicate
		}
	}
	cp := *dept
	r.s.departments[dept.ID] = &cp
	return nil
}

func (r departmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.departments[dept.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, existing := range r.s.departments {
		if id != dept.ID && strings.EqualFold(existing.Name, dept.Name) {
			return repository.ErrDuplicate
		}
	}
	stored.Name = dept.Name
	stored.Description = dept.Description
	return nil
}

func (r departmentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.departments, id)
	return nil
}

func (r departmentRepo) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.departments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r departmentRepo) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, stored := range r.s.departments {
		if strings.EqualFold(stored.Name, name) {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r departmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	result := make([]domain.Department, 0, len(r.s.departments))
	for _, stored := range r.s.departments {
		result = append(result, *stored)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stored, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, stored := range r.s.users {
		if strings.EqualFold(stored.Username, username) {
			cp := *stored
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history[entry.TicketID] = append(r.s.history[entry.TicketID], *entry)
	return nil
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	entries := r.s.history[ticketID]
	out := make([]domain.TicketHistory, len(entries))
	copy(out, entries)
	return out, nil
}
