package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/repository/memory"
)

var (
	studentAlice = domain.Identity{UserID: "u-alice", Role: domain.RoleStudent, DisplayName: "Alice"}
	studentBob   = domain.Identity{UserID: "u-bob", Role: domain.RoleStudent, DisplayName: "Bob"}
	manager      = domain.Identity{UserID: "u-admin", Role: domain.RoleManager, DisplayName: "Admin"}
	leadership   = domain.Identity{UserID: "u-lead", Role: domain.RoleLeadership, DisplayName: "Dean"}
	itStaff      = domain.Identity{UserID: "u-it", Role: domain.RoleDepartment, Department: "IT Department", DisplayName: "IT Desk"}
	financeStaff = domain.Identity{UserID: "u-fin", Role: domain.RoleDepartment, Department: "Finance", DisplayName: "Finance Desk"}
)

// fakeClock returns start and then advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store       *memory.Store
	clock       *fakeClock
	recorded    *recordedEvents
	tickets     *TicketService
	queries     *QueryService
	analytics   *AnalyticsService
	departments *DepartmentService
}

func newHarness(t *testing.T, autoCreate bool) *harness {
	t.Helper()
	store := memory.New()
	clock := newFakeClock(time.Minute)
	dispatcher := events.NewInMemoryDispatcher()
	recorded := &recordedEvents{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, recorded.handle)
	}

	departments := NewDepartmentService(store.Departments(), nil, clock.Now)
	require.NoError(t, departments.Seed(context.Background(), []string{"IT Department", "Finance"}))

	return &harness{
		store:    store,
		clock:    clock,
		recorded: recorded,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:            store.Tickets(),
			MessageRepo:           store.Messages(),
			HistoryRepo:           store.History(),
			Departments:           departments,
			Dispatcher:            dispatcher,
			Clock:                 clock.Now,
			AutoCreateDepartments: autoCreate,
		}),
		queries:     NewQueryService(QueryDependencies{TicketRepo: store.Tickets(), Locale: "vi"}),
		analytics:   NewAnalyticsService(store.Tickets(), nil, nil),
		departments: departments,
	}
}

func (h *harness) create(t *testing.T, who domain.Identity, title string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), who, TicketCreateInput{Title: title, IssueType: "technical"})
	require.NoError(t, err)
	return ticket
}

func (h *harness) assign(t *testing.T, id, dept string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.AssignTicket(context.Background(), manager, id, dept)
	require.NoError(t, err)
	return ticket
}

func strPtr(s string) *string { return &s }

// fixtureTickets has mixed attributes for filter and sort tests.
func fixtureTickets() []domain.Ticket {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	mk := func(id, title, desc, student string, it domain.IssueType, st domain.TicketStatus, pr domain.TicketPriority, dept *string, offset time.Duration) domain.Ticket {
		return domain.Ticket{
			ID: id, Title: title, Description: desc, StudentID: "s-" + id, StudentName: student,
			IssueType: it, Status: st, Priority: pr, AssignedTo: dept,
			CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset),
		}
	}
	return []domain.Ticket{
		mk("t1", "Wifi down", "dorm B", "Đặng Văn An", domain.IssueTypeTechnical, domain.TicketStatusResolved, domain.TicketPriorityHigh, strPtr("IT Department"), 1*time.Hour),
		mk("t2", "Tuition refund", "payment issue on portal", "Bùi Thị Bình", domain.IssueTypeBilling, domain.TicketStatusNew, domain.TicketPriorityMedium, nil, 2*time.Hour),
		mk("t3", "Laptop broken", "screen", "Cao Minh", domain.IssueTypeTechnical, domain.TicketStatusInProgress, domain.TicketPriorityLow, strPtr("IT Department"), 3*time.Hour),
		mk("t4", "Exam schedule", "clash", "An Nguyen", domain.IssueTypeAcademic, domain.TicketStatusResolved, domain.TicketPriorityMedium, strPtr("Academic Affairs"), 4*time.Hour),
		mk("t5", "Printer", "no toner", "Zed", domain.IssueTypeTechnical, domain.TicketStatusResolved, domain.TicketPriorityLow, nil, 5*time.Hour),
		mk("t6", "Canteen", "feedback", "Yen", domain.IssueTypeFeedback, domain.TicketStatusEscalated, domain.TicketPriorityHigh, strPtr("Facilities"), 6*time.Hour),
		mk("t7", "VPN", "cannot reach library", "Xuan", domain.IssueTypeTechnical, domain.TicketStatusAssigned, domain.TicketPriorityMedium, strPtr("IT Department"), 7*time.Hour),
	}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}
