package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// CountByStatus counts tickets per observed status. Unseen statuses are absent.
func CountByStatus(tickets []domain.Ticket) map[domain.TicketStatus]int {
	counts := make(map[domain.TicketStatus]int)
	for i := range tickets {
		counts[tickets[i].Status]++
	}
	return counts
}

// CountByIssueType counts tickets per issue type.
func CountByIssueType(tickets []domain.Ticket) map[domain.IssueType]int {
	counts := make(map[domain.IssueType]int)
	for i := range tickets {
		counts[tickets[i].IssueType]++
	}
	return counts
}

// CountByDepartment counts tickets per department, unassigned ones under
// domain.UnassignedLabel.
func CountByDepartment(tickets []domain.Ticket) map[string]int {
	counts := make(map[string]int)
	for i := range tickets {
		counts[tickets[i].Department()]++
	}
	return counts
}

// TotalCount is the collection size.
func TotalCount(tickets []domain.Ticket) int {
	return len(tickets)
}

// FirstResponse is the delay before staff first replied to a ticket.
type FirstResponse struct {
	TicketID string
	Minutes  float64
}

// FirstResponseTimes lists first-response delays for tickets that have a
// staff message, in input order.
func FirstResponseTimes(tickets []domain.Ticket) []FirstResponse {
	out := make([]FirstResponse, 0, len(tickets))
	for i := range tickets {
		first, ok := firstStaffReply(tickets[i].Messages)
		if !ok {
			continue
		}
		out = append(out, FirstResponse{
			TicketID: tickets[i].ID,
			Minutes:  first.Sub(tickets[i].CreatedAt).Minutes(),
		})
	}
	return out
}

// AverageFirstResponseTime is the mean first-response delay in minutes over
// tickets with at least one staff message, or 0 when none qualify.
func AverageFirstResponseTime(tickets []domain.Ticket) float64 {
	times := FirstResponseTimes(tickets)
	if len(times) == 0 {
		return 0
	}
	var sum float64
	for _, t := range times {
		sum += t.Minutes
	}
	return sum / float64(len(times))
}

func firstStaffReply(msgs []domain.Message) (time.Time, bool) {
	var earliest time.Time
	found := false
	for i := range msgs {
		if msgs[i].SenderType != domain.SenderTypeStaff {
			continue
		}
		if !found || msgs[i].CreatedAt.Before(earliest) {
			earliest = msgs[i].CreatedAt
			found = true
		}
	}
	return earliest, found
}

// Overview bundles the dashboard figures.
type Overview struct {
	Total                       int
	ByStatus                    map[domain.TicketStatus]int
	ByIssueType                 map[domain.IssueType]int
	ByDepartment                map[string]int
	AverageFirstResponseMinutes float64
	FirstResponses              []FirstResponse
}

// Statistics is the compact summary used by the thread list header.
type Statistics struct {
	Total        int
	ByStatus     map[domain.TicketStatus]int
	ByDepartment map[string]int
}

// AnalyticsService computes figures over the full ticket collection.
type AnalyticsService struct {
	tickets repository.TicketRepository
	logger  *zap.Logger
	instr   instrumentation
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(tickets repository.TicketRepository, logger *zap.Logger, metrics *observability.Metrics) *AnalyticsService {
	return &AnalyticsService{tickets: tickets, logger: loggerOrNop(logger), instr: instrumentation{metrics: metrics}}
}

// Overview recomputes every figure from scratch.
func (s *AnalyticsService) Overview(ctx context.Context, identity domain.Identity) (overview *Overview, err error) {
	ctx, span := s.instr.start(ctx, "analytics_overview", identity)
	defer func() { s.instr.end(span, "analytics_overview", err) }()

	tickets, err := s.load(ctx, identity, true)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Total:                       TotalCount(tickets),
		ByStatus:                    CountByStatus(tickets),
		ByIssueType:                 CountByIssueType(tickets),
		ByDepartment:                CountByDepartment(tickets),
		AverageFirstResponseMinutes: AverageFirstResponseTime(tickets),
		FirstResponses:              FirstResponseTimes(tickets),
	}, nil
}

// Statistics reports the total, per-status counts and the workload of each
// department. Unassigned tickets are left out of the department counts.
func (s *AnalyticsService) Statistics(ctx context.Context, identity domain.Identity) (*Statistics, error) {
	tickets, err := s.load(ctx, identity, false)
	if err != nil {
		return nil, err
	}
	byDepartment := CountByDepartment(tickets)
	delete(byDepartment, domain.UnassignedLabel)
	return &Statistics{
		Total:        TotalCount(tickets),
		ByStatus:     CountByStatus(tickets),
		ByDepartment: byDepartment,
	}, nil
}

func (s *AnalyticsService) load(ctx context.Context, identity domain.Identity, withMessages bool) ([]domain.Ticket, error) {
	if err := requireSupervisor(identity); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{WithMessages: withMessages})
	if err != nil {
		s.logger.Error("failed to load tickets for analytics", zap.Error(err))
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}
