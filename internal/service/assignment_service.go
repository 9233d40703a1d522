package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// AssignTicket routes a ticket to a department and marks it assigned.
//
// New tickets can always be routed. Assigned and escalated tickets can be
// routed again, which moves them back to assigned. Tickets already being
// worked on or resolved cannot be re-routed.
func (s *TicketService) AssignTicket(ctx context.Context, identity domain.Identity, ticketID, departmentName string) (ticket *domain.Ticket, err error) {
	ctx, span := s.instr.start(ctx, "assign_ticket", identity)
	defer func() { s.instr.end(span, "assign_ticket", err) }()

	if err = requireSupervisor(identity); err != nil {
		return nil, err
	}
	departmentName = strings.TrimSpace(departmentName)
	if departmentName == "" {
		return nil, apperrors.NewValidationError("department is required", map[string]any{"field": "department"})
	}

	ticket, err = s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	if !canAssign(ticket.Status) {
		return nil, apperrors.NewInvalidTransition(string(ticket.Status), string(domain.TicketStatusAssigned))
	}

	dept, err := s.resolveDepartment(ctx, departmentName)
	if err != nil {
		return nil, err
	}

	if ticket.Status == domain.TicketStatusAssigned && ticket.IsAssigned() && *ticket.AssignedTo == dept.Name {
		return ticket, nil
	}

	oldDepartment := ticket.AssignedTo
	oldStatus := ticket.Status
	name := dept.Name
	ticket.AssignedTo = &name
	ticket.Status = domain.TicketStatusAssigned
	ticket.UpdatedAt = s.touch(ticket.UpdatedAt)
	if err = s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	oldValue := map[string]any{"assigned_to": nil, "status": oldStatus}
	if oldDepartment != nil {
		oldValue["assigned_to"] = *oldDepartment
	}
	s.recordHistory(ctx, identity, ticket.ID, domain.ChangeTypeDepartment, oldValue,
		map[string]any{"assigned_to": name, "status": ticket.Status})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorOf(identity),
		Payload: events.TicketAssignedPayload{
			OldDepartment: oldDepartment,
			Department:    name,
		},
	})
	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("department", name))
	return ticket, nil
}

func (s *TicketService) resolveDepartment(ctx context.Context, name string) (*domain.Department, error) {
	if s.departments == nil {
		return &domain.Department{Name: name}, nil
	}
	return s.departments.Resolve(ctx, name, s.autoCreateDepartments)
}
