package service

import (
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// statusTransitions lists the statuses reachable through UpdateStatus.
// new -> assigned happens only through assignment, and resolved is final.
var statusTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {},
	domain.TicketStatusAssigned:   {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusEscalated},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusEscalated},
	domain.TicketStatusEscalated:  {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {},
}

// assignableFrom lists statuses from which a ticket may be (re)routed.
var assignableFrom = map[domain.TicketStatus]bool{
	domain.TicketStatusNew:       true,
	domain.TicketStatusAssigned:  true,
	domain.TicketStatusEscalated: true,
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range statusTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func canAssign(current domain.TicketStatus) bool {
	return assignableFrom[current]
}
