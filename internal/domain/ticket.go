package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusEscalated  TicketStatus = "escalated"
)

// statusAliasSolved is accepted on input and stored as resolved.
const statusAliasSolved = "solved"

// TicketPriority enumerates ticket urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// IssueType classifies the request at creation time.
type IssueType string

const (
	IssueTypeQuestion   IssueType = "question"
	IssueTypeTechnical  IssueType = "technical"
	IssueTypeBilling    IssueType = "billing"
	IssueTypeFeedback   IssueType = "feedback"
	IssueTypeAcademic   IssueType = "academic"
	IssueTypeFacilities IssueType = "facilities"
	IssueTypeOther      IssueType = "other"
)

// UnassignedLabel names the bucket for tickets without a department.
const UnassignedLabel = "Unassigned"

// Ticket is the aggregate for a support request and its conversation.
type Ticket struct {
	ID          string
	Title       string
	Description string
	IssueType   IssueType
	Status      TicketStatus
	Priority    TicketPriority
	AssignedTo  *string
	StudentID   string
	StudentName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Messages    []Message
}

// Department returns the assigned department name or the Unassigned label.
func (t *Ticket) Department() string {
	if t.AssignedTo == nil || *t.AssignedTo == "" {
		return UnassignedLabel
	}
	return *t.AssignedTo
}

// IsAssigned reports whether the ticket has been routed to a department.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedTo != nil && *t.AssignedTo != ""
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	if t.AssignedTo != nil {
		dept := *t.AssignedTo
		cp.AssignedTo = &dept
	}
	if t.Messages != nil {
		cp.Messages = make([]Message, len(t.Messages))
		copy(cp.Messages, t.Messages)
	}
	return &cp
}

// ParseTicketStatus normalises user input, mapping "solved" onto resolved.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == statusAliasSolved {
		return TicketStatusResolved, true
	}
	status := TicketStatus(value)
	switch status {
	case TicketStatusNew, TicketStatusAssigned, TicketStatusInProgress, TicketStatusResolved, TicketStatusEscalated:
		return status, true
	}
	return "", false
}

// ParseTicketPriority validates a priority value.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	priority := TicketPriority(strings.ToLower(strings.TrimSpace(raw)))
	switch priority {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return priority, true
	}
	return "", false
}

// ParseIssueType validates an issue type value.
func ParseIssueType(raw string) (IssueType, bool) {
	issue := IssueType(strings.ToLower(strings.TrimSpace(raw)))
	switch issue {
	case IssueTypeQuestion, IssueTypeTechnical, IssueTypeBilling, IssueTypeFeedback,
		IssueTypeAcademic, IssueTypeFacilities, IssueTypeOther:
		return issue, true
	}
	return "", false
}
