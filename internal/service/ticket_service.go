package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

const messagePreviewLength = 120

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	history     repository.TicketHistoryRepository
	departments *DepartmentService
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         Clock
	instr       instrumentation

	autoCreateDepartments bool
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo            repository.TicketRepository
	MessageRepo           repository.TicketMessageRepository
	HistoryRepo           repository.TicketHistoryRepository
	Departments           *DepartmentService
	Dispatcher            events.Dispatcher
	Logger                *zap.Logger
	Metrics               *observability.Metrics
	Clock                 Clock
	AutoCreateDepartments bool
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	IssueType   string
	Description string
}

// MessageInput describes a message to append. SenderType may be blank, in
// which case it follows the caller's role.
type MessageInput struct {
	Content    string
	SenderType string
	SenderName string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:               deps.TicketRepo,
		messages:              deps.MessageRepo,
		history:               deps.HistoryRepo,
		departments:           deps.Departments,
		dispatcher:            deps.Dispatcher,
		logger:                loggerOrNop(deps.Logger),
		now:                   clockOrDefault(deps.Clock),
		instr:                 instrumentation{metrics: deps.Metrics},
		autoCreateDepartments: deps.AutoCreateDepartments,
	}
}

// CreateTicket opens a ticket for a student together with its first message.
func (s *TicketService) CreateTicket(ctx context.Context, identity domain.Identity, input TicketCreateInput) (ticket *domain.Ticket, err error) {
	ctx, span := s.instr.start(ctx, "create_ticket", identity)
	defer func() { s.instr.end(span, "create_ticket", err) }()

	if err = requireIdentity(identity); err != nil {
		return nil, err
	}
	if identity.Role != domain.RoleStudent {
		return nil, apperrors.NewForbidden("only students can open tickets")
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	issueType := domain.IssueTypeQuestion
	if strings.TrimSpace(input.IssueType) != "" {
		parsed, ok := domain.ParseIssueType(input.IssueType)
		if !ok {
			return nil, apperrors.NewValidationError("unknown issue type", map[string]any{"issue_type": input.IssueType})
		}
		issueType = parsed
	}
	description := strings.TrimSpace(input.Description)

	studentName := strings.TrimSpace(identity.DisplayName)
	if studentName == "" {
		studentName = identity.UserID
	}

	now := s.now()
	ticket = &domain.Ticket{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		IssueType:   issueType,
		Status:      domain.TicketStatusNew,
		Priority:    domain.TicketPriorityMedium,
		StudentID:   identity.UserID,
		StudentName: studentName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	firstMessage := description
	if firstMessage == "" {
		firstMessage = title
	}
	ticket.Messages = []domain.Message{{
		ID:         uuid.NewString(),
		ThreadID:   ticket.ID,
		Content:    firstMessage,
		SenderType: domain.SenderTypeUser,
		SenderName: studentName,
		CreatedAt:  now,
	}}

	if err = s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", nil)
	}

	s.recordHistory(ctx, identity, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"status":     ticket.Status,
		"priority":   ticket.Priority,
		"issue_type": ticket.IssueType,
	})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(identity),
		Payload: events.TicketCreatedPayload{
			Title:       ticket.Title,
			IssueType:   ticket.IssueType,
			StudentName: ticket.StudentName,
		},
	})
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("issue_type", string(ticket.IssueType)))
	return ticket, nil
}

// GetTicket returns a ticket the caller may see.
func (s *TicketService) GetTicket(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	return s.loadVisible(ctx, identity, ticketID)
}

// ListMessages returns the ticket's conversation oldest first.
func (s *TicketService) ListMessages(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.Message, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if _, err := s.loadVisible(ctx, identity, ticketID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return msgs, nil
}

// ListHistory returns audit entries for staff.
func (s *TicketService) ListHistory(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketHistory, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if !identity.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if _, err := s.loadVisible(ctx, identity, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

// UpdateStatus moves a ticket along the lifecycle. "solved" is accepted as an
// alias of resolved and setting the current status again changes nothing.
func (s *TicketService) UpdateStatus(ctx context.Context, identity domain.Identity, ticketID, rawStatus string) (ticket *domain.Ticket, err error) {
	ctx, span := s.instr.start(ctx, "update_status", identity)
	defer func() { s.instr.end(span, "update_status", err) }()

	if err = requireIdentity(identity); err != nil {
		return nil, err
	}
	newStatus, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": rawStatus})
	}
	if !identity.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}

	ticket, err = s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if oldStatus == newStatus {
		return ticket, nil
	}
	if !isValidTransition(oldStatus, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(oldStatus), string(newStatus))
	}

	ticket.Status = newStatus
	ticket.UpdatedAt = s.touch(ticket.UpdatedAt)
	if err = s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.recordHistory(ctx, identity, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": newStatus})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(identity),
		Payload: events.TicketStatusChangedPayload{
			OldStatus:  oldStatus,
			NewStatus:  newStatus,
			Department: ticket.AssignedTo,
		},
	})
	return ticket, nil
}

// Escalate hands a ticket up for leadership attention.
func (s *TicketService) Escalate(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	return s.UpdateStatus(ctx, identity, ticketID, string(domain.TicketStatusEscalated))
}

// UpdatePriority changes urgency. Allowed in any status.
func (s *TicketService) UpdatePriority(ctx context.Context, identity domain.Identity, ticketID, rawPriority string) (ticket *domain.Ticket, err error) {
	ctx, span := s.instr.start(ctx, "update_priority", identity)
	defer func() { s.instr.end(span, "update_priority", err) }()

	if err = requireSupervisor(identity); err != nil {
		return nil, err
	}
	newPriority, ok := domain.ParseTicketPriority(rawPriority)
	if !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": rawPriority})
	}

	ticket, err = s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	oldPriority := ticket.Priority
	if oldPriority == newPriority {
		return ticket, nil
	}
	ticket.Priority = newPriority
	ticket.UpdatedAt = s.touch(ticket.UpdatedAt)
	if err = s.tickets.Update(ctx, ticket); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.recordHistory(ctx, identity, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority})
	s.publish(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(identity),
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// AppendMessage adds a message to the conversation. Messages may be added in
// any status; the new message always sorts last.
func (s *TicketService) AppendMessage(ctx context.Context, identity domain.Identity, ticketID string, input MessageInput) (msg *domain.Message, err error) {
	ctx, span := s.instr.start(ctx, "append_message", identity)
	defer func() { s.instr.end(span, "append_message", err) }()

	if err = requireIdentity(identity); err != nil {
		return nil, err
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("message text is required", map[string]any{"field": "text"})
	}

	sender := domain.SenderTypeStaff
	if identity.Role == domain.RoleStudent {
		sender = domain.SenderTypeUser
	}
	if strings.TrimSpace(input.SenderType) != "" {
		requested, ok := domain.ParseSenderType(input.SenderType)
		if !ok {
			return nil, apperrors.NewValidationError("unknown sender", map[string]any{"sender": input.SenderType})
		}
		if requested != sender {
			return nil, apperrors.NewValidationError("sender does not match caller role", map[string]any{"sender": input.SenderType})
		}
	}

	ticket, err := s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}

	senderName := strings.TrimSpace(input.SenderName)
	if senderName == "" {
		senderName = identity.DisplayName
	}

	createdAt := s.now()
	if n := len(ticket.Messages); n > 0 {
		last := ticket.Messages[n-1].CreatedAt
		if !createdAt.After(last) {
			createdAt = last.Add(time.Microsecond)
		}
	}

	msg = &domain.Message{
		ID:         uuid.NewString(),
		ThreadID:   ticket.ID,
		Content:    content,
		SenderType: sender,
		SenderName: senderName,
		CreatedAt:  createdAt,
	}
	if err = s.messages.Append(ctx, msg); err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketMessageAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(identity),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  msg.SenderType,
			SenderName:  msg.SenderName,
			BodyPreview: stringPreview(msg.Content, messagePreviewLength),
		},
	})
	return msg, nil
}

// RespondAndUpdate applies the combined staff edit: an optional reply then
// optional status and priority changes. Every part is checked against the
// current ticket before anything is written, so a rejected edit leaves the
// ticket and its conversation untouched.
func (s *TicketService) RespondAndUpdate(ctx context.Context, identity domain.Identity, ticketID string, response, status, priority string) (*domain.Ticket, error) {
	if err := requireIdentity(identity); err != nil {
		return nil, err
	}
	if !identity.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	hasResponse := strings.TrimSpace(response) != ""
	hasStatus := strings.TrimSpace(status) != ""
	hasPriority := strings.TrimSpace(priority) != ""

	var newStatus domain.TicketStatus
	if hasStatus {
		parsed, ok := domain.ParseTicketStatus(status)
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": status})
		}
		newStatus = parsed
	}
	if hasPriority {
		if err := requireSupervisor(identity); err != nil {
			return nil, err
		}
		if _, ok := domain.ParseTicketPriority(priority); !ok {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
		}
	}

	current, err := s.loadVisible(ctx, identity, ticketID)
	if err != nil {
		return nil, err
	}
	if hasStatus && newStatus != current.Status && !isValidTransition(current.Status, newStatus) {
		return nil, apperrors.NewInvalidTransition(string(current.Status), string(newStatus))
	}

	if hasResponse {
		if _, err := s.AppendMessage(ctx, identity, ticketID, MessageInput{Content: response}); err != nil {
			return nil, err
		}
	}
	if hasStatus {
		if _, err := s.UpdateStatus(ctx, identity, ticketID, status); err != nil {
			return nil, err
		}
	}
	if hasPriority {
		if _, err := s.UpdatePriority(ctx, identity, ticketID, priority); err != nil {
			return nil, err
		}
	}
	return s.loadVisible(ctx, identity, ticketID)
}

func (s *TicketService) loadVisible(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	if strings.TrimSpace(ticketID) == "" {
		return nil, apperrors.NewValidationError("ticket id is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if !CanView(identity, ticket) {
		return nil, apperrors.NewForbidden("ticket is outside your scope")
	}
	return ticket, nil
}

// touch returns now, never earlier than prev.
func (s *TicketService) touch(prev time.Time) time.Time {
	now := s.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now(), event)
}

// recordHistory writes an audit entry. Audit failures are logged, not
// returned, since the ticket change itself has already been stored.
func (s *TicketService) recordHistory(ctx context.Context, identity domain.Identity, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		ID:            uuid.NewString(),
		TicketID:      ticketID,
		ChangedBy:     identity.UserID,
		ChangedByRole: identity.Role,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
		CreatedAt:     s.now(),
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(change)),
			zap.Error(err))
	}
}
