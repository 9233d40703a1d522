package dto

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// CreateThreadRequest payload.
type CreateThreadRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	IssueType   string `json:"issue_type" validate:"omitempty,issue_type"`
	Description string `json:"description" validate:"max=5000"`
}

// UpdateThreadRequest is the combined staff edit. Every field is optional.
type UpdateThreadRequest struct {
	Status   string `json:"status" validate:"omitempty,ticket_status"`
	Priority string `json:"priority" validate:"omitempty,ticket_priority"`
	Response string `json:"response" validate:"max=5000"`
}

// PostMessageRequest appends to a thread. Sender is optional and must agree
// with the caller's role when given.
type PostMessageRequest struct {
	Text       string `json:"text" validate:"notblank,max=5000"`
	Sender     string `json:"sender" validate:"omitempty,oneof=user staff student manager department leadership"`
	SenderName string `json:"sender_name" validate:"max=128"`
}

// ThreadListQuery captures the list query string.
type ThreadListQuery struct {
	Status     string `query:"status"`
	IssueType  string `query:"issue_type"`
	AssignedTo string `query:"assigned_to"`
	Priority   string `query:"priority"`
	Search     string `query:"q"`
	Sort       string `query:"sort"`
	Order      string `query:"order"`
	Page       int    `query:"page" validate:"gte=0"`
	PageSize   int    `query:"page_size" validate:"gte=0,lte=100"`
}

// MessageResponse is one conversation entry.
type MessageResponse struct {
	ID         string            `json:"id"`
	ThreadID   string            `json:"thread_id"`
	Text       string            `json:"text"`
	SenderType domain.SenderType `json:"sender_type"`
	SenderName string            `json:"sender_name,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ThreadResponse is the full ticket view.
type ThreadResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	IssueType   domain.IssueType      `json:"issue_type"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	AssignedTo  *string               `json:"assigned_to"`
	StudentID   string                `json:"student_id"`
	StudentName string                `json:"student_name"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Messages    []MessageResponse     `json:"messages,omitempty"`
}

// ThreadPageResponse is one page of the thread list.
type ThreadPageResponse struct {
	Items      []ThreadResponse `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
	Sort       string           `json:"sort"`
	Order      string           `json:"order"`
}

// HistoryResponse is one audit entry.
type HistoryResponse struct {
	ID            string                  `json:"id"`
	ChangedBy     string                  `json:"changed_by"`
	ChangedByRole domain.Role             `json:"changed_by_role"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldValue      map[string]any          `json:"old_value,omitempty"`
	NewValue      map[string]any          `json:"new_value,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}
