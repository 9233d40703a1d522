package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// errMalformed marks a response body that cannot be mapped onto the domain.
var errMalformed = errors.New("malformed upstream payload")

// Upstream backends have shipped several payload dialects over time: snake
// and camel case keys, list endpoints with and without an envelope, and a
// role name in place of a sender type. Every difference is absorbed here.

type wireUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type wireThread struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Issue            string        `json:"issue"`
	IssueType        string        `json:"issue_type"`
	IssueTypeCamel   string        `json:"issueType"`
	Status           string        `json:"status"`
	Priority         string        `json:"priority"`
	AssignedTo       *string       `json:"assigned_to"`
	AssignedToCamel  *string       `json:"assignedTo"`
	StudentID        string        `json:"student_id"`
	StudentIDCamel   string        `json:"studentId"`
	StudentName      string        `json:"student_name"`
	StudentNameCamel string        `json:"studentName"`
	Student          *wireUser     `json:"student"`
	CreatedAt        wireTime      `json:"created_at"`
	CreatedAtCamel   wireTime      `json:"createdAt"`
	UpdatedAt        wireTime      `json:"updated_at"`
	UpdatedAtCamel   wireTime      `json:"updatedAt"`
	Messages         []wireMessage `json:"messages"`
}

type wireMessage struct {
	ID              string    `json:"id"`
	ThreadID        string    `json:"thread_id"`
	ThreadIDCamel   string    `json:"threadId"`
	Text            string    `json:"text"`
	Content         string    `json:"content"`
	Sender          string    `json:"sender"`
	SenderType      string    `json:"sender_type"`
	SenderTypeCamel string    `json:"senderType"`
	SenderName      string    `json:"sender_name"`
	SenderNameCamel string    `json:"senderName"`
	User            *wireUser `json:"user"`
	CreatedAt       wireTime  `json:"created_at"`
	CreatedAtCamel  wireTime  `json:"createdAt"`
}

type wireDepartment struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	CreatedAt   wireTime `json:"created_at"`
}

type createThreadRequest struct {
	Title       string `json:"title"`
	IssueType   string `json:"issue_type"`
	Description string `json:"description"`
	Issue       string `json:"issue,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	StudentID   string `json:"student_id,omitempty"`
}

type postMessageRequest struct {
	Text       string `json:"text"`
	Sender     string `json:"sender"`
	SenderName string `json:"sender_name,omitempty"`
}

type updateThreadRequest struct {
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	AssignedTo *string `json:"assigned_to"`
}

type departmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// wireTime accepts RFC 3339 and the zone-less ISO form some backends emit.
type wireTime struct{ time.Time }

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t.Time = parsed.UTC()
		return nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("%w: bad timestamp %q", errMalformed, raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstTime(values ...wireTime) time.Time {
	for _, v := range values {
		if !v.IsZero() {
			return v.Time
		}
	}
	return time.Time{}
}

// mapStatus folds legacy status names onto the canonical lifecycle.
func mapStatus(raw string) (domain.TicketStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "open":
		return domain.TicketStatusNew, nil
	}
	status, ok := domain.ParseTicketStatus(raw)
	if !ok {
		return "", fmt.Errorf("%w: unknown status %q", errMalformed, raw)
	}
	return status, nil
}

func mapPriority(raw string) domain.TicketPriority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "normal", "":
		return domain.TicketPriorityMedium
	case "urgent":
		return domain.TicketPriorityHigh
	}
	if priority, ok := domain.ParseTicketPriority(raw); ok {
		return priority
	}
	return domain.TicketPriorityMedium
}

func mapIssueType(raw string) domain.IssueType {
	if raw == "" {
		return domain.IssueTypeQuestion
	}
	if issue, ok := domain.ParseIssueType(raw); ok {
		return issue
	}
	return domain.IssueTypeOther
}

func toTicket(w wireThread) (*domain.Ticket, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("%w: thread without id", errMalformed)
	}
	status, err := mapStatus(w.Status)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:          w.ID,
		Title:       w.Title,
		Description: firstNonEmpty(w.Description, w.Issue),
		IssueType:   mapIssueType(firstNonEmpty(w.IssueType, w.IssueTypeCamel)),
		Status:      status,
		Priority:    mapPriority(w.Priority),
		StudentID:   firstNonEmpty(w.StudentID, w.StudentIDCamel),
		StudentName: firstNonEmpty(w.StudentName, w.StudentNameCamel),
		CreatedAt:   firstTime(w.CreatedAt, w.CreatedAtCamel),
	}
	if w.Student != nil {
		ticket.StudentID = firstNonEmpty(ticket.StudentID, w.Student.ID, w.Student.Username)
		ticket.StudentName = firstNonEmpty(ticket.StudentName, w.Student.FullName, w.Student.Username)
	}

	assigned := w.AssignedTo
	if assigned == nil {
		assigned = w.AssignedToCamel
	}
	if assigned != nil && strings.TrimSpace(*assigned) != "" {
		dept := *assigned
		ticket.AssignedTo = &dept
	}

	ticket.UpdatedAt = firstTime(w.UpdatedAt, w.UpdatedAtCamel)
	if ticket.UpdatedAt.Before(ticket.CreatedAt) {
		ticket.UpdatedAt = ticket.CreatedAt
	}

	if len(w.Messages) > 0 {
		msgs, err := toMessages(w.Messages, ticket.ID)
		if err != nil {
			return nil, err
		}
		ticket.Messages = msgs
	}
	return ticket, nil
}

func toMessage(w wireMessage, threadID string) (domain.Message, error) {
	senderRaw := firstNonEmpty(w.SenderType, w.SenderTypeCamel, w.Sender)
	sender, ok := domain.ParseSenderType(senderRaw)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: unknown sender %q", errMalformed, senderRaw)
	}
	msg := domain.Message{
		ID:         w.ID,
		ThreadID:   firstNonEmpty(w.ThreadID, w.ThreadIDCamel, threadID),
		Content:    firstNonEmpty(w.Content, w.Text),
		SenderType: sender,
		SenderName: firstNonEmpty(w.SenderName, w.SenderNameCamel),
		CreatedAt:  firstTime(w.CreatedAt, w.CreatedAtCamel),
	}
	if msg.SenderName == "" && w.User != nil {
		msg.SenderName = firstNonEmpty(w.User.FullName, w.User.Username)
	}
	return msg, nil
}

func toMessages(ws []wireMessage, threadID string) ([]domain.Message, error) {
	out := make([]domain.Message, 0, len(ws))
	for _, w := range ws {
		msg, err := toMessage(w, threadID)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func toDepartment(w wireDepartment) domain.Department {
	return domain.Department{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		CreatedAt:   w.CreatedAt.Time,
	}
}

// senderForWire renders the sender the way upstream expects it: role names.
func senderForWire(sender domain.SenderType) string {
	if sender == domain.SenderTypeUser {
		return string(domain.RoleStudent)
	}
	return string(domain.SenderTypeStaff)
}

func fromTicketUpdate(ticket *domain.Ticket) updateThreadRequest {
	return updateThreadRequest{
		Status:     string(ticket.Status),
		Priority:   string(ticket.Priority),
		AssignedTo: ticket.AssignedTo,
	}
}

// decodeList reads either a bare JSON array or an object that wraps the array
// under key (or under "data").
func decodeList[T any](body []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	var out []T
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		return out, nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	raw, ok := envelope[key]
	if !ok {
		raw, ok = envelope["data"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing %q list", errMalformed, key)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return out, nil
}

// decodeObject reads a JSON object, unwrapping a {"data": {...}} envelope.
func decodeObject[T any](body []byte) (T, error) {
	var out T
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		body = envelope.Data
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", errMalformed, err)
	}
	return out, nil
}
