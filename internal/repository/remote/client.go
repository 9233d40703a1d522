// Package remote implements the repository interfaces against an upstream
// helpdesk backend that exposes the threads/messages/departments resources
// over JSON/HTTP.
package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// Client talks to the upstream backend. Calls are never retried.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		timeout: cfg.Timeout(),
		logger:  logger,
	}
}

// Tickets exposes the ticket repository view.
func (c *Client) Tickets() repository.TicketRepository { return ticketRepo{c} }

// Messages exposes the message repository view.
func (c *Client) Messages() repository.TicketMessageRepository { return messageRepo{c} }

// Departments exposes the department repository view.
func (c *Client) Departments() repository.DepartmentRepository { return departmentRepo{c} }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTransportError("request cancelled", err)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(target)
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, apperrors.NewTransportError("invalid upstream url", err)
	}

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	if body != nil {
		agent.JSON(body)
	}
	agent.Timeout(c.callTimeout(ctx))

	started := time.Now()
	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("upstream call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, apperrors.NewTransportError("upstream backend unreachable", err)
	}
	c.logger.Debug("upstream call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", code),
		zap.Duration("latency", time.Since(started)))

	switch {
	case code == http.StatusNotFound:
		return nil, repository.ErrNotFound
	case code == http.StatusConflict:
		return nil, repository.ErrDuplicate
	case code < 200 || code >= 300:
		return nil, &apperrors.DomainError{
			Code:       apperrors.CodeTransport,
			Message:    "upstream backend returned an error",
			HTTPStatus: http.StatusBadGateway,
			Details:    map[string]any{"upstream_status": code},
		}
	}
	return resp, nil
}

// callTimeout shortens the configured timeout to the context deadline.
func (c *Client) callTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	return timeout
}

func malformed(err error) error {
	return apperrors.NewTransportError("upstream backend sent an unreadable response", err)
}

func threadPath(id string, rest ...string) string {
	path := "/threads/" + url.PathEscape(id)
	for _, r := range rest {
		path += "/" + r
	}
	return path
}

type ticketRepo struct{ c *Client }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	payload := createThreadRequest{
		Title:       ticket.Title,
		IssueType:   string(ticket.IssueType),
		Description: ticket.Description,
		StudentName: ticket.StudentName,
		StudentID:   ticket.StudentID,
	}
	if len(ticket.Messages) > 0 {
		payload.Issue = ticket.Messages[0].Content
	}

	body, err := r.c.do(ctx, fiber.MethodPost, "/threads", nil, payload)
	if err != nil {
		return err
	}
	created, err := decodeObject[wireThread](body)
	if err != nil {
		return malformed(err)
	}
	if created.ID == "" {
		return malformed(errMalformed)
	}

	// Upstream owns identifiers; adopt them.
	ticket.ID = created.ID
	if ts := firstTime(created.CreatedAt, created.CreatedAtCamel); !ts.IsZero() {
		ticket.CreatedAt = ts
		ticket.UpdatedAt = ts
	}

	existing, err := messageRepo{r.c}.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		ticket.Messages = existing
		return nil
	}
	for i := range ticket.Messages {
		ticket.Messages[i].ThreadID = ticket.ID
		if err := (messageRepo{r.c}).Append(ctx, &ticket.Messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	_, err := r.c.do(ctx, fiber.MethodPatch, threadPath(ticket.ID), nil, fromTicketUpdate(ticket))
	return err
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	body, err := r.c.do(ctx, fiber.MethodGet, threadPath(id), nil, nil)
	if err != nil {
		return nil, err
	}
	wire, err := decodeObject[wireThread](body)
	if err != nil {
		return nil, malformed(err)
	}
	ticket, err := toTicket(wire)
	if err != nil {
		return nil, malformed(err)
	}
	if len(ticket.Messages) == 0 {
		msgs, err := messageRepo{r.c}.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		ticket.Messages = msgs
	}
	return ticket, nil
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	query := url.Values{}
	if filter.StudentID != nil {
		query.Set("student_id", *filter.StudentID)
	}
	if filter.AssignedTo != nil {
		query.Set("assigned_to", *filter.AssignedTo)
	}

	body, err := r.c.do(ctx, fiber.MethodGet, "/threads", query, nil)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[wireThread](body, "threads")
	if err != nil {
		return nil, malformed(err)
	}

	tickets := make([]domain.Ticket, 0, len(wires))
	for _, w := range wires {
		ticket, err := toTicket(w)
		if err != nil {
			return nil, malformed(err)
		}
		if filter.WithMessages && len(ticket.Messages) == 0 {
			msgs, err := messageRepo{r.c}.ListByTicket(ctx, ticket.ID)
			if err != nil {
				return nil, err
			}
			ticket.Messages = msgs
		}
		if !filter.WithMessages {
			ticket.Messages = nil
		}
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

type messageRepo struct{ c *Client }

func (r messageRepo) Append(ctx context.Context, msg *domain.Message) error {
	payload := postMessageRequest{
		Text:       msg.Content,
		Sender:     senderForWire(msg.SenderType),
		SenderName: msg.SenderName,
	}
	body, err := r.c.do(ctx, fiber.MethodPost, threadPath(msg.ThreadID, "messages"), nil, payload)
	if err != nil {
		return err
	}
	created, err := decodeObject[wireMessage](body)
	if err != nil {
		return malformed(err)
	}
	if created.ID != "" {
		msg.ID = created.ID
	}
	return nil
}

func (r messageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Message, error) {
	body, err := r.c.do(ctx, fiber.MethodGet, threadPath(ticketID, "messages"), nil, nil)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[wireMessage](body, "messages")
	if err != nil {
		return nil, malformed(err)
	}
	msgs, err := toMessages(wires, ticketID)
	if err != nil {
		return nil, malformed(err)
	}
	return msgs, nil
}

type departmentRepo struct{ c *Client }

func (r departmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	body, err := r.c.do(ctx, fiber.MethodPost, "/departments", nil,
		departmentRequest{Name: dept.Name, Description: dept.Description})
	if err != nil {
		return err
	}
	created, err := decodeObject[wireDepartment](body)
	if err != nil {
		return malformed(err)
	}
	if created.ID != "" {
		dept.ID = created.ID
	}
	return nil
}

func (r departmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	_, err := r.c.do(ctx, fiber.MethodPatch, "/departments/"+url.PathEscape(dept.ID), nil,
		departmentRequest{Name: dept.Name, Description: dept.Description})
	return err
}

func (r departmentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.c.do(ctx, fiber.MethodDelete, "/departments/"+url.PathEscape(id), nil, nil)
	return err
}

func (r departmentRepo) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	body, err := r.c.do(ctx, fiber.MethodGet, "/departments/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return nil, err
	}
	wire, err := decodeObject[wireDepartment](body)
	if err != nil {
		return nil, malformed(err)
	}
	dept := toDepartment(wire)
	return &dept, nil
}

func (r departmentRepo) GetByName(ctx context.Context, name string) (*domain.Department, error) {
	depts, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range depts {
		if strings.EqualFold(depts[i].Name, name) {
			return &depts[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r departmentRepo) List(ctx context.Context) ([]domain.Department, error) {
	body, err := r.c.do(ctx, fiber.MethodGet, "/departments", nil, nil)
	if err != nil {
		return nil, err
	}
	wires, err := decodeList[wireDepartment](body, "departments")
	if err != nil {
		return nil, malformed(err)
	}
	out := make([]domain.Department, 0, len(wires))
	for _, w := range wires {
		out = append(out, toDepartment(w))
	}
	return out, nil
}
