package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/api/dto"
	"github.com/spec-kit/campus-helpdesk/internal/service"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// TicketsHandler serves the /threads resource.
type TicketsHandler struct {
	tickets   *service.TicketService
	queries   *service.QueryService
	analytics *service.AnalyticsService
	validator *dto.Validator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, queries *service.QueryService, analytics *service.AnalyticsService, validator *dto.Validator) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, queries: queries, analytics: analytics, validator: validator}
}

// ListThreads GET /threads.
func (h *TicketsHandler) ListThreads(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var q dto.ThreadListQuery
	if err := c.QueryParser(&q); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := h.validator.Validate(&q); err != nil {
		return err
	}
	sortSpec, err := service.ParseSortSpec(q.Sort, q.Order)
	if err != nil {
		return err
	}
	page := q.Page
	if page <= 0 {
		page = defaultPage
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	result, err := h.queries.ListTickets(c.UserContext(), identity, service.ListQuery{
		Criteria: service.TicketCriteria{
			Status:      q.Status,
			IssueType:   q.IssueType,
			AssignedTo:  q.AssignedTo,
			Priority:    q.Priority,
			SearchQuery: q.Search,
		},
		Sort:     sortSpec,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return err
	}

	items := make([]dto.ThreadResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, threadResponse(&result.Items[i], false))
	}
	return c.JSON(fiber.Map{"data": dto.ThreadPageResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
		Sort:       string(sortSpec.Field),
		Order:      string(sortSpec.Direction),
	}})
}

// CreateThread POST /threads.
func (h *TicketsHandler) CreateThread(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.CreateThreadRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.CreateTicket(c.UserContext(), identity, service.TicketCreateInput{
		Title:       req.Title,
		IssueType:   req.IssueType,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": threadResponse(ticket, true)})
}

// GetThread GET /threads/:id.
func (h *TicketsHandler) GetThread(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(ticket, true)})
}

// UpdateThread PATCH /threads/:id.
func (h *TicketsHandler) UpdateThread(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.UpdateThreadRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Status) == "" && strings.TrimSpace(req.Priority) == "" && strings.TrimSpace(req.Response) == "" {
		return apperrors.NewValidationError("nothing to update", nil)
	}
	ticket, err := h.tickets.RespondAndUpdate(c.UserContext(), identity, c.Params("id"), req.Response, req.Status, req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(ticket, true)})
}

// AssignThread POST /threads/:id/assign?department=.
func (h *TicketsHandler) AssignThread(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.AssignTicket(c.UserContext(), identity, c.Params("id"), c.Query("department"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(ticket, false)})
}

// EscalateThread POST /threads/:id/escalate.
func (h *TicketsHandler) EscalateThread(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Escalate(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": threadResponse(ticket, false)})
}

// ThreadHistory GET /threads/:id/history.
func (h *TicketsHandler) ThreadHistory(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	entries, err := h.tickets.ListHistory(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(entries)})
}

// ListMessages GET /threads/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	msgs, err := h.tickets.ListMessages(c.UserContext(), identity, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": messageResponses(msgs)})
}

// PostMessage POST /threads/:id/messages.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	var req dto.PostMessageRequest
	if err := bindJSON(c, h.validator, &req); err != nil {
		return err
	}
	msg, err := h.tickets.AppendMessage(c.UserContext(), identity, c.Params("id"), service.MessageInput{
		Content:    req.Text,
		SenderType: req.Sender,
		SenderName: req.SenderName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// Statistics GET /threads/statistics.
func (h *TicketsHandler) Statistics(c *fiber.Ctx) error {
	identity, err := callerIdentity(c)
	if err != nil {
		return err
	}
	stats, err := h.analytics.Statistics(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statisticsResponse(stats)})
}
