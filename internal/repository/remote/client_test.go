package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/config"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// startUpstream serves app on a loopback port and returns a client for it.
func startUpstream(t *testing.T, app *fiber.App) *Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return NewClient(config.RemoteConfig{
		BaseURL:        "http://" + ln.Addr().String(),
		Token:          "upstream-token",
		TimeoutSeconds: 2,
	}, zap.NewNop())
}

func TestClientListAndGet(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/threads", func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "Bearer upstream-token" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"threads": []fiber.Map{
			{"id": "t1", "title": "Wifi", "status": "assigned", "assigned_to": "IT Department", "created_at": "2026-03-01T09:00:00Z"},
		}})
	})
	app.Get("/threads/:id/messages", func(c *fiber.Ctx) error {
		if c.Params("id") != "t1" {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.JSON(fiber.Map{"messages": []fiber.Map{
			{"id": "m1", "thread_id": "t1", "sender": "student", "text": "help", "created_at": "2026-03-01T09:00:00Z"},
		}})
	})
	app.Get("/threads/:id", func(c *fiber.Ctx) error {
		if c.Params("id") != "t1" {
			return c.SendStatus(fiber.StatusNotFound)
		}
		return c.JSON(fiber.Map{"id": "t1", "title": "Wifi", "status": "assigned", "assigned_to": "IT Department"})
	})

	client := startUpstream(t, app)
	ctx := context.Background()

	tickets, err := client.Tickets().List(ctx, repository.TicketFilter{WithMessages: true})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusAssigned, tickets[0].Status)
	require.Len(t, tickets[0].Messages, 1)
	assert.Equal(t, "help", tickets[0].Messages[0].Content)

	ticket, err := client.Tickets().GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "IT Department", ticket.Department())
	assert.Len(t, ticket.Messages, 1)

	_, err = client.Tickets().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestClientCreateAdoptsUpstreamID(t *testing.T) {
	var posted createThreadRequest
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/threads", func(c *fiber.Ctx) error {
		if err := c.BodyParser(&posted); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"id": "up-1", "title": posted.Title})
	})
	app.Get("/threads/:id/messages", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"messages": []fiber.Map{
			{"id": "m-up", "sender": "student", "text": posted.Issue},
		}})
	})

	client := startUpstream(t, app)
	ticket := &domain.Ticket{
		ID:        "local",
		Title:     "Cannot log in",
		IssueType: domain.IssueTypeTechnical,
		Messages:  []domain.Message{{ID: "m-local", Content: "Cannot log in", SenderType: domain.SenderTypeUser}},
	}

	require.NoError(t, client.Tickets().Create(context.Background(), ticket))
	assert.Equal(t, "up-1", ticket.ID)
	assert.Equal(t, "technical", posted.IssueType)
	assert.Equal(t, "Cannot log in", posted.Issue)
	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, "m-up", ticket.Messages[0].ID)
}

func TestClientTransportErrors(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/threads", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).SendString("boom")
	})
	app.Get("/departments", func(c *fiber.Ctx) error {
		return c.SendString("<html>not json</html>")
	})

	client := startUpstream(t, app)
	ctx := context.Background()

	_, err := client.Tickets().List(ctx, repository.TicketFilter{})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))

	_, err = client.Departments().List(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.Departments().List(cancelled)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))
}

func TestClientUnreachable(t *testing.T) {
	client := NewClient(config.RemoteConfig{BaseURL: "http://127.0.0.1:1", TimeoutSeconds: 1}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Messages().ListByTicket(ctx, "t1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTransport))
}
