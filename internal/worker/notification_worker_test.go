package worker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
)

func TestAuditHandlerCountsBridgedEvents(t *testing.T) {
	metrics := observability.NewMetrics()
	handle := auditHandler(metrics, zap.NewNop())

	event := events.Event{
		ID:        "e1",
		Type:      events.EventTicketAssigned,
		TicketID:  "t1",
		Actor:     events.Actor{UserID: "u1", Role: domain.RoleManager},
		Timestamp: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Payload:   events.TicketAssignedPayload{Department: "IT Department"},
	}
	data, err := json.Marshal(event)
	require.NoError(t, err)

	handle(&nats.Msg{Subject: events.Subject("helpdesk", event), Data: data})
	handle(&nats.Msg{Subject: "helpdesk.ticket.ticket_assigned.other", Data: data})
	handle(&nats.Msg{Subject: "helpdesk.ticket.ticket_assigned.t1", Data: []byte("{")})

	count, err := testutil.GatherAndCount(metrics.Registry(), "helpdesk_tickets_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStartEventAuditWorkerWithoutBus(t *testing.T) {
	sub, err := StartEventAuditWorker(nil, "helpdesk", nil, zap.NewNop())
	assert.NoError(t, err)
	assert.Nil(t, sub)
	StartNotificationWorker(nil)
}
