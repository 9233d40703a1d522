package worker

import (
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/service"
)

// StartNotificationWorker registers in-process notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// busEnvelope is the part of a bridged event the audit worker reads.
type busEnvelope struct {
	ID       string           `json:"id"`
	Type     events.EventType `json:"type"`
	TicketID string           `json:"ticket_id"`
	Actor    events.Actor     `json:"actor"`
}

// StartEventAuditWorker follows every ticket event on the bus, including
// those published by other replicas, and counts them.
func StartEventAuditWorker(nc *nats.Conn, prefix string, metrics *observability.Metrics, logger *zap.Logger) (*nats.Subscription, error) {
	if nc == nil {
		return nil, nil
	}
	subject := prefix + ".ticket.>"
	sub, err := nc.Subscribe(subject, auditHandler(metrics, logger))
	if err != nil {
		return nil, err
	}
	logger.Info("event audit worker subscribed", zap.String("subject", subject))
	return sub, nil
}

func auditHandler(metrics *observability.Metrics, logger *zap.Logger) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var env busEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			logger.Warn("event audit: undecodable message", zap.String("subject", msg.Subject), zap.Error(err))
			metrics.RecordOperation("bus_event", "malformed")
			return
		}
		// subject: <prefix>.ticket.<type>.<ticketID>
		parts := strings.Split(msg.Subject, ".")
		if len(parts) < 4 || parts[len(parts)-1] != env.TicketID {
			logger.Warn("event audit: subject does not match payload",
				zap.String("subject", msg.Subject),
				zap.String("ticket_id", env.TicketID))
			metrics.RecordOperation("bus_event", "mismatch")
			return
		}
		logger.Debug("event audit",
			zap.String("event_id", env.ID),
			zap.String("event_type", string(env.Type)),
			zap.String("ticket_id", env.TicketID),
			zap.String("actor", env.Actor.UserID))
		metrics.RecordOperation("bus_"+string(env.Type), "received")
	}
}
