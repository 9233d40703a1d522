package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Publisher is the subset of *nats.Conn the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// natsBridge republishes every event on <prefix>.ticket.<type>.<ticketID>
// after local handlers have run.
type natsBridge struct {
	Dispatcher
	publisher Publisher
	prefix    string
	logger    *zap.Logger
}

// NewNatsBridge wraps inner so that published events also leave the process.
func NewNatsBridge(inner Dispatcher, publisher Publisher, prefix string, logger *zap.Logger) Dispatcher {
	return &natsBridge{
		Dispatcher: inner,
		publisher:  publisher,
		prefix:     prefix,
		logger:     logger,
	}
}

// Subject returns the bus subject for an event.
func Subject(prefix string, event Event) string {
	return fmt.Sprintf("%s.ticket.%s.%s", prefix, event.Type, event.TicketID)
}

func (b *natsBridge) Publish(ctx context.Context, event Event) error {
	localErr := b.Dispatcher.Publish(ctx, event)

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Join(localErr, fmt.Errorf("encode event %s: %w", event.ID, err))
	}
	subject := Subject(b.prefix, event)
	if err := b.publisher.Publish(subject, data); err != nil {
		b.logger.Warn("event bridge publish failed",
			zap.String("subject", subject),
			zap.Error(err))
		return errors.Join(localErr, err)
	}
	return localErr
}
