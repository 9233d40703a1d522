package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/observability"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// Clock supplies the current time to services.
type Clock func() time.Time

// SystemClock is UTC wall time at storage precision.
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// mapRepoError converts backend sentinels into client-facing errors.
func mapRepoError(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	default:
		return apperrors.MapError(err)
	}
}

// requireIdentity rejects calls made without a signed-in caller.
func requireIdentity(identity domain.Identity) error {
	if identity.UserID == "" {
		return apperrors.NewUnauthorized("sign-in required")
	}
	if _, ok := domain.ParseRole(string(identity.Role)); !ok {
		return apperrors.NewUnauthorized("unknown role")
	}
	return nil
}

func requireSupervisor(identity domain.Identity) error {
	if err := requireIdentity(identity); err != nil {
		return err
	}
	if !identity.CanSeeAll() {
		return apperrors.NewForbidden("manager or leadership role required")
	}
	return nil
}

// instrumentation opens a span per operation and counts outcomes.
type instrumentation struct {
	metrics *observability.Metrics
}

func (in instrumentation) start(ctx context.Context, op string, identity domain.Identity) (context.Context, trace.Span) {
	return observability.Tracer().Start(ctx, "service."+op, trace.WithAttributes(
		attribute.String("helpdesk.user_id", identity.UserID),
		attribute.String("helpdesk.role", string(identity.Role)),
	))
}

func (in instrumentation) end(span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	in.metrics.RecordOperation(op, outcome)
	span.End()
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func actorOf(identity domain.Identity) events.Actor {
	return events.Actor{UserID: identity.UserID, Role: identity.Role}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
