package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/config"
)

// NewNats connects to the event bus. A nil connection means the bus is
// disabled.
func NewNats(cfg config.NatsConfig, appName string, logger *zap.Logger) (*nats.Conn, error) {
	if cfg.URL == "" {
		logger.Info("NATS_URL not set; events stay in process")
		return nil, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return nc, nil
}

// DrainNats flushes pending publishes and closes the connection.
func DrainNats(nc *nats.Conn, logger *zap.Logger) {
	if nc == nil {
		return
	}
	logger.Debug("draining nats connection")
	if err := nc.Drain(); err != nil {
		logger.Warn("nats drain failed", zap.Error(err))
	}
}

// NatsProbe adapts a connection to the readiness check.
type NatsProbe struct {
	Conn *nats.Conn
}

// Ping round-trips to the server.
func (p NatsProbe) Ping(ctx context.Context) error {
	if p.Conn == nil || !p.Conn.IsConnected() {
		return errors.New("nats not connected")
	}
	return p.Conn.FlushWithContext(ctx)
}
