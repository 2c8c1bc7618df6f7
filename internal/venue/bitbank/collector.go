// Package bitbank streams spot tickers from the bitbank Socket.IO feed
// (Engine.IO v4 text framing over WebSocket). The handshake and packet
// handling live in a connection-free session state machine (session.go);
// this file only moves frames between the wire and the session.
package bitbank

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
	"github.com/harunobu-k/fundingarb/internal/venue"
)

// Config holds the collector's endpoint and subscription set.
type Config struct {
	WSURL          string
	ReconnectDelay time.Duration
	Assets         []domain.Asset
}

// Collector owns the bitbank connection for the life of the process.
type Collector struct {
	cfg    Config
	store  *marketstore.Store
	logger *slog.Logger
}

// NewCollector creates a Collector writing into store.
func NewCollector(cfg Config, store *marketstore.Store, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:    cfg,
		store:  store,
		logger: logger.With(slog.String("venue", string(domain.VenueBitbank))),
	}
}

// Run connects and streams until ctx is cancelled, reconnecting forever on
// any failure.
func (c *Collector) Run(ctx context.Context) error {
	return venue.RunLoop(ctx, c.cfg.WSURL, c.cfg.ReconnectDelay, c.logger, c.stream)
}

func (c *Collector) stream(ctx context.Context, conn *websocket.Conn) error {
	sess := newSession(c.cfg.Assets, c.store, c.logger)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("server closed connection")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		replies, err := sess.Handle(string(msg))
		if err != nil {
			c.logger.Debug("frame dropped", slog.String("error", err.Error()))
		}
		for _, reply := range replies {
			if err := venue.SendText(conn, reply); err != nil {
				return err
			}
		}
	}
}
