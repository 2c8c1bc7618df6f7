// Package kraken streams the USD/JPY ticker from the Kraken public
// WebSocket. Kraken is the FX-reporting venue only; it contributes no
// tradable legs.
package kraken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
	"github.com/harunobu-k/fundingarb/internal/venue"
)

// fxPair is the wire name of the subscribed pair.
const fxPair = "USD/JPY"

// Config holds the collector's endpoint.
type Config struct {
	WSURL          string
	ReconnectDelay time.Duration
}

// Collector owns the Kraken connection for the life of the process.
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
		logger: logger.With(slog.String("venue", string(domain.VenueKraken))),
	}
}

// Run connects and streams until ctx is cancelled, reconnecting forever on
// any failure.
func (c *Collector) Run(ctx context.Context) error {
	return venue.RunLoop(ctx, c.cfg.WSURL, c.cfg.ReconnectDelay, c.logger, c.stream)
}

type subRequest struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

func (c *Collector) stream(ctx context.Context, conn *websocket.Conn) error {
	req := subRequest{Event: "subscribe", Pair: []string{fxPair}}
	req.Subscription.Name = "ticker"
	if err := venue.SendJSON(conn, req); err != nil {
		return fmt.Errorf("kraken: subscribe %s: %w", fxPair, err)
	}
	c.logger.Info("subscribed", slog.String("pair", fxPair))

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
		if err := c.handleMessage(msg); err != nil {
			c.logger.Debug("frame dropped", slog.String("error", err.Error()))
		}
	}
}

type tickerData struct {
	// c is [last trade price, lot volume].
	Close []json.RawMessage `json:"c"`
}

// handleMessage sniffs the frame shape: data frames are arrays
// [channelID, data, channelName, pair], events (heartbeat, systemStatus,
// subscriptionStatus) are objects and carry no prices.
func (c *Collector) handleMessage(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] != '[' {
		var event struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal(trimmed, &event); err != nil {
			return fmt.Errorf("kraken: event: %w", err)
		}
		if event.Event == "subscriptionStatus" {
			c.logger.Debug("subscription status frame")
		}
		return nil
	}

	var frame []json.RawMessage
	if err := json.Unmarshal(trimmed, &frame); err != nil {
		return fmt.Errorf("kraken: frame: %w", err)
	}
	if len(frame) < 2 {
		return nil
	}

	var data tickerData
	if err := json.Unmarshal(frame[1], &data); err != nil {
		return fmt.Errorf("kraken: ticker: %w", err)
	}
	if len(data.Close) == 0 {
		return nil
	}

	price, err := venue.ParseDecimal(data.Close[0])
	if err != nil {
		return fmt.Errorf("kraken: last price: %w", err)
	}

	// The rate consumer only needs one number; publish the last trade as
	// bid, ask, and last alike.
	c.store.UpsertPrice(domain.VenueKraken, domain.FXSymbol, price, price, price)
	return nil
}
