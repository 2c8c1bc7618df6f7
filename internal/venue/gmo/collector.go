// Package gmo streams tickers from the GMO Coin public WebSocket. One
// ticker channel carries every subscribed symbol: the USD_JPY FX pair, the
// bare asset symbols (spot), and the _JPY-suffixed symbols (leveraged).
package gmo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
	"github.com/harunobu-k/fundingarb/internal/venue"
)

const leverageSuffix = "_JPY"

// Config holds the collector's endpoint and subscription set.
type Config struct {
	WSURL          string
	ReconnectDelay time.Duration
	Assets         []domain.Asset
}

// Collector owns the GMO connection for the life of the process.
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
		logger: logger.With(slog.String("venue", string(domain.VenueGMO))),
	}
}

// Run connects and streams until ctx is cancelled, reconnecting forever on
// any failure.
func (c *Collector) Run(ctx context.Context) error {
	return venue.RunLoop(ctx, c.cfg.WSURL, c.cfg.ReconnectDelay, c.logger, c.stream)
}

type subCommand struct {
	Command string `json:"command"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}

func (c *Collector) stream(ctx context.Context, conn *websocket.Conn) error {
	if err := c.subscribe(conn); err != nil {
		return err
	}

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

// subscribe requests the FX ticker plus, per asset, the spot symbol and
// the leveraged _JPY symbol.
func (c *Collector) subscribe(conn *websocket.Conn) error {
	symbols := []string{domain.FXSymbol}
	for _, a := range c.cfg.Assets {
		symbols = append(symbols, a.Symbol(), a.Symbol()+leverageSuffix)
	}

	for _, sym := range symbols {
		cmd := subCommand{Command: "subscribe", Channel: "ticker", Symbol: sym}
		if err := venue.SendJSON(conn, cmd); err != nil {
			return fmt.Errorf("gmo: subscribe %s: %w", sym, err)
		}
		c.logger.Info("subscribed", slog.String("symbol", sym))
	}
	return nil
}

type tickerMessage struct {
	Channel string          `json:"channel"`
	Symbol  string          `json:"symbol"`
	Bid     json.RawMessage `json:"bid"`
	Ask     json.RawMessage `json:"ask"`
}

func (c *Collector) handleMessage(raw []byte) error {
	var msg tickerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("gmo: message: %w", err)
	}
	if msg.Channel != "ticker" || msg.Symbol == "" {
		return nil
	}

	bid, err := venue.ParseDecimal(msg.Bid)
	if err != nil {
		return fmt.Errorf("gmo: bid: %w", err)
	}
	ask, err := venue.ParseDecimal(msg.Ask)
	if err != nil {
		return fmt.Errorf("gmo: ask: %w", err)
	}
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))

	// Symbol routing: the exact FX pair keeps its name, a _JPY suffix
	// marks the leveraged market (stored under the bare asset as the
	// derivative leg), anything else is spot.
	key := msg.Symbol
	switch {
	case msg.Symbol == domain.FXSymbol:
	case strings.HasSuffix(msg.Symbol, leverageSuffix):
		key = strings.TrimSuffix(msg.Symbol, leverageSuffix)
	default:
		key = msg.Symbol + domain.SpotSuffix
	}

	c.store.UpsertPrice(domain.VenueGMO, key, bid, ask, mid)
	return nil
}
