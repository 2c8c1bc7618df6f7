// Package hyperliquid streams order books and perpetual funding context
// from the Hyperliquid WebSocket feed. Perpetual markets are addressed by
// asset name; spot markets hide behind "@N" numeric ids that are resolved
// once at start (see spotids.go) and reverse-mapped on every book frame.
package hyperliquid

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

// Config holds the collector's endpoints and subscription set.
type Config struct {
	WSURL          string
	ReconnectDelay time.Duration
	Assets         []domain.Asset
}

// Collector owns the Hyperliquid connection for the life of the process.
type Collector struct {
	cfg     Config
	spotIDs *SpotIDs
	store   *marketstore.Store
	logger  *slog.Logger
}

// NewCollector creates a Collector writing into store. spotIDs must already
// be resolved (ResolveSpotIDs).
func NewCollector(cfg Config, spotIDs *SpotIDs, store *marketstore.Store, logger *slog.Logger) *Collector {
	return &Collector{
		cfg:     cfg,
		spotIDs: spotIDs,
		store:   store,
		logger:  logger.With(slog.String("venue", string(domain.VenueHyperliquid))),
	}
}

// Run connects and streams until ctx is cancelled, reconnecting forever on
// any failure.
func (c *Collector) Run(ctx context.Context) error {
	return venue.RunLoop(ctx, c.cfg.WSURL, c.cfg.ReconnectDelay, c.logger, c.stream)
}

type subTarget struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

type subRequest struct {
	Method       string    `json:"method"`
	Subscription subTarget `json:"subscription"`
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

// subscribe requests the order book and derivative context per asset, plus
// the order book of each asset's resolved spot id. An asset with no spot
// mapping loses only its spot leg.
func (c *Collector) subscribe(conn *websocket.Conn) error {
	for _, asset := range c.cfg.Assets {
		sym := asset.Symbol()

		for _, typ := range []string{"l2Book", "activeAssetCtx"} {
			req := subRequest{Method: "subscribe", Subscription: subTarget{Type: typ, Coin: sym}}
			if err := venue.SendJSON(conn, req); err != nil {
				return fmt.Errorf("hyperliquid: subscribe %s %s: %w", typ, sym, err)
			}
		}
		c.logger.Info("subscribed perp", slog.String("asset", sym))

		spotID, ok := c.spotIDs.ForAsset(asset)
		if !ok {
			c.logger.Warn("no spot id mapping, spot leg not subscribed", slog.String("asset", sym))
			continue
		}
		req := subRequest{Method: "subscribe", Subscription: subTarget{Type: "l2Book", Coin: spotID}}
		if err := venue.SendJSON(conn, req); err != nil {
			return fmt.Errorf("hyperliquid: subscribe spot %s: %w", spotID, err)
		}
		c.logger.Info("subscribed spot", slog.String("asset", sym), slog.String("spot_id", spotID))
	}
	return nil
}

type envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type bookLevel struct {
	Px json.RawMessage `json:"px"`
}

type bookData struct {
	Coin   string        `json:"coin"`
	Levels [][]bookLevel `json:"levels"`
}

type assetCtxData struct {
	Coin string `json:"coin"`
	Ctx  struct {
		Funding json.RawMessage `json:"funding"`
	} `json:"ctx"`
}

func (c *Collector) handleMessage(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("envelope: %w", err)
	}

	switch env.Channel {
	case "l2Book":
		return c.handleBook(env.Data)
	case "activeAssetCtx":
		return c.handleAssetCtx(env.Data)
	default:
		return nil
	}
}

func (c *Collector) handleBook(data json.RawMessage) error {
	var book bookData
	if err := json.Unmarshal(data, &book); err != nil {
		return fmt.Errorf("l2Book: %w", err)
	}
	if len(book.Levels) < 2 || len(book.Levels[0]) == 0 || len(book.Levels[1]) == 0 {
		return fmt.Errorf("l2Book: empty side for %s", book.Coin)
	}

	bid, err := venue.ParseDecimal(book.Levels[0][0].Px)
	if err != nil {
		return fmt.Errorf("l2Book bid: %w", err)
	}
	ask, err := venue.ParseDecimal(book.Levels[1][0].Px)
	if err != nil {
		return fmt.Errorf("l2Book ask: %w", err)
	}
	mid := bid.Add(ask).Div(decimal.NewFromInt(2))

	if strings.HasPrefix(book.Coin, "@") {
		// Spot frame: reverse-map the numeric id to the asset name. An
		// unmapped id is dropped rather than stored under a raw "@N" key.
		asset, ok := c.spotIDs.AssetForID(book.Coin)
		if !ok {
			c.logger.Debug("unmapped spot id", slog.String("coin", book.Coin))
			return nil
		}
		c.store.UpsertPrice(domain.VenueHyperliquid, domain.SpotKey(asset), bid, ask, mid)
		return nil
	}

	c.store.UpsertPrice(domain.VenueHyperliquid, book.Coin, bid, ask, mid)
	return nil
}

func (c *Collector) handleAssetCtx(data json.RawMessage) error {
	var ctxMsg assetCtxData
	if err := json.Unmarshal(data, &ctxMsg); err != nil {
		return fmt.Errorf("activeAssetCtx: %w", err)
	}
	if ctxMsg.Coin == "" || len(ctxMsg.Ctx.Funding) == 0 {
		return nil
	}

	funding, err := venue.ParseDecimal(ctxMsg.Ctx.Funding)
	if err != nil {
		return fmt.Errorf("activeAssetCtx funding: %w", err)
	}
	c.store.UpsertFunding(domain.VenueHyperliquid, ctxMsg.Coin, funding)
	return nil
}
