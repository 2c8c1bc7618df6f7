// Package venue holds the connection plumbing shared by all feed
// collectors: the dial/reconnect loop and defensive decimal decoding.
// Each venue's wire protocol lives in its own subpackage.
package venue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	// handshakeTimeout bounds the WebSocket dial, the one network
	// operation that has a deadline; reads wait indefinitely.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// DefaultReconnectDelay is the fixed pause between connection
	// attempts. There is no backoff growth and no retry cap: the feed is
	// always wanted.
	DefaultReconnectDelay = 5 * time.Second
)

// StreamFunc owns a live connection from subscribe to close. Returning an
// error (or nil on a clean server close) tears the connection down and
// re-enters the reconnect delay.
type StreamFunc func(ctx context.Context, conn *websocket.Conn) error

// RunLoop dials url and runs stream until ctx is cancelled, reconnecting
// after delay on any connection-level failure. Errors are contained here;
// the loop never escalates them.
func RunLoop(ctx context.Context, url string, delay time.Duration, logger *slog.Logger, stream StreamFunc) error {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}

	for {
		logger.Info("connecting", slog.String("url", url))

		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, url, nil)
		if err != nil {
			logger.Error("connect failed", slog.String("error", err.Error()))
		} else {
			logger.Info("connected")
			// Force the blocking read loop out when the process shuts down.
			stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
			if err := stream(ctx, conn); err != nil {
				logger.Error("stream error", slog.String("error", err.Error()))
			}
			stop()
			_ = conn.Close()
		}

		logger.Warn("reconnecting", slog.Duration("delay", delay))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// SendJSON marshals v and writes it as a text frame with a write deadline.
func SendJSON(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendText writes a raw text frame with a write deadline.
func SendText(conn *websocket.Conn, s string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(s))
}

// ParseDecimal decodes a JSON value that should be a decimal-formatted
// string but may, defensively, be a bare number. Parsing goes through the
// exact decimal type; binary floating point never touches a price.
func ParseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(n.String())
}
