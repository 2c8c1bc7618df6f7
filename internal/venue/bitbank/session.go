package bitbank

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
	"github.com/harunobu-k/fundingarb/internal/venue"
)

// Engine.IO packet prefixes. Socket.IO packets ride inside type '4'
// (message): "40" is the namespace connect/ack, "42" an event.
const (
	pktOpen      = "0"
	pktPing      = "2"
	pktPong      = "3"
	pktConnect   = "40"
	pktEvent     = "42"
	joinRoomName = "join-room"
)

type sessionState int

const (
	stateAwaitOpen sessionState = iota
	stateAwaitNamespace
	stateStreaming
)

// session is the Socket.IO handshake/event state machine, independent of
// any network connection: Handle consumes one inbound text frame and
// returns the frames to send back. Flow: receive open packet, reply with a
// bare connect, receive the namespace ack, join one ticker room per asset,
// then stream events while answering every ping with a pong.
type session struct {
	state  sessionState
	assets []domain.Asset
	store  *marketstore.Store
	logger *slog.Logger
}

func newSession(assets []domain.Asset, store *marketstore.Store, logger *slog.Logger) *session {
	return &session{
		state:  stateAwaitOpen,
		assets: assets,
		store:  store,
		logger: logger,
	}
}

// roomFor builds the ticker room name for an asset, e.g. "ticker_btc_jpy".
func roomFor(a domain.Asset) string {
	return "ticker_" + strings.ToLower(a.Symbol()) + "_jpy"
}

// Handle processes one inbound frame, applies any resulting store write,
// and returns outbound frames in send order. A malformed frame yields an
// error and no state change; the stream continues.
func (s *session) Handle(frame string) ([]string, error) {
	switch {
	case strings.HasPrefix(frame, pktConnect):
		if s.state != stateAwaitNamespace {
			return nil, nil
		}
		s.state = stateStreaming
		joins := make([]string, 0, len(s.assets))
		for _, a := range s.assets {
			room := roomFor(a)
			joins = append(joins, fmt.Sprintf(`%s["%s",%q]`, pktEvent, joinRoomName, room))
			s.logger.Info("joining room", slog.String("room", room))
		}
		return joins, nil

	case strings.HasPrefix(frame, pktEvent):
		if s.state != stateStreaming {
			return nil, nil
		}
		return nil, s.handleEvent(frame[len(pktEvent):])

	case strings.HasPrefix(frame, pktOpen):
		if s.state != stateAwaitOpen {
			return nil, nil
		}
		s.state = stateAwaitNamespace
		return []string{pktConnect}, nil

	case strings.HasPrefix(frame, pktPing):
		// Unanswered pings get the connection dropped server-side.
		return []string{pktPong}, nil
	}

	return nil, nil
}

type tickerPayload struct {
	RoomName string `json:"room_name"`
	Message  struct {
		Data tickerData `json:"data"`
	} `json:"message"`
}

type tickerData struct {
	Sell json.RawMessage `json:"sell"`
	Buy  json.RawMessage `json:"buy"`
	Last json.RawMessage `json:"last"`
}

// handleEvent parses a `["message", {...}]` event body and writes the
// ticker into the store. The room name substring selects the asset.
func (s *session) handleEvent(body string) error {
	var event []json.RawMessage
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return fmt.Errorf("bitbank: event: %w", err)
	}
	if len(event) < 2 {
		return nil
	}

	var name string
	if err := json.Unmarshal(event[0], &name); err != nil || name != "message" {
		return nil
	}

	var payload tickerPayload
	if err := json.Unmarshal(event[1], &payload); err != nil {
		return fmt.Errorf("bitbank: payload: %w", err)
	}

	asset, ok := s.assetForRoom(payload.RoomName)
	if !ok {
		return nil
	}

	// Bitbank quotes sell/buy/last as decimal strings: sell is the best
	// ask, buy the best bid.
	ask, err := venue.ParseDecimal(payload.Message.Data.Sell)
	if err != nil {
		return fmt.Errorf("bitbank: sell: %w", err)
	}
	bid, err := venue.ParseDecimal(payload.Message.Data.Buy)
	if err != nil {
		return fmt.Errorf("bitbank: buy: %w", err)
	}
	last, err := venue.ParseDecimal(payload.Message.Data.Last)
	if err != nil {
		return fmt.Errorf("bitbank: last: %w", err)
	}

	s.store.UpsertPrice(domain.VenueBitbank, asset.Symbol(), bid, ask, last)
	return nil
}

func (s *session) assetForRoom(room string) (domain.Asset, bool) {
	for _, a := range s.assets {
		if strings.Contains(room, strings.ToLower(a.Symbol())+"_jpy") {
			return a, true
		}
	}
	return "", false
}
