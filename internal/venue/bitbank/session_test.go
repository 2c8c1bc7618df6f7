package bitbank

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(assets ...domain.Asset) (*session, *marketstore.Store) {
	store := marketstore.New()
	return newSession(assets, store, discard()), store
}

const openFrame = `0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":20000}`

func TestHandshakeOpenSendsConnect(t *testing.T) {
	s, _ := testSession(domain.AssetBTC)

	out, err := s.Handle(openFrame)
	if err != nil {
		t.Fatalf("Handle open: %v", err)
	}
	if len(out) != 1 || out[0] != "40" {
		t.Fatalf("open should be answered with exactly one connect, got %v", out)
	}
}

func TestHandshakeNamespaceAckJoinsRooms(t *testing.T) {
	s, _ := testSession(domain.AssetBTC, domain.AssetETH)
	if _, err := s.Handle(openFrame); err != nil {
		t.Fatal(err)
	}

	out, err := s.Handle(`40{"sid":"xyz"}`)
	if err != nil {
		t.Fatalf("Handle connect ack: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected one join per asset, got %v", out)
	}
	if out[0] != `42["join-room","ticker_btc_jpy"]` {
		t.Fatalf("first join = %q", out[0])
	}
	if out[1] != `42["join-room","ticker_eth_jpy"]` {
		t.Fatalf("second join = %q", out[1])
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	s, _ := testSession(domain.AssetBTC)

	// Pings come in any state and always get exactly one pong.
	out, err := s.Handle("2")
	if err != nil {
		t.Fatalf("Handle ping: %v", err)
	}
	if len(out) != 1 || out[0] != "3" {
		t.Fatalf("ping should get one pong, got %v", out)
	}
}

func TestConnectAckBeforeOpenIgnored(t *testing.T) {
	s, _ := testSession(domain.AssetBTC)

	out, err := s.Handle(`40{"sid":"xyz"}`)
	if err != nil || out != nil {
		t.Fatalf("connect ack in await-open state should be ignored, got %v, %v", out, err)
	}
}

func streamingSession(t *testing.T, assets ...domain.Asset) (*session, *marketstore.Store) {
	t.Helper()
	s, store := testSession(assets...)
	if _, err := s.Handle(openFrame); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Handle("40"); err != nil {
		t.Fatal(err)
	}
	return s, store
}

func TestTickerEventWritesStore(t *testing.T) {
	s, store := streamingSession(t, domain.AssetBTC)

	frame := `42["message",{"room_name":"ticker_btc_jpy","message":{"data":{"sell":"14550000","buy":"14540000","last":"14545000","vol":"12.3"}}}]`
	out, err := s.Handle(frame)
	if err != nil {
		t.Fatalf("Handle event: %v", err)
	}
	if out != nil {
		t.Fatalf("ticker event should produce no outbound frames, got %v", out)
	}

	d, ok := store.Read(domain.VenueBitbank, "BTC")
	if !ok {
		t.Fatal("ticker event should write under the bare symbol")
	}
	if !d.Ask.Equal(decimal.RequireFromString("14550000")) {
		t.Fatalf("sell should map to ask, got %s", d.Ask)
	}
	if !d.Bid.Equal(decimal.RequireFromString("14540000")) {
		t.Fatalf("buy should map to bid, got %s", d.Bid)
	}
	if !d.Last.Equal(decimal.RequireFromString("14545000")) {
		t.Fatalf("last = %s", d.Last)
	}
}

func TestTickerEventUnknownRoomIgnored(t *testing.T) {
	s, store := streamingSession(t, domain.AssetBTC)

	frame := `42["message",{"room_name":"ticker_xrp_jpy","message":{"data":{"sell":"1","buy":"1","last":"1"}}}]`
	if _, err := s.Handle(frame); err != nil {
		t.Fatalf("unknown room should be a silent drop, got %v", err)
	}
	if _, ok := store.Read(domain.VenueBitbank, "BTC"); ok {
		t.Fatal("unknown room must not write")
	}
}

func TestEventBeforeStreamingIgnored(t *testing.T) {
	s, store := testSession(domain.AssetBTC)

	frame := `42["message",{"room_name":"ticker_btc_jpy","message":{"data":{"sell":"1","buy":"1","last":"1"}}}]`
	if _, err := s.Handle(frame); err != nil {
		t.Fatalf("event before handshake should be ignored, got %v", err)
	}
	if _, ok := store.Read(domain.VenueBitbank, "BTC"); ok {
		t.Fatal("event before handshake must not write")
	}
}

func TestMalformedEventErrors(t *testing.T) {
	s, store := streamingSession(t, domain.AssetBTC)

	if _, err := s.Handle(`42["message",{"room_name":"ticker_btc_jpy","message":{"data":{"sell":"oops","buy":"1","last":"1"}}}]`); err == nil {
		t.Fatal("unparsable price should error")
	}
	if _, ok := store.Read(domain.VenueBitbank, "BTC"); ok {
		t.Fatal("malformed event must not write")
	}

	// The stream survives: a following good event still lands.
	frame := `42["message",{"room_name":"ticker_btc_jpy","message":{"data":{"sell":"2","buy":"1","last":"1.5"}}}]`
	if _, err := s.Handle(frame); err != nil {
		t.Fatalf("session should keep streaming after a bad frame: %v", err)
	}
	if _, ok := store.Read(domain.VenueBitbank, "BTC"); !ok {
		t.Fatal("good event after a bad one should write")
	}
}

func TestRoomNameFormat(t *testing.T) {
	for _, tc := range []struct {
		asset domain.Asset
		want  string
	}{
		{domain.AssetBTC, "ticker_btc_jpy"},
		{domain.AssetHYPE, "ticker_hype_jpy"},
	} {
		if got := roomFor(tc.asset); got != tc.want {
			t.Fatalf("roomFor(%s) = %q, want %q", tc.asset, got, tc.want)
		}
	}
	if !strings.HasPrefix(roomFor(domain.AssetSOL), "ticker_") {
		t.Fatal("room names carry the ticker_ prefix")
	}
}
