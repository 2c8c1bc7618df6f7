package kraken

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
)

func testCollector() (*Collector, *marketstore.Store) {
	store := marketstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCollector(Config{}, store, logger), store
}

func TestHandleTickerFrame(t *testing.T) {
	c, store := testCollector()
	frame := `[42,{"a":["147.30000",1,"1.000"],"b":["147.20000",1,"1.000"],"c":["147.25000","0.10000000"]},"ticker","USD/JPY"]`

	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	d, ok := store.Read(domain.VenueKraken, domain.FXSymbol)
	if !ok {
		t.Fatal("ticker frame should write the FX symbol")
	}
	want := decimal.RequireFromString("147.25")
	if !d.Last.Equal(want) || !d.Bid.Equal(want) || !d.Ask.Equal(want) {
		t.Fatalf("last trade should land as bid, ask and last alike: bid=%s ask=%s last=%s",
			d.Bid, d.Ask, d.Last)
	}

	rate, ok := store.FXRate(domain.FXSymbol)
	if !ok || !rate.Equal(want) {
		t.Fatalf("FXRate = %s,%v ; want %s,true", rate, ok, want)
	}
}

func TestHandleEventFramesIgnored(t *testing.T) {
	c, store := testCollector()

	frames := []string{
		`{"event":"heartbeat"}`,
		`{"event":"systemStatus","status":"online","version":"1.9.0"}`,
		`{"event":"subscriptionStatus","status":"subscribed","pair":"USD/JPY"}`,
	}
	for _, frame := range frames {
		if err := c.handleMessage([]byte(frame)); err != nil {
			t.Fatalf("event frame %q should be ignored, got %v", frame, err)
		}
	}
	if _, ok := store.Read(domain.VenueKraken, domain.FXSymbol); ok {
		t.Fatal("event frames must not write")
	}
}

func TestHandleShortOrEmptyFrames(t *testing.T) {
	c, store := testCollector()

	for _, frame := range []string{``, `  `, `[42]`} {
		if err := c.handleMessage([]byte(frame)); err != nil {
			t.Fatalf("frame %q should be a no-op, got %v", frame, err)
		}
	}
	if _, ok := store.Read(domain.VenueKraken, domain.FXSymbol); ok {
		t.Fatal("degenerate frames must not write")
	}
}

func TestHandleDataFrameWithoutClose(t *testing.T) {
	c, store := testCollector()
	frame := `[42,{"a":["147.3",1,"1.0"]},"ticker","USD/JPY"]`

	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("frame without c field should be a no-op, got %v", err)
	}
	if _, ok := store.Read(domain.VenueKraken, domain.FXSymbol); ok {
		t.Fatal("frame without last price must not write")
	}
}
