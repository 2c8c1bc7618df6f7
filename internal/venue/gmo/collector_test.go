package gmo

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
	"github.com/harunobu-k/fundingarb/internal/marketstore"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCollector() (*Collector, *marketstore.Store) {
	store := marketstore.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewCollector(Config{Assets: []domain.Asset{domain.AssetBTC}}, store, logger)
	return c, store
}

func TestHandleFXTicker(t *testing.T) {
	c, store := testCollector()
	frame := `{"channel":"ticker","symbol":"USD_JPY","bid":"147.1","ask":"147.3","timestamp":"2026-09-01T00:00:00.000Z"}`

	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	d, ok := store.Read(domain.VenueGMO, "USD_JPY")
	if !ok {
		t.Fatal("FX ticker should keep its exact symbol")
	}
	if !d.Bid.Equal(dec("147.1")) || !d.Ask.Equal(dec("147.3")) {
		t.Fatalf("got bid=%s ask=%s", d.Bid, d.Ask)
	}
	if !d.Last.Equal(dec("147.2")) {
		t.Fatalf("last should be the mid, got %s", d.Last)
	}
}

func TestHandleLeveragedTicker(t *testing.T) {
	c, store := testCollector()
	frame := `{"channel":"ticker","symbol":"BTC_JPY","bid":"14500000","ask":"14510000"}`

	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	d, ok := store.Read(domain.VenueGMO, "BTC")
	if !ok {
		t.Fatal("_JPY-suffixed ticker should be stored under the bare symbol")
	}
	if !d.Bid.Equal(dec("14500000")) {
		t.Fatalf("got bid=%s", d.Bid)
	}
	if _, ok := store.Read(domain.VenueGMO, "BTC_JPY"); ok {
		t.Fatal("raw _JPY key must not reach the store")
	}
}

func TestHandleSpotTicker(t *testing.T) {
	c, store := testCollector()
	frame := `{"channel":"ticker","symbol":"BTC","bid":"14490000","ask":"14500000"}`

	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	d, ok := store.Read(domain.VenueGMO, "BTC_SPOT")
	if !ok {
		t.Fatal("bare-symbol ticker should be stored under the _SPOT key")
	}
	if !d.Ask.Equal(dec("14500000")) {
		t.Fatalf("got ask=%s", d.Ask)
	}
}

func TestHandleNonTickerIgnored(t *testing.T) {
	c, store := testCollector()

	frames := []string{
		`{"channel":"trades","symbol":"BTC","price":"1"}`,
		`{"channel":"ticker","symbol":""}`,
		`{"error":"subscription failed"}`,
	}
	for _, frame := range frames {
		if err := c.handleMessage([]byte(frame)); err != nil {
			t.Fatalf("frame %q should be ignored, got %v", frame, err)
		}
	}
	for _, key := range []string{"BTC", "BTC_SPOT", "USD_JPY"} {
		if _, ok := store.Read(domain.VenueGMO, key); ok {
			t.Fatalf("ignored frames must not write, found %s", key)
		}
	}
}

func TestHandleBadDecimal(t *testing.T) {
	c, store := testCollector()
	frame := `{"channel":"ticker","symbol":"BTC","bid":"x","ask":"1"}`

	if err := c.handleMessage([]byte(frame)); err == nil {
		t.Fatal("unparsable bid should error")
	}
	if _, ok := store.Read(domain.VenueGMO, "BTC_SPOT"); ok {
		t.Fatal("malformed ticker must not write")
	}
}
