package marketstore

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReadMissingKey(t *testing.T) {
	s := New()
	if _, ok := s.Read(domain.VenueBitbank, "BTC"); ok {
		t.Fatal("Read of never-written key should return false")
	}
}

func TestUpsertPriceCreatesEntry(t *testing.T) {
	s := New()
	s.UpsertPrice(domain.VenueBitbank, "BTC", dec("99"), dec("100"), dec("99.5"))

	d, ok := s.Read(domain.VenueBitbank, "BTC")
	if !ok {
		t.Fatal("Read should find the written key")
	}
	if !d.Bid.Equal(dec("99")) || !d.Ask.Equal(dec("100")) || !d.Last.Equal(dec("99.5")) {
		t.Fatalf("got bid=%s ask=%s last=%s", d.Bid, d.Ask, d.Last)
	}
	if !d.FundingRate.IsZero() {
		t.Fatalf("funding rate should be zero on price-only creation, got %s", d.FundingRate)
	}
}

func TestUpsertPricePreservesFunding(t *testing.T) {
	s := New()
	s.UpsertFunding(domain.VenueHyperliquid, "ETH", dec("0.0000125"))
	s.UpsertPrice(domain.VenueHyperliquid, "ETH", dec("3000"), dec("3001"), dec("3000.5"))

	d, _ := s.Read(domain.VenueHyperliquid, "ETH")
	if !d.FundingRate.Equal(dec("0.0000125")) {
		t.Fatalf("price update must not touch funding, got %s", d.FundingRate)
	}
}

func TestUpsertFundingPreservesPrices(t *testing.T) {
	s := New()
	s.UpsertPrice(domain.VenueHyperliquid, "ETH", dec("3000"), dec("3001"), dec("3000.5"))
	s.UpsertFunding(domain.VenueHyperliquid, "ETH", dec("-0.0003"))

	d, _ := s.Read(domain.VenueHyperliquid, "ETH")
	if !d.Bid.Equal(dec("3000")) || !d.Ask.Equal(dec("3001")) {
		t.Fatalf("funding update must not touch prices, got bid=%s ask=%s", d.Bid, d.Ask)
	}
	if !d.FundingRate.Equal(dec("-0.0003")) {
		t.Fatalf("got funding %s, want -0.0003", d.FundingRate)
	}
}

func TestKeysAreVenueScoped(t *testing.T) {
	s := New()
	s.UpsertPrice(domain.VenueBitbank, "BTC", dec("1"), dec("2"), dec("1.5"))
	s.UpsertPrice(domain.VenueGMO, "BTC", dec("3"), dec("4"), dec("3.5"))

	bb, _ := s.Read(domain.VenueBitbank, "BTC")
	gmo, _ := s.Read(domain.VenueGMO, "BTC")
	if !bb.Bid.Equal(dec("1")) || !gmo.Bid.Equal(dec("3")) {
		t.Fatalf("same symbol on different venues collided: bitbank=%s gmo=%s", bb.Bid, gmo.Bid)
	}
}

func TestTimestampStamped(t *testing.T) {
	s := New()
	var tick int64
	s.now = func() int64 { tick++; return tick }

	s.UpsertPrice(domain.VenueGMO, "SOL_SPOT", dec("150"), dec("151"), dec("150.5"))
	d, _ := s.Read(domain.VenueGMO, "SOL_SPOT")
	if d.Timestamp != 1 {
		t.Fatalf("timestamp = %d, want 1", d.Timestamp)
	}

	s.UpsertFunding(domain.VenueGMO, "SOL_SPOT", dec("0"))
	d, _ = s.Read(domain.VenueGMO, "SOL_SPOT")
	if d.Timestamp != 2 {
		t.Fatalf("timestamp = %d, want 2", d.Timestamp)
	}
}

func TestFXRate(t *testing.T) {
	s := New()
	if _, ok := s.FXRate(domain.FXSymbol); ok {
		t.Fatal("FXRate should be unavailable before any write")
	}

	s.UpsertPrice(domain.VenueKraken, domain.FXSymbol, dec("147.25"), dec("147.25"), dec("147.25"))
	rate, ok := s.FXRate(domain.FXSymbol)
	if !ok || !rate.Equal(dec("147.25")) {
		t.Fatalf("FXRate = %s,%v ; want 147.25,true", rate, ok)
	}
}

func TestConcurrentWriters(t *testing.T) {
	s := New()
	symbols := []string{"BTC", "ETH", "SOL", "HYPE", "BTC_SPOT", "ETH_SPOT", "SOL_SPOT", "HYPE_SPOT"}

	var wg sync.WaitGroup
	for _, venue := range domain.Venues {
		for _, sym := range symbols {
			wg.Add(1)
			go func(v domain.Venue, sym string) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					s.UpsertPrice(v, sym, dec("1"), dec("2"), dec("1.5"))
					s.UpsertFunding(v, sym, dec("0.0001"))
					s.Read(v, sym)
				}
			}(venue, sym)
		}
	}
	wg.Wait()

	for _, venue := range domain.Venues {
		for _, sym := range symbols {
			d, ok := s.Read(venue, sym)
			if !ok {
				t.Fatalf("key %s/%s missing after concurrent writes", venue, sym)
			}
			if !d.Bid.Equal(dec("1")) || !d.FundingRate.Equal(dec("0.0001")) {
				t.Fatalf("key %s/%s corrupted: bid=%s funding=%s", venue, sym, d.Bid, d.FundingRate)
			}
		}
	}
}
