// Package marketstore implements the shared concurrent price/funding store.
// Writes are scoped to a single key and reads return snapshot copies, so
// many feed goroutines and one evaluation goroutine share it without
// coarse locking.
package marketstore

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

// shardCount fixes the number of lock stripes. A burst of writes on one
// venue/symbol must never stall updates to unrelated keys.
const shardCount = 32

type shard struct {
	mu   sync.RWMutex
	data map[domain.SymbolKey]domain.SymbolData
}

// Store maps (venue, symbol) to the latest SymbolData. Entries are created
// lazily on first write and never deleted. The zero value is not usable;
// call New.
type Store struct {
	shards [shardCount]shard
	now    func() int64
}

// New creates an empty Store.
func New() *Store {
	s := &Store{now: func() int64 { return time.Now().Unix() }}
	for i := range s.shards {
		s.shards[i].data = make(map[domain.SymbolKey]domain.SymbolData)
	}
	return s
}

func (s *Store) shardFor(key domain.SymbolKey) *shard {
	h := fnv.New32a()
	h.Write([]byte(key.Venue))
	h.Write([]byte{0})
	h.Write([]byte(key.Symbol))
	return &s.shards[h.Sum32()%shardCount]
}

// UpsertPrice creates or updates the bid/ask/last of a key and stamps the
// timestamp. The funding rate is untouched on update and zero on creation.
func (s *Store) UpsertPrice(venue domain.Venue, symbol string, bid, ask, last decimal.Decimal) {
	key := domain.SymbolKey{Venue: venue, Symbol: symbol}
	sh := s.shardFor(key)

	sh.mu.Lock()
	d := sh.data[key]
	d.Bid = bid
	d.Ask = ask
	d.Last = last
	d.Timestamp = s.now()
	sh.data[key] = d
	sh.mu.Unlock()
}

// UpsertFunding creates or updates the funding rate of a key and stamps the
// timestamp. Price fields are untouched on update and zero on creation.
func (s *Store) UpsertFunding(venue domain.Venue, symbol string, rate decimal.Decimal) {
	key := domain.SymbolKey{Venue: venue, Symbol: symbol}
	sh := s.shardFor(key)

	sh.mu.Lock()
	d := sh.data[key]
	d.FundingRate = rate
	d.Timestamp = s.now()
	sh.data[key] = d
	sh.mu.Unlock()
}

// Read returns a snapshot copy of the data for a key, or false if the key
// has never been written. It never blocks writers of other keys.
func (s *Store) Read(venue domain.Venue, symbol string) (domain.SymbolData, bool) {
	key := domain.SymbolKey{Venue: venue, Symbol: symbol}
	sh := s.shardFor(key)

	sh.mu.RLock()
	d, ok := sh.data[key]
	sh.mu.RUnlock()
	return d, ok
}

// FXRate returns the last price the FX-reporting venue published for the
// given pair symbol, or false if no rate has arrived yet.
func (s *Store) FXRate(symbol string) (decimal.Decimal, bool) {
	d, ok := s.Read(domain.VenueKraken, symbol)
	if !ok {
		return decimal.Decimal{}, false
	}
	return d.Last, true
}
