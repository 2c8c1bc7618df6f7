// Package domain defines the core market-data types shared by the feed
// collectors, the market store, the arbitrage engine, and the coordinator.
package domain

// Venue identifies a trading venue. It is part of every store key and is
// the lookup key for taker fees.
type Venue string

const (
	VenueHyperliquid Venue = "hyperliquid"
	VenueBitbank     Venue = "bitbank"
	VenueGMO         Venue = "gmo"
	VenueKraken      Venue = "kraken"
)

// Venues lists all venues in canonical order.
var Venues = []Venue{VenueHyperliquid, VenueBitbank, VenueGMO, VenueKraken}

// Asset is a tradable underlying. Its string form is the canonical symbol
// used to build venue subscription identifiers and store keys.
type Asset string

const (
	AssetBTC  Asset = "BTC"
	AssetETH  Asset = "ETH"
	AssetSOL  Asset = "SOL"
	AssetHYPE Asset = "HYPE"
)

// DefaultAssets is the asset set watched when the config does not override it.
var DefaultAssets = []Asset{AssetBTC, AssetETH, AssetSOL, AssetHYPE}

// Symbol returns the canonical symbol string for the asset.
func (a Asset) Symbol() string { return string(a) }

// InstrumentType distinguishes contracts that carry funding (perpetuals)
// from those that do not (spot).
type InstrumentType string

const (
	InstrumentSpot InstrumentType = "spot"
	InstrumentPerp InstrumentType = "perp"
)

// Currency is the quote currency of a leg. JPY is the comparison currency;
// USD-denominated legs are converted through the FX rate before comparison.
type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
)

// SpotSuffix marks the spot variant of an asset in store keys for venues
// that expose both a spot and a derivative market under overlapping names.
const SpotSuffix = "_SPOT"

// FXSymbol is the store key under which the USD/JPY rate is published.
const FXSymbol = "USD_JPY"

// SpotKey returns the store key for the spot leg of an asset.
func SpotKey(a Asset) string { return a.Symbol() + SpotSuffix }
