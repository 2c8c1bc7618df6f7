package hyperliquid

import (
	"context"
	"testing"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

func TestResolveSpotIDsFromTable(t *testing.T) {
	ids := ResolveSpotIDs(context.Background(),
		[]domain.Asset{domain.AssetBTC, domain.AssetETH},
		map[string]int{"BTC": 7, "ETH": 9}, "", discard())

	if id, ok := ids.ForAsset(domain.AssetBTC); !ok || id != "@7" {
		t.Fatalf("ForAsset(BTC) = %s,%v ; want @7,true", id, ok)
	}
	if a, ok := ids.AssetForID("@9"); !ok || a != domain.AssetETH {
		t.Fatalf("AssetForID(@9) = %s,%v ; want ETH,true", a, ok)
	}
}

func TestResolveSpotIDsBuiltinFallback(t *testing.T) {
	// No table, no info endpoint: the compiled-in indexes apply.
	ids := ResolveSpotIDs(context.Background(),
		[]domain.Asset{domain.AssetBTC, domain.AssetHYPE}, nil, "", discard())

	if id, ok := ids.ForAsset(domain.AssetBTC); !ok || id != "@142" {
		t.Fatalf("ForAsset(BTC) = %s,%v ; want @142,true", id, ok)
	}
	if id, ok := ids.ForAsset(domain.AssetHYPE); !ok || id != "@107" {
		t.Fatalf("ForAsset(HYPE) = %s,%v ; want @107,true", id, ok)
	}
}

func TestResolveSpotIDsUnknownAsset(t *testing.T) {
	ids := ResolveSpotIDs(context.Background(),
		[]domain.Asset{domain.Asset("DOGE")}, nil, "", discard())

	if _, ok := ids.ForAsset(domain.Asset("DOGE")); ok {
		t.Fatal("asset with no mapping anywhere should have no spot id")
	}
}

func TestSpotMetaPairIndex(t *testing.T) {
	meta := &spotMeta{}
	meta.Tokens = []struct {
		Name  string `json:"name"`
		Index int    `json:"index"`
	}{
		{Name: "USDC", Index: 0},
		{Name: "UBTC", Index: 3},
		{Name: "HYPE", Index: 5},
		{Name: "FOO", Index: 9},
	}
	meta.Universe = []struct {
		Name   string `json:"name"`
		Tokens []int  `json:"tokens"`
		Index  int    `json:"index"`
	}{
		{Name: "@142", Tokens: []int{3, 0}, Index: 142},
		{Name: "@107", Tokens: []int{5, 0}, Index: 107},
		{Name: "@200", Tokens: []int{9, 5}, Index: 200}, // not USDC-quoted
	}

	if idx, ok := meta.pairIndex(domain.AssetBTC); !ok || idx != 142 {
		t.Fatalf("pairIndex(BTC) = %d,%v ; want 142,true (U-prefixed base)", idx, ok)
	}
	if idx, ok := meta.pairIndex(domain.AssetHYPE); !ok || idx != 107 {
		t.Fatalf("pairIndex(HYPE) = %d,%v ; want 107,true", idx, ok)
	}
	if _, ok := meta.pairIndex(domain.Asset("FOO")); ok {
		t.Fatal("non-USDC-quoted pair must not resolve")
	}
}
