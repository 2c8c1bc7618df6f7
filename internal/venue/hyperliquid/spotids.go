package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunobu-k/fundingarb/internal/domain"
)

// defaultSpotIndexes are the compiled-in spot market indexes used when
// neither the configured table nor the info endpoint can resolve an asset.
var defaultSpotIndexes = map[domain.Asset]int{
	domain.AssetBTC:  142,
	domain.AssetETH:  151,
	domain.AssetSOL:  156,
	domain.AssetHYPE: 107,
}

// SpotIDs is the immutable name<->id mapping for spot markets, built once
// at start. The paired forward and reverse maps avoid a value scan on
// every incoming spot frame.
type SpotIDs struct {
	forward map[domain.Asset]string
	reverse map[string]domain.Asset
}

// ForAsset returns the "@N" wire id for an asset's spot market.
func (s *SpotIDs) ForAsset(a domain.Asset) (string, bool) {
	id, ok := s.forward[a]
	return id, ok
}

// AssetForID reverse-maps an "@N" wire id to its asset.
func (s *SpotIDs) AssetForID(id string) (domain.Asset, bool) {
	a, ok := s.reverse[id]
	return a, ok
}

func newSpotIDs(indexes map[domain.Asset]int) *SpotIDs {
	s := &SpotIDs{
		forward: make(map[domain.Asset]string, len(indexes)),
		reverse: make(map[string]domain.Asset, len(indexes)),
	}
	for a, idx := range indexes {
		id := fmt.Sprintf("@%d", idx)
		s.forward[a] = id
		s.reverse[id] = a
	}
	return s
}

// ResolveSpotIDs builds the spot-id mapping for the given assets. The
// configured table wins; assets it misses are resolved through a one-shot
// spotMeta call against infoURL; anything still unresolved falls back to
// the compiled-in defaults. Every failure along the way is non-fatal: an
// asset that resolves nowhere simply has no spot leg.
func ResolveSpotIDs(ctx context.Context, assets []domain.Asset, table map[string]int, infoURL string, logger *slog.Logger) *SpotIDs {
	resolved := make(map[domain.Asset]int, len(assets))
	for _, a := range assets {
		if idx, ok := table[a.Symbol()]; ok {
			resolved[a] = idx
		}
	}

	var missing []domain.Asset
	for _, a := range assets {
		if _, ok := resolved[a]; !ok {
			missing = append(missing, a)
		}
	}

	if len(missing) > 0 && infoURL != "" {
		meta, err := fetchSpotMeta(ctx, infoURL)
		if err != nil {
			logger.Warn("spot meta fetch failed, falling back to defaults",
				slog.String("error", err.Error()))
		} else {
			still := missing[:0]
			for _, a := range missing {
				if idx, ok := meta.pairIndex(a); ok {
					resolved[a] = idx
					logger.Info("resolved spot id from spotMeta",
						slog.String("asset", a.Symbol()), slog.Int("index", idx))
				} else {
					still = append(still, a)
				}
			}
			missing = still
		}
	}

	for _, a := range missing {
		idx, ok := defaultSpotIndexes[a]
		if !ok {
			logger.Warn("no spot id for asset, spot leg unavailable",
				slog.String("asset", a.Symbol()))
			continue
		}
		resolved[a] = idx
		logger.Info("using built-in spot id",
			slog.String("asset", a.Symbol()), slog.Int("index", idx))
	}

	return newSpotIDs(resolved)
}

type spotMeta struct {
	Tokens []struct {
		Name  string `json:"name"`
		Index int    `json:"index"`
	} `json:"tokens"`
	Universe []struct {
		Name   string `json:"name"`
		Tokens []int  `json:"tokens"`
		Index  int    `json:"index"`
	} `json:"universe"`
}

// pairIndex finds the USDC-quoted spot pair whose base token matches the
// asset. Hyperliquid lists wrapped majors under a "U" prefix (UBTC, UETH),
// so both spellings are accepted.
func (m *spotMeta) pairIndex(a domain.Asset) (int, bool) {
	names := make(map[int]string, len(m.Tokens))
	usdc := -1
	for _, t := range m.Tokens {
		names[t.Index] = t.Name
		if t.Name == "USDC" {
			usdc = t.Index
		}
	}
	if usdc < 0 {
		return 0, false
	}

	for _, pair := range m.Universe {
		if len(pair.Tokens) != 2 || pair.Tokens[1] != usdc {
			continue
		}
		base := names[pair.Tokens[0]]
		if base == a.Symbol() || base == "U"+a.Symbol() {
			return pair.Index, true
		}
	}
	return 0, false
}

func fetchSpotMeta(ctx context.Context, infoURL string) (*spotMeta, error) {
	body, err := json.Marshal(map[string]string{"type": "spotMeta"})
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, infoURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: spot meta request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: spot meta: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hyperliquid: spot meta: status %d", resp.StatusCode)
	}

	var meta spotMeta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("hyperliquid: spot meta decode: %w", err)
	}
	return &meta, nil
}
