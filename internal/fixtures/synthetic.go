// Package fixtures generates synthetic trade history with known elasticities.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"fee-elasticity-lab/internal/dataload"
	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/storage"
)

// ErrInvalidSynthetic is returned for an unusable SyntheticConfig.
var ErrInvalidSynthetic = errors.New("invalid synthetic config")

// SyntheticConfig describes the data-generating process:
// volume = BaseVolume · exp(TrueBeta·(fee − BaseFee)) · exp(N(0, NoiseSigma)),
// with fee = BaseFee + U{−FeeJitter..FeeJitter} and notional = volume · U(0.9, 1.3).
type SyntheticConfig struct {
	Segments   []domain.Segment
	BaseFee    domain.SegmentValues
	BaseVolume domain.SegmentValues
	TrueBeta   domain.SegmentValues
	Start      time.Time
	Days       int
	FeeJitter  int
	NoiseSigma float64
	Seed       int64
}

// DefaultSyntheticConfig returns 120 days of history for the default segments.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Segments: domain.DefaultSegments(),
		BaseFee: domain.SegmentValues{
			domain.SegmentRetailBroker: 7,
			domain.SegmentBank:         6,
			domain.SegmentMarketMaker:  4,
			domain.SegmentPropFirm:     6,
		},
		BaseVolume: domain.SegmentValues{
			domain.SegmentRetailBroker: 1200,
			domain.SegmentBank:         1800,
			domain.SegmentMarketMaker:  2600,
			domain.SegmentPropFirm:     900,
		},
		TrueBeta: domain.SegmentValues{
			domain.SegmentRetailBroker: -0.10,
			domain.SegmentBank:         -0.06,
			domain.SegmentMarketMaker:  -0.03,
			domain.SegmentPropFirm:     -0.08,
		},
		Start:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Days:       120,
		FeeJitter:  2,
		NoiseSigma: 0.12,
		Seed:       123,
	}
}

// GenerateTrades produces one trade per segment per day, days ASC and
// segments in config order. Volume and notional are rounded to 4 decimals.
func GenerateTrades(cfg SyntheticConfig) ([]domain.TradeRecord, error) {
	if len(cfg.Segments) == 0 || cfg.Days < 0 || cfg.FeeJitter < 0 || cfg.NoiseSigma < 0 {
		return nil, fmt.Errorf("%w: segments=%d days=%d jitter=%d sigma=%v",
			ErrInvalidSynthetic, len(cfg.Segments), cfg.Days, cfg.FeeJitter, cfg.NoiseSigma)
	}
	for _, m := range []domain.SegmentValues{cfg.BaseFee, cfg.BaseVolume, cfg.TrueBeta} {
		if err := m.RequireKeys(cfg.Segments...); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSynthetic, err)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	out := make([]domain.TradeRecord, 0, cfg.Days*len(cfg.Segments))

	for d := 0; d < cfg.Days; d++ {
		date := cfg.Start.AddDate(0, 0, d)
		for _, seg := range cfg.Segments {
			baseFee := cfg.BaseFee[seg]
			fee := max(0, baseFee+float64(rng.Intn(2*cfg.FeeJitter+1)-cfg.FeeJitter))
			noise := math.Exp(rng.NormFloat64() * cfg.NoiseSigma)
			volume := cfg.BaseVolume[seg] * math.Exp(cfg.TrueBeta[seg]*(fee-baseFee)) * noise
			notional := volume * (0.9 + 0.4*rng.Float64())

			out = append(out, domain.TradeRecord{
				Segment:  seg,
				Date:     date,
				FeeBps:   fee,
				Volume:   round4(volume),
				Notional: round4(notional),
			})
		}
	}
	return out, nil
}

// FeeMenu offers every grid fee to every segment.
func FeeMenu(segments []domain.Segment, grid []float64) dataload.FeeMenu {
	menu := make(dataload.FeeMenu, len(segments))
	for _, seg := range segments {
		menu[seg] = append([]float64(nil), grid...)
	}
	return menu
}

// LoadTrades persists generated trades into store.
func LoadTrades(ctx context.Context, store storage.TradeStore, trades []domain.TradeRecord) error {
	ptrs := make([]*domain.TradeRecord, len(trades))
	for i := range trades {
		ptrs[i] = &trades[i]
	}
	return store.InsertBulk(ctx, ptrs)
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
