// Package elasticity estimates per-segment fee elasticity from trade history.
//
// The model is ln(volume) = a + β·fee_bps, fitted per segment by OLS with an
// intercept. β is clipped to a plausibility interval and its uncertainty is
// measured by a seeded nonparametric bootstrap.
package elasticity

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"fee-elasticity-lab/internal/domain"
	"fee-elasticity-lab/internal/observability"
)

// Calibration defaults.
const (
	DefaultMinSamples     = 30
	DefaultFallbackBeta   = -0.05
	DefaultBootstrapCount = 400
	DefaultSeed           = 42
)

// ErrInvalidInput is returned for unusable calibration parameters.
var ErrInvalidInput = errors.New("invalid calibration input")

// Calibrator fits elasticities. The zero value is not usable; use NewCalibrator.
type Calibrator struct {
	minSamples   int
	fallbackBeta float64
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithMinSamples sets the sample size below which the fallback β is used.
func WithMinSamples(n int) Option {
	return func(c *Calibrator) {
		c.minSamples = n
	}
}

// WithFallbackBeta sets the pre-clip β used for sparse segments.
func WithFallbackBeta(beta float64) Option {
	return func(c *Calibrator) {
		c.fallbackBeta = beta
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Calibrator) {
		c.logger = l
	}
}

// WithMetrics records calibrations on m instead of the default registry.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Calibrator) {
		c.metrics = m
	}
}

// NewCalibrator creates a Calibrator with defaults overridden by opts.
func NewCalibrator(opts ...Option) *Calibrator {
	c := &Calibrator{
		minSamples:   DefaultMinSamples,
		fallbackBeta: DefaultFallbackBeta,
		logger:       zerolog.Nop(),
		metrics:      observability.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calibrate fits one estimate per segment using default calibrator settings.
func Calibrate(
	trades []domain.TradeRecord,
	segments []domain.Segment,
	bounds domain.ElasticityBounds,
	bootstrapCount int,
	seed int64,
) (*domain.Calibration, error) {
	return NewCalibrator().Calibrate(trades, segments, bounds, bootstrapCount, seed)
}

// Calibrate fits one estimate per segment, in the order given.
//
// A single random generator seeded with seed drives every bootstrap draw and
// is advanced across segments in declared order, so the result depends on
// both the seed and the segment order. Segments with fewer than the minimum
// sample size get the clipped fallback β and NaN uncertainty fields; they do
// not consume draws.
func (c *Calibrator) Calibrate(
	trades []domain.TradeRecord,
	segments []domain.Segment,
	bounds domain.ElasticityBounds,
	bootstrapCount int,
	seed int64,
) (*domain.Calibration, error) {
	if err := bounds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if bootstrapCount < 1 {
		return nil, fmt.Errorf("%w: bootstrap count %d must be >= 1", ErrInvalidInput, bootstrapCount)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrInvalidInput)
	}
	seen := make(map[domain.Segment]struct{}, len(segments))
	for _, s := range segments {
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: duplicate segment %q", ErrInvalidInput, s)
		}
		seen[s] = struct{}{}
	}
	for i, t := range trades {
		if _, ok := seen[t.Segment]; !ok {
			continue
		}
		if err := validateRow(t); err != nil {
			return nil, fmt.Errorf("%w: trade %d (%s %s): %w",
				ErrInvalidInput, i, t.Segment, t.Date.Format("2006-01-02"), err)
		}
	}

	rng := rand.New(rand.NewSource(seed))

	cal := &domain.Calibration{
		Bounds:         bounds,
		BootstrapCount: bootstrapCount,
		Seed:           seed,
		Estimates:      make([]domain.ElasticityEstimate, 0, len(segments)),
	}

	for _, seg := range segments {
		rows := domain.FilterBySegment(trades, seg)
		est := c.estimateSegment(seg, rows, bounds, bootstrapCount, rng)
		cal.Estimates = append(cal.Estimates, est)

		if est.Fallback {
			c.logger.Warn().
				Str("segment", string(seg)).
				Int("samples", est.SampleSize).
				Int("min_samples", c.minSamples).
				Float64("beta", est.Beta).
				Msg("sparse segment, using fallback elasticity")
			c.metrics.RecordSegmentCalibrated(string(seg), est.Beta, est.StdErr, true, 0)
			continue
		}

		c.logger.Info().
			Str("segment", string(seg)).
			Int("samples", est.SampleSize).
			Float64("beta", est.Beta).
			Float64("stderr", est.StdErr).
			Float64("ci_low", est.CILow).
			Float64("ci_high", est.CIHigh).
			Msg("segment calibrated")
		c.metrics.RecordSegmentCalibrated(string(seg), est.Beta, est.StdErr, false, bootstrapCount)
	}

	return cal, nil
}

// validateRow rejects rows whose log volume or fee would not be finite.
func validateRow(t domain.TradeRecord) error {
	if math.IsNaN(t.FeeBps) || math.IsInf(t.FeeBps, 0) || t.FeeBps < 0 {
		return fmt.Errorf("fee_bps %v must be finite and >= 0", t.FeeBps)
	}
	if math.IsNaN(t.Volume) || math.IsInf(t.Volume, 0) || t.Volume <= 0 {
		return fmt.Errorf("volume %v must be finite and > 0", t.Volume)
	}
	return nil
}

func (c *Calibrator) estimateSegment(
	seg domain.Segment,
	rows []domain.TradeRecord,
	bounds domain.ElasticityBounds,
	bootstrapCount int,
	rng *rand.Rand,
) domain.ElasticityEstimate {
	n := len(rows)
	if n < c.minSamples {
		return domain.ElasticityEstimate{
			Segment:    seg,
			Beta:       bounds.Clip(c.fallbackBeta),
			StdErr:     math.NaN(),
			CILow:      math.NaN(),
			CIHigh:     math.NaN(),
			SampleSize: n,
			Fallback:   true,
		}
	}

	fees := make([]float64, n)
	logVol := make([]float64, n)
	for i, r := range rows {
		fees[i] = r.FeeBps
		logVol[i] = math.Log(r.Volume)
	}

	beta := bounds.Clip(fitSlope(fees, logVol))

	draws := make([]float64, bootstrapCount)
	sx := make([]float64, n)
	sy := make([]float64, n)
	for b := 0; b < bootstrapCount; b++ {
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sx[i] = fees[j]
			sy[i] = logVol[j]
		}
		draws[b] = bounds.Clip(fitSlope(sx, sy))
	}

	sorted := sortedCopy(draws)
	stdErr := stddev(draws)
	if bootstrapCount < 2 {
		stdErr = math.NaN()
	}

	return domain.ElasticityEstimate{
		Segment:    seg,
		Beta:       beta,
		StdErr:     stdErr,
		CILow:      percentile(sorted, 0.025),
		CIHigh:     percentile(sorted, 0.975),
		SampleSize: n,
	}
}
