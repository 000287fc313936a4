// Package config loads run parameters from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"fee-elasticity-lab/internal/domain"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Environment overrides, applied after .env is loaded.
const (
	EnvPostgresDSN   = "FEELAB_POSTGRES_DSN"
	EnvClickhouseDSN = "FEELAB_CLICKHOUSE_DSN"
	EnvOutputDir     = "FEELAB_OUTPUT_DIR"
	EnvBackend       = "FEELAB_STORAGE_BACKEND"
)

// StorageConfig selects where trades, estimates and results are persisted.
type StorageConfig struct {
	Backend       string // memory | postgres
	PostgresDSN   string
	ClickhouseDSN string // optional; scenario results are mirrored when set
}

// Config holds every tunable of a run. It is built once by Default or Load
// and passed by value.
type Config struct {
	Segments         []domain.Segment
	ElasticityPrior  domain.SegmentValues // true β for synthetic data; shown next to fitted β in reports
	ElasticityBounds domain.ElasticityBounds
	BootstrapN       int
	BootstrapSeed    int64
	MinSamples       int
	FallbackBeta     float64

	ScenariosPerRun int
	ScenarioSeed    int64
	StressSeed      int64
	FeeGrid         []float64
	TopK            int
	Workers         int // 0 means GOMAXPROCS

	DownsideShock  float64
	UpsideShock    float64
	LiquidityAlpha float64

	Storage   StorageConfig
	OutputDir string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Segments: domain.DefaultSegments(),
		ElasticityPrior: domain.SegmentValues{
			domain.SegmentRetailBroker: -0.10,
			domain.SegmentBank:         -0.06,
			domain.SegmentMarketMaker:  -0.03,
			domain.SegmentPropFirm:     -0.08,
		},
		ElasticityBounds: domain.ElasticityBounds{Min: -0.80, Max: -0.01},
		BootstrapN:       400,
		BootstrapSeed:    42,
		MinSamples:       30,
		FallbackBeta:     -0.05,
		ScenariosPerRun:  500,
		ScenarioSeed:     11,
		StressSeed:       99,
		FeeGrid:          []float64{2, 3, 4, 5, 6, 7, 8, 9, 10},
		TopK:             15,
		DownsideShock:    -0.06,
		UpsideShock:      0.03,
		LiquidityAlpha:   0.50,
		Storage:          StorageConfig{Backend: BackendMemory},
		OutputDir:        "data",
	}
}

// fileConfig is the on-disk shape (YAML). Unset fields keep their defaults.
type fileConfig struct {
	Segments         []string                 `yaml:"segments"`
	ElasticityPrior  map[string]float64       `yaml:"elasticity_prior"`
	ElasticityBounds *domain.ElasticityBounds `yaml:"elasticity_bounds"`
	BootstrapN       *int                     `yaml:"bootstrap_n"`
	BootstrapSeed    *int64                   `yaml:"bootstrap_seed"`
	MinSamples       *int                     `yaml:"min_samples"`
	FallbackBeta     *float64                 `yaml:"fallback_beta"`
	ScenariosPerRun  *int                     `yaml:"scenarios_per_run"`
	ScenarioSeed     *int64                   `yaml:"scenario_seed"`
	StressSeed       *int64                   `yaml:"stress_seed"`
	FeeGrid          []float64                `yaml:"fee_bps_grid"`
	TopK             *int                     `yaml:"top_k"`
	Workers          *int                     `yaml:"workers"`
	DownsideShock    *float64                 `yaml:"downside_volume_shock"`
	UpsideShock      *float64                 `yaml:"upside_volume_shock"`
	LiquidityAlpha   *float64                 `yaml:"liquidity_alpha"`
	Storage          struct {
		Backend       *string `yaml:"backend"`
		PostgresDSN   *string `yaml:"postgres_dsn"`
		ClickhouseDSN *string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`
	OutputDir *string `yaml:"output_dir"`
}

// Load reads path (optional), applies environment overrides and validates.
// An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		cfg, err = Parse(raw)
		if err != nil {
			return Config{}, err
		}
	}

	// .env is optional
	_ = godotenv.Load()
	cfg = applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults. It does not validate.
func Parse(raw []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fc.resolve(Default()), nil
}

func (fc fileConfig) resolve(cfg Config) Config {
	if len(fc.Segments) > 0 {
		cfg.Segments = make([]domain.Segment, len(fc.Segments))
		for i, s := range fc.Segments {
			cfg.Segments[i] = domain.Segment(s)
		}
	}
	if len(fc.ElasticityPrior) > 0 {
		cfg.ElasticityPrior = make(domain.SegmentValues, len(fc.ElasticityPrior))
		for k, v := range fc.ElasticityPrior {
			cfg.ElasticityPrior[domain.Segment(k)] = v
		}
	}
	if fc.ElasticityBounds != nil {
		cfg.ElasticityBounds = *fc.ElasticityBounds
	}
	if len(fc.FeeGrid) > 0 {
		cfg.FeeGrid = append([]float64(nil), fc.FeeGrid...)
	}

	setInt(&cfg.BootstrapN, fc.BootstrapN)
	setInt64(&cfg.BootstrapSeed, fc.BootstrapSeed)
	setInt(&cfg.MinSamples, fc.MinSamples)
	setFloat(&cfg.FallbackBeta, fc.FallbackBeta)
	setInt(&cfg.ScenariosPerRun, fc.ScenariosPerRun)
	setInt64(&cfg.ScenarioSeed, fc.ScenarioSeed)
	setInt64(&cfg.StressSeed, fc.StressSeed)
	setInt(&cfg.TopK, fc.TopK)
	setInt(&cfg.Workers, fc.Workers)
	setFloat(&cfg.DownsideShock, fc.DownsideShock)
	setFloat(&cfg.UpsideShock, fc.UpsideShock)
	setFloat(&cfg.LiquidityAlpha, fc.LiquidityAlpha)
	setString(&cfg.Storage.Backend, fc.Storage.Backend)
	setString(&cfg.Storage.PostgresDSN, fc.Storage.PostgresDSN)
	setString(&cfg.Storage.ClickhouseDSN, fc.Storage.ClickhouseDSN)
	setString(&cfg.OutputDir, fc.OutputDir)
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv(EnvPostgresDSN); val != "" {
		cfg.Storage.PostgresDSN = val
	}
	if val := os.Getenv(EnvClickhouseDSN); val != "" {
		cfg.Storage.ClickhouseDSN = val
	}
	if val := os.Getenv(EnvOutputDir); val != "" {
		cfg.OutputDir = val
	}
	if val := os.Getenv(EnvBackend); val != "" {
		cfg.Storage.Backend = val
	}
	return cfg
}

// Validate checks ranges and cross-field constraints.
func (c Config) Validate() error {
	if len(c.Segments) == 0 {
		return errors.New("segments: at least one segment is required")
	}
	seen := make(map[domain.Segment]struct{}, len(c.Segments))
	for _, s := range c.Segments {
		if s == "" {
			return errors.New("segments: empty segment name")
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("segments: duplicate %q", s)
		}
		seen[s] = struct{}{}
	}
	if err := c.ElasticityBounds.Validate(); err != nil {
		return fmt.Errorf("elasticity_bounds: %w", err)
	}
	if c.BootstrapN < 1 {
		return fmt.Errorf("bootstrap_n: must be >= 1, got %d", c.BootstrapN)
	}
	if c.MinSamples < 2 {
		return fmt.Errorf("min_samples: must be >= 2, got %d", c.MinSamples)
	}
	if c.ScenariosPerRun < 0 {
		return fmt.Errorf("scenarios_per_run: must be >= 0, got %d", c.ScenariosPerRun)
	}
	if len(c.FeeGrid) == 0 {
		return errors.New("fee_bps_grid: must not be empty")
	}
	for _, f := range c.FeeGrid {
		if f < 0 {
			return fmt.Errorf("fee_bps_grid: negative fee %v", f)
		}
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k: must be >= 1, got %d", c.TopK)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers: must be >= 0, got %d", c.Workers)
	}
	if c.DownsideShock <= -1 || c.UpsideShock <= -1 {
		return fmt.Errorf("volume shocks must be > -1, got %v / %v", c.DownsideShock, c.UpsideShock)
	}
	if c.LiquidityAlpha < 0 {
		return fmt.Errorf("liquidity_alpha: must be >= 0, got %v", c.LiquidityAlpha)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage: postgres backend requires postgres_dsn or %s", EnvPostgresDSN)
		}
	default:
		return fmt.Errorf("storage.backend: unknown %q", c.Storage.Backend)
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Fingerprint is a canonical rendering of every setting that changes a run's
// calibration, scenarios, ranking, stress or report. Workers, storage and
// output location are left out.
func (c Config) Fingerprint() string {
	var b strings.Builder
	b.WriteString("segments=")
	for i, seg := range c.Segments {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(string(seg))
	}
	b.WriteString("|prior=")
	for i, seg := range c.Segments {
		if i > 0 {
			b.WriteByte(',')
		}
		if v, ok := c.ElasticityPrior[seg]; ok {
			b.WriteString(fmtFloat(v))
		}
	}
	b.WriteString("|grid=")
	for i, f := range c.FeeGrid {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(fmtFloat(f))
	}
	fmt.Fprintf(&b, "|bounds=%s,%s|bootstrap=%d|bootstrap_seed=%d|min_samples=%d|fallback=%s",
		fmtFloat(c.ElasticityBounds.Min), fmtFloat(c.ElasticityBounds.Max),
		c.BootstrapN, c.BootstrapSeed, c.MinSamples, fmtFloat(c.FallbackBeta))
	fmt.Fprintf(&b, "|scenarios=%d|scenario_seed=%d|stress_seed=%d|top_k=%d",
		c.ScenariosPerRun, c.ScenarioSeed, c.StressSeed, c.TopK)
	fmt.Fprintf(&b, "|shocks=%s,%s|alpha=%s",
		fmtFloat(c.DownsideShock), fmtFloat(c.UpsideShock), fmtFloat(c.LiquidityAlpha))
	return b.String()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
