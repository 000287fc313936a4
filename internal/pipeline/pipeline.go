// Package pipeline runs a complete fee study and writes its artifacts.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"fee-elasticity-lab/internal/config"
	"fee-elasticity-lab/internal/observability"
	"fee-elasticity-lab/internal/orchestrator"
	"fee-elasticity-lab/internal/reporting"
	"fee-elasticity-lab/internal/storage"
	"fee-elasticity-lab/internal/storage/memory"
)

// Output file names.
const (
	ScenarioResultsFile = "scenario_results.csv"
	CalibrationFile     = "calibration.csv"
	StressFile          = "stress.csv"
	ReportFile          = "report.md"
)

// TopScenariosFile names the ranked export for k scenarios.
func TopScenariosFile(k int) string {
	return fmt.Sprintf("top%d_scenarios.csv", k)
}

// Stores groups the backends a run reads and writes.
type Stores struct {
	Trades    storage.TradeStore
	Estimates storage.EstimateStore
	Results   storage.ScenarioResultStore
	Mirror    storage.ScenarioResultStore // optional
}

// MemoryStores returns fresh in-memory stores.
func MemoryStores() Stores {
	return Stores{
		Trades:    memory.NewTradeStore(),
		Estimates: memory.NewEstimateStore(),
		Results:   memory.NewScenarioResultStore(),
	}
}

// Pipeline runs the orchestrator, builds the report and writes files.
type Pipeline struct {
	orch      *orchestrator.Orchestrator
	reportGen *reporting.Generator
	cfg       config.Config
	logger    zerolog.Logger
}

// New creates a pipeline over stores.
func New(stores Stores, cfg config.Config, logger *zerolog.Logger) *Pipeline {
	l := zerolog.Nop()
	if logger != nil {
		l = *logger
	}
	return &Pipeline{
		orch: orchestrator.New(orchestrator.Options{
			TradeStore:    stores.Trades,
			EstimateStore: stores.Estimates,
			ResultStore:   stores.Results,
			MirrorStore:   stores.Mirror,
			Config:        cfg,
			Logger:        &l,
		}),
		reportGen: reporting.NewGenerator(stores.Trades, stores.Estimates, stores.Results).
			WithPrior(cfg.ElasticityPrior),
		cfg:    cfg,
		logger: l,
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// Orchestrator exposes the phase runner for single-phase commands.
func (p *Pipeline) Orchestrator() *orchestrator.Orchestrator {
	return p.orch
}

// Output is a finished run plus its report and written files.
type Output struct {
	*orchestrator.RunResult
	Report *reporting.Report
	Files  []string
}

// Run executes the full study over in and writes into cfg.OutputDir:
// - scenario_results.csv
// - top<k>_scenarios.csv
// - calibration.csv
// - stress.csv
// - report.md
func (p *Pipeline) Run(ctx context.Context, in *Input) (*Output, error) {
	res, err := p.orch.Run(ctx, in.Trades)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := p.report(ctx, in, res)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordPipelineRun("report", status, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	p.logger.Info().
		Str("run_id", res.RunID).
		Str("output_dir", p.cfg.OutputDir).
		Int("files", len(out.Files)).
		Msg("artifacts written")
	return out, nil
}

func (p *Pipeline) report(ctx context.Context, in *Input, res *orchestrator.RunResult) (*Output, error) {
	report, err := p.reportGen.Generate(ctx, reporting.GenerateOptions{
		RunID:       res.RunID,
		Segments:    p.cfg.Segments,
		TopK:        p.cfg.TopK,
		DroppedRows: in.Dropped,
	})
	if err != nil {
		return nil, err
	}
	report.WithStress(res.Stress)

	artifacts := []struct {
		name    string
		content string
	}{
		{ScenarioResultsFile, reporting.RenderScenarioCSV(p.cfg.Segments, res.Results)},
		{TopScenariosFile(len(res.Top)), reporting.RenderScenarioCSV(p.cfg.Segments, res.Top)},
		{CalibrationFile, reporting.RenderCalibrationCSV(res.Calibration)},
		{StressFile, reporting.RenderStressCSV(res.Stress)},
		{ReportFile, reporting.RenderMarkdown(report)},
	}

	out := &Output{RunResult: res, Report: report}
	for _, a := range artifacts {
		path, err := p.WriteFile(a.name, a.content)
		if err != nil {
			return nil, err
		}
		out.Files = append(out.Files, path)
	}
	return out, nil
}

// WriteFile writes content under the output directory and returns its path.
func (p *Pipeline) WriteFile(name, content string) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(p.cfg.OutputDir, name)
	return path, os.WriteFile(path, []byte(content), 0644)
}
