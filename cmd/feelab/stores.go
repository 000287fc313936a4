package main

import (
	"context"
	"fmt"

	"fee-elasticity-lab/internal/config"
	"fee-elasticity-lab/internal/pipeline"
	"fee-elasticity-lab/internal/storage/clickhouse"
	"fee-elasticity-lab/internal/storage/migrations"
	pgstore "fee-elasticity-lab/internal/storage/postgres"
)

// createStores opens the configured backend and applies migrations.
// The returned cleanup closes every connection.
func createStores(ctx context.Context, c config.Config) (pipeline.Stores, func(), error) {
	if c.Storage.Backend == config.BackendMemory {
		stores := pipeline.MemoryStores()
		if c.Storage.ClickhouseDSN == "" {
			return stores, func() {}, nil
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, c.Storage.ClickhouseDSN)
		if err != nil {
			return pipeline.Stores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.Mirror = clickhouse.NewScenarioResultStore(conn)
		return stores, func() { conn.Close() }, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, c.Storage.PostgresDSN)
	if err != nil {
		return pipeline.Stores{}, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return pipeline.Stores{}, nil, err
	}

	stores := pipeline.Stores{
		Trades:    pgstore.NewTradeStore(pool),
		Estimates: pgstore.NewEstimateStore(pool),
		Results:   pgstore.NewScenarioResultStore(pool),
	}
	cleanup := func() { pool.Close() }

	// ClickHouse (optional analytics mirror)
	if c.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, c.Storage.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return pipeline.Stores{}, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		stores.Mirror = clickhouse.NewScenarioResultStore(conn)
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// loadRun resolves the fee menu and trade input shared by every run command.
func loadRun() (config.Config, *pipeline.Input, error) {
	c, err := pipeline.WithFeeMenu(cfg, feesPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	in, err := pipeline.LoadInput(tradesPath, c)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger.Info().
		Str("source", in.Source).
		Int("trades", len(in.Trades)).
		Int("dropped", in.Dropped).
		Msg("trade history loaded")
	return c, in, nil
}
