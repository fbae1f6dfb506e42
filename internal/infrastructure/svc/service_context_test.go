package svc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/storage"
	sqliterepo "dexarb/internal/infrastructure/storage/sqlite"
)

const twoStaticVenues = `
[arbitrage]
min_profit_threshold_pct = 0.5
slippage_tolerance_pct = 1.0

[tokens]
SOL = "So11111111111111111111111111111111111111112"
USDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

[[venue]]
name = "alpha"
source = "static"
enabled = true
fee_rate = 0.003

  [[venue.pools]]
  token_a = "SOL"
  token_b = "USDC"
  reserve_a = 1000000
  reserve_b = 1000000

[[venue]]
name = "beta"
source = "static"
enabled = true
fee_rate = 0.0025

  [[venue.pools]]
  token_a = "SOL"
  token_b = "USDC"
  reserve_a = 1010000
  reserve_b = 990000
`

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestServiceContextInMemory(t *testing.T) {
	cfg := loadConfig(t, twoStaticVenues)
	sc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer sc.Close()

	_, ok := sc.Repository().(*storage.MemoryRepo)
	assert.True(t, ok)
	assert.Len(t, sc.Arbitrage().Venues(), 2)

	assert.Equal(t, 0, sc.Arbitrage().RefreshAll(context.Background()))
	opps, err := sc.Arbitrage().Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "alpha", opps[0].VenueA)
	assert.InDelta(t, 2.24, opps[0].ProfitPct, 0.05)

	saved, err := sc.Repository().ListRecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, saved, 1)

	deps := sc.BuildMonitorServiceDeps()
	assert.NotNil(t, deps.Arb)
	assert.Empty(t, deps.Feeds)
	assert.Equal(t, cfg.ScanInterval(), deps.ScanInterval)
}

func TestServiceContextSQLite(t *testing.T) {
	cfg := loadConfig(t, twoStaticVenues)
	cfg.SQLite.Enabled = true
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "dexarb.db")

	sc, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer sc.Close()

	_, ok := sc.Repository().(*sqliterepo.Repo)
	assert.True(t, ok)
	assert.NotNil(t, sc.GetSQLiteRepo())
	assert.Nil(t, sc.GetRedisRepo())
}

func TestServiceContextUnknownSource(t *testing.T) {
	cfg := loadConfig(t, twoStaticVenues)
	cfg.Venues[0].Source = "uniswap"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestServiceContextNoVenues(t *testing.T) {
	cfg := loadConfig(t, twoStaticVenues)
	for i := range cfg.Venues {
		cfg.Venues[i].Enabled = false
	}

	_, err := New(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoVenuesEnabled)
}
