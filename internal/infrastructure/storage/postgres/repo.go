package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(ctx context.Context, dsn string) (*Repo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	r := &Repo{db: db}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  venue_a TEXT NOT NULL,
  venue_b TEXT NOT NULL,
  token_a TEXT NOT NULL,
  token_b TEXT NOT NULL,
  input_amount DOUBLE PRECISION NOT NULL,
  intermediate_amount DOUBLE PRECISION NOT NULL,
  output_amount DOUBLE PRECISION NOT NULL,
  gross_profit_pct DOUBLE PRECISION NOT NULL,
  profit_pct DOUBLE PRECISION NOT NULL,
  leg1 JSONB NOT NULL,
  leg2 JSONB NOT NULL,
  discovered_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_discovered ON opportunities(discovered_ms);

CREATE TABLE IF NOT EXISTS scan_stats (
  id BIGSERIAL PRIMARY KEY,
  ts_ms BIGINT NOT NULL,
  scans BIGINT NOT NULL,
  total_opportunities BIGINT NOT NULL,
  total_trades BIGINT NOT NULL,
  total_profit DOUBLE PRECISION NOT NULL,
  total_gas DOUBLE PRECISION NOT NULL,
  best_profit DOUBLE PRECISION NOT NULL,
  avg_profit DOUBLE PRECISION NOT NULL,
  last_scan_time DOUBLE PRECISION NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_stats_ts ON scan_stats(ts_ms);
`)
	return err
}

func (r *Repo) SaveOpportunities(ctx context.Context, opps []model.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, o := range opps {
		leg1, leg2, err := storage.EncodeLegs(o)
		if err != nil {
			return fmt.Errorf("encode legs %s: %w", o.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO opportunities(
  id, venue_a, venue_b, token_a, token_b,
  input_amount, intermediate_amount, output_amount,
  gross_profit_pct, profit_pct, leg1, leg2, discovered_ms
) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO NOTHING`,
			o.ID, o.VenueA, o.VenueB, string(o.TokenA), string(o.TokenB),
			o.InputAmount, o.IntermediateAmount, o.OutputAmount,
			o.GrossProfitPct, o.ProfitPct, leg1, leg2, o.DiscoveredAt.UnixMilli(),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *Repo) ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, venue_a, venue_b, token_a, token_b,
       input_amount, intermediate_amount, output_amount,
       gross_profit_pct, profit_pct, leg1::text, leg2::text, discovered_ms
FROM opportunities
ORDER BY discovered_ms DESC, profit_pct DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Opportunity
	for rows.Next() {
		var (
			o            model.Opportunity
			tokenA       string
			tokenB       string
			leg1, leg2   string
			discoveredMs int64
		)
		if err := rows.Scan(
			&o.ID, &o.VenueA, &o.VenueB, &tokenA, &tokenB,
			&o.InputAmount, &o.IntermediateAmount, &o.OutputAmount,
			&o.GrossProfitPct, &o.ProfitPct, &leg1, &leg2, &discoveredMs,
		); err != nil {
			return nil, err
		}
		o.TokenA, o.TokenB = model.TokenID(tokenA), model.TokenID(tokenB)
		o.DiscoveredAt = time.UnixMilli(discoveredMs)
		if err := storage.DecodeLegs(&o, leg1, leg2); err != nil {
			return nil, fmt.Errorf("decode legs %s: %w", o.ID, err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) InsertScanStats(ctx context.Context, ts int64, s model.StatsSnapshot) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO scan_stats(
  ts_ms, scans, total_opportunities, total_trades, total_profit,
  total_gas, best_profit, avg_profit, last_scan_time
) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ts, s.Scans, s.TotalOpportunities, s.TotalTrades, s.TotalProfit,
		s.TotalGas, s.BestProfit, s.AvgProfit, s.LastScanTime)
	return err
}

var _ port.Repository = (*Repo)(nil)
