package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/storage"
)

type Repo struct {
	db *sql.DB
}

func New(path string) (*Repo, error) {
	// ensure directory exists
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	r := &Repo{db: db}
	if err := r.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) GetDB() *sql.DB {
	return r.db
}

func (r *Repo) migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS opportunities (
  id TEXT PRIMARY KEY,
  venue_a TEXT NOT NULL,
  venue_b TEXT NOT NULL,
  token_a TEXT NOT NULL,
  token_b TEXT NOT NULL,
  input_amount REAL NOT NULL,
  intermediate_amount REAL NOT NULL,
  output_amount REAL NOT NULL,
  gross_profit_pct REAL NOT NULL,
  profit_pct REAL NOT NULL,
  leg1 TEXT NOT NULL,
  leg2 TEXT NOT NULL,
  discovered_ms INTEGER NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_discovered ON opportunities(discovered_ms);
CREATE INDEX IF NOT EXISTS idx_opps_pair ON opportunities(token_a, token_b);

CREATE TABLE IF NOT EXISTS scan_stats (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  ts_ms INTEGER NOT NULL,
  scans INTEGER NOT NULL,
  total_opportunities INTEGER NOT NULL,
  total_trades INTEGER NOT NULL,
  total_profit REAL NOT NULL,
  total_gas REAL NOT NULL,
  best_profit REAL NOT NULL,
  avg_profit REAL NOT NULL,
  last_scan_time REAL NOT NULL,
  created_at INTEGER NOT NULL
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

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO opportunities(
  id, venue_a, venue_b, token_a, token_b,
  input_amount, intermediate_amount, output_amount,
  gross_profit_pct, profit_pct, leg1, leg2, discovered_ms, created_at
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, o := range opps {
		leg1, leg2, err := storage.EncodeLegs(o)
		if err != nil {
			return fmt.Errorf("encode legs %s: %w", o.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			o.ID, o.VenueA, o.VenueB, string(o.TokenA), string(o.TokenB),
			o.InputAmount, o.IntermediateAmount, o.OutputAmount,
			o.GrossProfitPct, o.ProfitPct, leg1, leg2, o.DiscoveredAt.UnixMilli(), now,
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
       gross_profit_pct, profit_pct, leg1, leg2, discovered_ms
FROM opportunities
ORDER BY discovered_ms DESC, profit_pct DESC
LIMIT ?`, limit)
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
  total_gas, best_profit, avg_profit, last_scan_time, created_at
) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, s.Scans, s.TotalOpportunities, s.TotalTrades, s.TotalProfit,
		s.TotalGas, s.BestProfit, s.AvgProfit, s.LastScanTime, time.Now().UnixMilli())
	return err
}

// LatestScanStats 最近一次统计记录
func (r *Repo) LatestScanStats(ctx context.Context) (model.StatsSnapshot, bool, error) {
	var s model.StatsSnapshot
	err := r.db.QueryRowContext(ctx, `
SELECT scans, total_opportunities, total_trades, total_profit,
       total_gas, best_profit, avg_profit, last_scan_time
FROM scan_stats ORDER BY ts_ms DESC, id DESC LIMIT 1`).Scan(
		&s.Scans, &s.TotalOpportunities, &s.TotalTrades, &s.TotalProfit,
		&s.TotalGas, &s.BestProfit, &s.AvgProfit, &s.LastScanTime)
	if err == sql.ErrNoRows {
		return s, false, nil
	}
	if err != nil {
		return s, false, err
	}
	return s, true, nil
}

var _ port.Repository = (*Repo)(nil)
