package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dexarb/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func opp(id string, profit float64, at time.Time) model.Opportunity {
	return model.Opportunity{
		ID:                 id,
		VenueA:             "raydium",
		VenueB:             "orca",
		TokenA:             "SOL",
		TokenB:             "USDC",
		InputAmount:        1,
		IntermediateAmount: 150,
		OutputAmount:       1 + profit/100,
		GrossProfitPct:     profit + 0.5,
		ProfitPct:          profit,
		Leg1:               model.Quote{InputToken: "SOL", OutputToken: "USDC", InputAmount: 1, OutputAmount: 150, PriceImpactPct: 0.001, Fee: 0.0025},
		Leg2:               model.Quote{InputToken: "USDC", OutputToken: "SOL", InputAmount: 150, OutputAmount: 1 + profit/100, Fee: 0.45},
		DiscoveredAt:       at,
	}
}

func TestSQLiteRepoSaveAndListOpportunities(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	batch := []model.Opportunity{opp("a", 1.2, base), opp("b", 2.5, base.Add(time.Second))}
	if err := repo.SaveOpportunities(ctx, batch); err != nil {
		t.Fatalf("SaveOpportunities failed: %v", err)
	}
	// 重复 id 忽略
	if err := repo.SaveOpportunities(ctx, batch[:1]); err != nil {
		t.Fatalf("SaveOpportunities (dup) failed: %v", err)
	}

	got, err := repo.ListRecentOpportunities(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentOpportunities failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 opportunities, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Leg1 != batch[1].Leg1 || got[0].Leg2 != batch[1].Leg2 {
		t.Errorf("legs mismatch: %+v", got[0])
	}
	if !got[0].DiscoveredAt.Equal(batch[1].DiscoveredAt) {
		t.Errorf("discovered_at mismatch: %v", got[0].DiscoveredAt)
	}
	if got[1].TokenA != "SOL" || got[1].ProfitPct != 1.2 {
		t.Errorf("unexpected row: %+v", got[1])
	}

	limited, err := repo.ListRecentOpportunities(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecentOpportunities failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 opportunity, got %d", len(limited))
	}
}

func TestSQLiteRepoScanStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.LatestScanStats(ctx); err != nil || ok {
		t.Fatalf("expected no stats, got ok=%v err=%v", ok, err)
	}

	first := model.StatsSnapshot{Scans: 10, TotalOpportunities: 2, AvgProfit: 0, LastScanTime: 0.2}
	second := model.StatsSnapshot{Scans: 20, TotalOpportunities: 3, TotalTrades: 1, TotalProfit: 1.5, BestProfit: 1.5, AvgProfit: 0.5, LastScanTime: 0.1}
	if err := repo.InsertScanStats(ctx, 1000, first); err != nil {
		t.Fatalf("InsertScanStats failed: %v", err)
	}
	if err := repo.InsertScanStats(ctx, 2000, second); err != nil {
		t.Fatalf("InsertScanStats failed: %v", err)
	}

	latest, ok, err := repo.LatestScanStats(ctx)
	if err != nil || !ok {
		t.Fatalf("LatestScanStats failed: ok=%v err=%v", ok, err)
	}
	if latest != second {
		t.Errorf("expected %+v, got %+v", second, latest)
	}
}

func TestSQLiteRepoEmptyBatch(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.SaveOpportunities(context.Background(), nil); err != nil {
		t.Fatalf("SaveOpportunities(nil) failed: %v", err)
	}
}
