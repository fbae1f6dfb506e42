package storage

import (
	"context"
	"testing"
	"time"

	"dexarb/internal/domain/model"
)

func TestMemoryRepoKeepsMostRecent(t *testing.T) {
	repo := NewMemoryRepo(2)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for i := 0; i < 3; i++ {
		o := model.Opportunity{ID: string(rune('a' + i)), DiscoveredAt: base.Add(time.Duration(i) * time.Second)}
		if err := repo.SaveOpportunities(ctx, []model.Opportunity{o}); err != nil {
			t.Fatalf("SaveOpportunities failed: %v", err)
		}
	}

	got, err := repo.ListRecentOpportunities(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecentOpportunities failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected result: %+v", got)
	}

	if err := repo.InsertScanStats(ctx, base.UnixMilli(), model.StatsSnapshot{Scans: 1}); err != nil {
		t.Fatalf("InsertScanStats failed: %v", err)
	}
	if h := repo.StatsHistory(); len(h) != 1 || h[0].Scans != 1 {
		t.Fatalf("unexpected stats history: %+v", h)
	}
}

func TestLegsRoundTrip(t *testing.T) {
	o := model.Opportunity{
		Leg1: model.Quote{InputToken: "SOL", OutputToken: "USDC", InputAmount: 1, OutputAmount: 150, PriceImpactPct: 0.01, Fee: 0.003},
		Leg2: model.Quote{InputToken: "USDC", OutputToken: "SOL", InputAmount: 150, OutputAmount: 1.01},
	}
	l1, l2, err := EncodeLegs(o)
	if err != nil {
		t.Fatalf("EncodeLegs failed: %v", err)
	}
	var back model.Opportunity
	if err := DecodeLegs(&back, l1, l2); err != nil {
		t.Fatalf("DecodeLegs failed: %v", err)
	}
	if back.Leg1 != o.Leg1 || back.Leg2 != o.Leg2 {
		t.Fatalf("legs mismatch: %+v vs %+v", back, o)
	}
}
