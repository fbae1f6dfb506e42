package redis

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"

	"dexarb/internal/domain/model"
)

func TestNewDefaultsKeys(t *testing.T) {
	r := New(nil, "dexarb", time.Hour, "", " ")
	if r.stream != "dexarb:opportunities" {
		t.Errorf("unexpected stream %q", r.stream)
	}
	if r.channel != "dexarb:opportunities:live" {
		t.Errorf("unexpected channel %q", r.channel)
	}
	if r.keyBest != "dexarb:best" || r.keyStats != "dexarb:stats" {
		t.Errorf("unexpected keys %q %q", r.keyBest, r.keyStats)
	}

	custom := New(nil, "x", 0, "s", "c")
	if custom.stream != "s" || custom.channel != "c" {
		t.Errorf("custom stream/channel ignored: %q %q", custom.stream, custom.channel)
	}
}

func TestSaveEmptyBatchSkipsRedis(t *testing.T) {
	r := New(nil, "dexarb", 0, "", "")
	if err := r.SaveOpportunities(context.Background(), nil); err != nil {
		t.Fatalf("SaveOpportunities(nil) failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestKeys(t *testing.T) {
	o := model.Opportunity{VenueA: "raydium", VenueB: "orca", TokenA: "SOL", TokenB: "USDC", ProfitPct: 1.5}
	if got := pairField(o); got != "SOL:USDC" {
		t.Errorf("pairField = %q", got)
	}

	s := NewSeenSet(nil, "dexarb", time.Minute)
	want := "dexarb:seen:" + strconv.FormatUint(xxhash.Sum64String("raydium-orca-SOL-USDC-1.50"), 16)
	if got := s.key(o.Key()); got != want {
		t.Errorf("seen key = %q, want %q", got, want)
	}

	long := model.Opportunity{VenueA: strings.Repeat("v", 200), VenueB: "orca", TokenA: "SOL", TokenB: "USDC", ProfitPct: 1.5}
	if got := s.key(long.Key()); len(got) > len("dexarb:seen:")+16 {
		t.Errorf("seen key not compacted: %d bytes", len(got))
	}
	if s.key(o.Key()) == s.key(long.Key()) {
		t.Errorf("distinct opportunities share a seen key")
	}
	if s.Len() != 0 {
		t.Errorf("expected empty seen set")
	}
}
