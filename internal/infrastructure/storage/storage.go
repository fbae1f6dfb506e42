package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// EncodeLegs legs serialized as JSON columns
func EncodeLegs(o model.Opportunity) (leg1, leg2 string, err error) {
	b1, err := json.Marshal(o.Leg1)
	if err != nil {
		return "", "", err
	}
	b2, err := json.Marshal(o.Leg2)
	if err != nil {
		return "", "", err
	}
	return string(b1), string(b2), nil
}

// DecodeLegs reverse of EncodeLegs
func DecodeLegs(o *model.Opportunity, leg1, leg2 string) error {
	if err := json.Unmarshal([]byte(leg1), &o.Leg1); err != nil {
		return err
	}
	return json.Unmarshal([]byte(leg2), &o.Leg2)
}

// MemoryRepo is an in-memory repository used when no backend is enabled.
// It keeps at most limit opportunities and stats rows.
type MemoryRepo struct {
	mu    sync.Mutex
	limit int
	opps  []model.Opportunity
	stats []model.StatsSnapshot
}

// NewMemoryRepo creates a new in-memory repository
func NewMemoryRepo(limit int) *MemoryRepo {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryRepo{limit: limit}
}

func (r *MemoryRepo) SaveOpportunities(ctx context.Context, opps []model.Opportunity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opps = append(r.opps, opps...)
	if over := len(r.opps) - r.limit; over > 0 {
		r.opps = append([]model.Opportunity(nil), r.opps[over:]...)
	}
	return nil
}

func (r *MemoryRepo) ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	r.mu.Lock()
	out := append([]model.Opportunity(nil), r.opps...)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DiscoveredAt.After(out[j].DiscoveredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) InsertScanStats(ctx context.Context, ts int64, snap model.StatsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, snap)
	if over := len(r.stats) - r.limit; over > 0 {
		r.stats = append([]model.StatsSnapshot(nil), r.stats[over:]...)
	}
	return nil
}

// StatsHistory returns a copy of the recorded stats rows
func (r *MemoryRepo) StatsHistory() []model.StatsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.StatsSnapshot(nil), r.stats...)
}

func (r *MemoryRepo) Close() error { return nil }

var _ port.Repository = (*MemoryRepo)(nil)
