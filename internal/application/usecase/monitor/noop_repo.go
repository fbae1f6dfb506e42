package monitor

import (
	"context"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

type noopRepo struct{}

func NewNoopRepo() port.Repository { return &noopRepo{} }

func (n *noopRepo) SaveOpportunities(ctx context.Context, opps []model.Opportunity) error {
	return nil
}
func (n *noopRepo) ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	return nil, nil
}
func (n *noopRepo) InsertScanStats(ctx context.Context, ts int64, snap model.StatsSnapshot) error {
	return nil
}
func (n *noopRepo) Close() error { return nil }
