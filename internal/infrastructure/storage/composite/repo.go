package composite

import (
	"context"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// Repo 写操作广播到所有后端，读操作取第一个后端
type Repo struct {
	repos []port.Repository
}

func New(repos ...port.Repository) *Repo {
	out := make([]port.Repository, 0, len(repos))
	for _, r := range repos {
		if r != nil {
			out = append(out, r)
		}
	}
	return &Repo{repos: out}
}

// Len 后端数量
func (r *Repo) Len() int { return len(r.repos) }

func (r *Repo) SaveOpportunities(ctx context.Context, opps []model.Opportunity) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.SaveOpportunities(ctx, opps); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	if len(r.repos) == 0 {
		return nil, nil
	}
	return r.repos[0].ListRecentOpportunities(ctx, limit)
}

func (r *Repo) InsertScanStats(ctx context.Context, ts int64, snap model.StatsSnapshot) error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.InsertScanStats(ctx, ts, snap); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Repo) Close() error {
	var firstErr error
	for _, repo := range r.repos {
		if err := repo.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ port.Repository = (*Repo)(nil)
