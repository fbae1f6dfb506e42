// Package static 配置文件中的固定池（测试、回放与兜底）
package static

import (
	"context"

	"dexarb/internal/domain/model"
)

const SourceName = "static"

const defaultFee = 0.003

type Source struct {
	pools []model.Pool
}

func New(pools []model.Pool) *Source {
	return &Source{pools: pools}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) FetchPools(ctx context.Context) ([]model.Pool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.Pool(nil), s.pools...), nil
}
