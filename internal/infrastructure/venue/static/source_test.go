package static

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/venue"
)

func TestRegisteredFactory(t *testing.T) {
	tokens := model.NewTokenBook(map[string]string{"SOL": "So1111"})
	src, err := venue.NewSource(config.VenueConfig{
		Name:   "replay",
		Source: SourceName,
		Pools: []config.PoolConfig{
			{ID: "r1", TokenA: "SOL", TokenB: "USDC", ReserveA: 10, ReserveB: 1500},
		},
	}, tokens)
	require.NoError(t, err)

	pools, err := src.FetchPools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.Equal(t, model.TokenID("So1111"), pools[0].TokenA)
	assert.InDelta(t, defaultFee, pools[0].FeeRate, 1e-12)

	// 返回副本
	pools[0].ReserveA = 0
	again, _ := src.FetchPools(context.Background())
	assert.InDelta(t, 10, again[0].ReserveA, 1e-9)
}
