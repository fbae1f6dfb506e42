// Package orca Orca 池列表
package orca

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/venue"
)

const (
	SourceName = "orca"
	DefaultFee = 0.003
)

type tokenDTO struct {
	Mint string `json:"mint"`
}

type poolDTO struct {
	Address      string      `json:"address"`
	TokenA       tokenDTO    `json:"tokenA"`
	TokenB       tokenDTO    `json:"tokenB"`
	TokenAAmount venue.Float `json:"tokenAAmount"`
	TokenBAmount venue.Float `json:"tokenBAmount"`
	FeeRate      venue.Float `json:"feeRate"`
}

// Source GET <endpoint>/pools
// 没有储备数据的池跳过
type Source struct {
	endpoint string
	client   *http.Client
	fee      float64
}

func New(endpoint string, fee float64, client *http.Client) *Source {
	if fee < 0 || fee >= 1 {
		fee = DefaultFee
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   client,
		fee:      fee,
	}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) FetchPools(ctx context.Context) ([]model.Pool, error) {
	var raw []json.RawMessage
	if err := venue.GetJSON(ctx, s.client, s.endpoint+"/pools", &raw); err != nil {
		return nil, err
	}

	pools := make([]model.Pool, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var p poolDTO
		if err := json.Unmarshal(r, &p); err != nil {
			skipped++
			continue
		}
		if p.Address == "" || p.TokenA.Mint == "" || p.TokenB.Mint == "" || !p.TokenAAmount.Set || !p.TokenBAmount.Set {
			skipped++
			continue
		}
		pools = append(pools, model.Pool{
			ID:       p.Address,
			TokenA:   model.TokenID(p.TokenA.Mint),
			TokenB:   model.TokenID(p.TokenB.Mint),
			ReserveA: p.TokenAAmount.Value,
			ReserveB: p.TokenBAmount.Value,
			FeeRate:  p.FeeRate.Or(s.fee),
		})
	}
	if skipped > 0 {
		log.Debug().Str("source", SourceName).Int("skipped", skipped).Msg("malformed pools skipped")
	}
	return pools, nil
}
