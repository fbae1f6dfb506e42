// Package raydium Raydium AMM 交易对列表
package raydium

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
	SourceName     = "raydium"
	DefaultFee     = 0.0025
	DefaultReserve = 1_000_000
)

type pairDTO struct {
	ID           string      `json:"id"`
	AmmID        string      `json:"ammId"`
	BaseMint     string      `json:"baseMint"`
	QuoteMint    string      `json:"quoteMint"`
	BaseReserve  venue.Float `json:"baseReserve"`
	QuoteReserve venue.Float `json:"quoteReserve"`
}

// Source GET <endpoint>/main/pairs
type Source struct {
	endpoint   string
	client     *http.Client
	fee        float64
	defReserve float64
}

func New(endpoint string, fee, defReserve float64, client *http.Client) *Source {
	if fee < 0 || fee >= 1 {
		fee = DefaultFee
	}
	if defReserve <= 0 {
		defReserve = DefaultReserve
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:     client,
		fee:        fee,
		defReserve: defReserve,
	}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) FetchPools(ctx context.Context) ([]model.Pool, error) {
	var raw []json.RawMessage
	if err := venue.GetJSON(ctx, s.client, s.endpoint+"/main/pairs", &raw); err != nil {
		return nil, err
	}

	pools := make([]model.Pool, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		var p pairDTO
		if err := json.Unmarshal(r, &p); err != nil {
			skipped++
			continue
		}
		id := p.ID
		if id == "" {
			id = p.AmmID
		}
		if id == "" || p.BaseMint == "" || p.QuoteMint == "" {
			skipped++
			continue
		}
		pools = append(pools, model.Pool{
			ID:       id,
			TokenA:   model.TokenID(p.BaseMint),
			TokenB:   model.TokenID(p.QuoteMint),
			ReserveA: p.BaseReserve.Or(s.defReserve),
			ReserveB: p.QuoteReserve.Or(s.defReserve),
			FeeRate:  s.fee,
		})
	}
	if skipped > 0 {
		log.Debug().Str("source", SourceName).Int("skipped", skipped).Msg("malformed pairs skipped")
	}
	return pools, nil
}
