// Package jupiter Jupiter 路由表：每条可达路由视为一个合成池
package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dexarb/internal/domain/model"
	"dexarb/internal/infrastructure/venue"
)

const (
	SourceName     = "jupiter"
	DefaultFee     = 0.003
	DefaultReserve = 1_000_000
)

var errMalformed = errors.New("malformed route map")

type indexedRouteMap struct {
	MintKeys        []string         `json:"mintKeys"`
	IndexedRouteMap map[string][]int `json:"indexedRouteMap"`
}

// Source GET <endpoint>/indexed-route-map
// tokens 非空时只保留两端都是已配置代币的路由
type Source struct {
	endpoint string
	client   *http.Client
	fee      float64
	reserve  float64
	tokens   *model.TokenBook
}

func New(endpoint string, fee, reserve float64, tokens *model.TokenBook, client *http.Client) *Source {
	if fee < 0 || fee >= 1 {
		fee = DefaultFee
	}
	if reserve <= 0 {
		reserve = DefaultReserve
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		client:   client,
		fee:      fee,
		reserve:  reserve,
		tokens:   tokens,
	}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) FetchPools(ctx context.Context) ([]model.Pool, error) {
	var raw json.RawMessage
	if err := venue.GetJSON(ctx, s.client, s.endpoint+"/indexed-route-map", &raw); err != nil {
		return nil, err
	}
	routes, err := parseRoutes(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]struct{})
	var pools []model.Pool
	for in, outs := range routes {
		for _, out := range outs {
			if in == "" || out == "" || in == out {
				continue
			}
			a, b := in, out
			if b < a {
				a, b = b, a
			}
			key := [2]string{a, b}
			if _, ok := seen[key]; ok {
				continue
			}
			if s.tokens.Len() > 0 && !(s.tokens.Known(model.TokenID(a)) && s.tokens.Known(model.TokenID(b))) {
				continue
			}
			seen[key] = struct{}{}
			pools = append(pools, model.Pool{
				ID:       "jupiter_" + a + "_" + b,
				TokenA:   model.TokenID(a),
				TokenB:   model.TokenID(b),
				ReserveA: s.reserve,
				ReserveB: s.reserve,
				FeeRate:  s.fee,
			})
		}
	}
	return pools, nil
}

// parseRoutes 支持索引格式 {mintKeys, indexedRouteMap} 与平铺格式 {mint: [mint...]}
func parseRoutes(raw json.RawMessage) (map[string][]string, error) {
	var idx indexedRouteMap
	if err := json.Unmarshal(raw, &idx); err == nil && len(idx.MintKeys) > 0 {
		routes := make(map[string][]string, len(idx.IndexedRouteMap))
		for k, outs := range idx.IndexedRouteMap {
			i, err := strconv.Atoi(k)
			if err != nil || i < 0 || i >= len(idx.MintKeys) {
				continue
			}
			for _, j := range outs {
				if j < 0 || j >= len(idx.MintKeys) {
					continue
				}
				routes[idx.MintKeys[i]] = append(routes[idx.MintKeys[i]], idx.MintKeys[j])
			}
		}
		return routes, nil
	}

	var flat map[string][]string
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, errMalformed
	}
	return flat, nil
}
