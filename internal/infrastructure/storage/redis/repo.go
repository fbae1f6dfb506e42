package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// Repo 机会写入 stream + pubsub，每个代币对的最优机会写入 hash
type Repo struct {
	rdb      *redis.Client
	prefix   string
	ttl      time.Duration
	keyBest  string // prefix + ":best"
	keyStats string // prefix + ":stats"
	stream   string
	channel  string
}

// BestRecord 某个代币对当前最优机会
type BestRecord struct {
	ID        string  `json:"id"`
	VenueA    string  `json:"venue_a"`
	VenueB    string  `json:"venue_b"`
	ProfitPct float64 `json:"profit_pct"`
	Ts        int64   `json:"ts_ms"`
}

func New(rdb *redis.Client, prefix string, ttl time.Duration, stream, channel string) *Repo {
	if strings.TrimSpace(stream) == "" {
		stream = prefix + ":opportunities"
	}
	if strings.TrimSpace(channel) == "" {
		channel = prefix + ":opportunities:live"
	}
	return &Repo{
		rdb:      rdb,
		prefix:   prefix,
		ttl:      ttl,
		keyBest:  prefix + ":best",
		keyStats: prefix + ":stats",
		stream:   stream,
		channel:  channel,
	}
}

// Close 客户端由调用方持有并关闭
func (r *Repo) Close() error { return nil }

func pairField(o model.Opportunity) string {
	return fmt.Sprintf("%s:%s", o.TokenA, o.TokenB)
}

func (r *Repo) SaveOpportunities(ctx context.Context, opps []model.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	best := make(map[string]model.Opportunity)
	pipe := r.rdb.Pipeline()
	for _, o := range opps {
		payload, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", o.ID, err)
		}
		// 1) Stream: XADD <stream> * id pair profit payload
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: r.stream,
			Values: map[string]any{
				"id":         o.ID,
				"pair":       pairField(o),
				"profit_pct": o.ProfitPct,
				"payload":    string(payload),
			},
		})
		// 2) PubSub: PUBLISH <channel> json
		pipe.Publish(ctx, r.channel, string(payload))

		if cur, ok := best[pairField(o)]; !ok || o.ProfitPct > cur.ProfitPct {
			best[pairField(o)] = o
		}
	}

	// 3) Hash: field = "SOL:USDC" -> 最优机会
	for field, o := range best {
		b, _ := json.Marshal(BestRecord{
			ID:        o.ID,
			VenueA:    o.VenueA,
			VenueB:    o.VenueB,
			ProfitPct: o.ProfitPct,
			Ts:        o.DiscoveredAt.UnixMilli(),
		})
		pipe.HSet(ctx, r.keyBest, field, string(b))
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyBest, r.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *Repo) ListRecentOpportunities(ctx context.Context, limit int) ([]model.Opportunity, error) {
	if limit <= 0 {
		limit = 100
	}
	msgs, err := r.rdb.XRevRangeN(ctx, r.stream, "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]model.Opportunity, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["payload"].(string)
		if !ok {
			continue
		}
		var o model.Opportunity
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("decode stream entry %s: %w", m.ID, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// BestByPair 每个代币对的最优机会
func (r *Repo) BestByPair(ctx context.Context) (map[string]BestRecord, error) {
	raw, err := r.rdb.HGetAll(ctx, r.keyBest).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]BestRecord, len(raw))
	for field, v := range raw {
		var rec BestRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			continue
		}
		out[field] = rec
	}
	return out, nil
}

func (r *Repo) InsertScanStats(ctx context.Context, ts int64, s model.StatsSnapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.rdb.Pipeline()
	pipe.HSet(ctx, r.keyStats, "latest", string(b), "ts_ms", ts)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.keyStats, r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

var _ port.Repository = (*Repo)(nil)
