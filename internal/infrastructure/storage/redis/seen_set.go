package redis

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"

	"dexarb/internal/domain/model"
	dsvc "dexarb/internal/domain/service"
)

// SeenSet 多实例共享的去重集合（SET NX EX）
type SeenSet struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	marked atomic.Int64
}

func NewSeenSet(rdb *redis.Client, prefix string, ttl time.Duration) *SeenSet {
	return &SeenSet{rdb: rdb, prefix: prefix + ":seen:", ttl: ttl}
}

// key 用 xxhash 压缩机会键，保持键长固定
func (s *SeenSet) key(k model.OpportunityKey) string {
	return s.prefix + strconv.FormatUint(xxhash.Sum64String(string(k)), 16)
}

// MarkIfAbsent ttl <= 0 时键不过期
func (s *SeenSet) MarkIfAbsent(ctx context.Context, k model.OpportunityKey) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(k), 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		s.marked.Add(1)
	}
	return ok, nil
}

// Len 本实例写入的键数量
func (s *SeenSet) Len() int { return int(s.marked.Load()) }

var _ dsvc.SeenSet = (*SeenSet)(nil)
