package service

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"

	"dexarb/internal/domain/model"
)

// SeenSet 已见机会集合
// MarkIfAbsent 原子地检查并记录，返回 true 表示首次出现
type SeenSet interface {
	MarkIfAbsent(ctx context.Context, key model.OpportunityKey) (bool, error)
	Len() int
}

// 每写入 pruneEvery 个新条目顺带清理一次过期条目
const pruneEvery = 1024

// MemorySeenSet 进程内去重集合
// capacity <= 0 时不淘汰（进程生命周期），否则按 LRU 淘汰
// ttl > 0 时条目在窗口过后视为未见，并在写入时周期性清理
type MemorySeenSet struct {
	mu      sync.Mutex
	ttl     time.Duration
	cache   *lru.Cache
	all     map[uint64]time.Time
	now     func() time.Time
	inserts int
}

// NewMemorySeenSet 创建去重集合
func NewMemorySeenSet(capacity int, ttl time.Duration) (*MemorySeenSet, error) {
	s := &MemorySeenSet{ttl: ttl, now: time.Now}
	if capacity <= 0 {
		s.all = make(map[uint64]time.Time)
		return s, nil
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// MarkIfAbsent 实现 SeenSet
func (s *MemorySeenSet) MarkIfAbsent(_ context.Context, key model.OpportunityKey) (bool, error) {
	h := xxhash.Sum64String(string(key))
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.get(h); ok && !s.expired(at, now) {
		return false, nil
	}
	s.put(h, now)
	if s.ttl > 0 {
		s.inserts++
		if s.inserts >= pruneEvery {
			s.inserts = 0
			s.pruneLocked(now)
		}
	}
	return true, nil
}

// Len 当前条目数（含已过期但未清理的）
func (s *MemorySeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return s.cache.Len()
	}
	return len(s.all)
}

// Prune 清理过期条目
func (s *MemorySeenSet) Prune() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(now)
}

func (s *MemorySeenSet) pruneLocked(now time.Time) int {
	removed := 0
	if s.cache != nil {
		for _, k := range s.cache.Keys() {
			if v, ok := s.cache.Peek(k); ok && s.expired(v.(time.Time), now) {
				s.cache.Remove(k)
				removed++
			}
		}
		return removed
	}
	for k, at := range s.all {
		if s.expired(at, now) {
			delete(s.all, k)
			removed++
		}
	}
	return removed
}

func (s *MemorySeenSet) get(h uint64) (time.Time, bool) {
	if s.cache != nil {
		v, ok := s.cache.Peek(h)
		if !ok {
			return time.Time{}, false
		}
		return v.(time.Time), true
	}
	at, ok := s.all[h]
	return at, ok
}

func (s *MemorySeenSet) put(h uint64, at time.Time) {
	if s.cache != nil {
		s.cache.Add(h, at)
		return
	}
	s.all[h] = at
}

func (s *MemorySeenSet) expired(at, now time.Time) bool {
	return s.ttl > 0 && now.Sub(at) >= s.ttl
}

var _ SeenSet = (*MemorySeenSet)(nil)
