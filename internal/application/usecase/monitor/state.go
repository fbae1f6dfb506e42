package monitor

import (
	"sync"
	"time"

	"dexarb/internal/domain/model"
)

// State 最近一轮扫描结果与池事件计数
type State struct {
	mu sync.Mutex

	top      []model.Opportunity
	lastScan time.Time
	touched  map[string]int
	pending  map[string]struct{}
}

func NewState() *State {
	return &State{
		touched: make(map[string]int),
		pending: make(map[string]struct{}),
	}
}

// Apply 记录一轮扫描结果，返回榜单是否变化
func (s *State) Apply(opps []model.Opportunity, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastScan = at
	changed := len(opps) != len(s.top)
	if !changed {
		for i := range opps {
			if opps[i].Key() != s.top[i].Key() {
				changed = true
				break
			}
		}
	}
	s.top = append([]model.Opportunity(nil), opps...)
	return changed
}

// Touch 记录池事件，返回该交易所此前是否已在待刷新集合中
func (s *State) Touch(ev model.PoolTouched) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touched[ev.Venue]++
	_, already := s.pending[ev.Venue]
	s.pending[ev.Venue] = struct{}{}
	return already
}

// DrainPending 取出并清空待刷新的交易所
func (s *State) DrainPending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.pending))
	for v := range s.pending {
		out = append(out, v)
	}
	s.pending = make(map[string]struct{})
	return out
}

func (s *State) Top() []model.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Opportunity(nil), s.top...)
}

func (s *State) LastScan() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

// Touches 各交易所累计池事件数
func (s *State) Touches() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.touched))
	for k, v := range s.touched {
		out[k] = v
	}
	return out
}
