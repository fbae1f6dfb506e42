package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dexarb/internal/domain/model"
)

type fakeArb struct {
	mu        sync.Mutex
	scans     int
	refreshes int
	venues    []string
	opps      []model.Opportunity
}

func (f *fakeArb) Scan(ctx context.Context) ([]model.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans++
	return f.opps, nil
}

func (f *fakeArb) RefreshAll(ctx context.Context) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
	return 0
}

func (f *fakeArb) RefreshVenue(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.venues = append(f.venues, name)
	return nil
}

func (f *fakeArb) Stats() model.StatsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.StatsSnapshot{Scans: int64(f.scans)}
}

func (f *fakeArb) counts() (scans, refreshes int, venues []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scans, f.refreshes, append([]string(nil), f.venues...)
}

type memSink struct {
	mu     sync.Mutex
	live   []string
	blocks [][]string
	snaps  []string
}

func (m *memSink) WriteLive(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live = append(m.live, line)
	return nil
}

func (m *memSink) WriteSnapshot(ts time.Time, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps = append(m.snaps, line)
	return nil
}

func (m *memSink) WriteBlock(lines []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocks = append(m.blocks, lines)
	return nil
}

func (m *memSink) NewLine() error { return nil }

func (m *memSink) blockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blocks)
}

type chanFeed struct{ ch chan model.PoolTouched }

func (c *chanFeed) Name() string { return "test-feed" }

func (c *chanFeed) Subscribe(ctx context.Context) (<-chan model.PoolTouched, error) {
	return c.ch, nil
}

type errFeed struct{}

func (errFeed) Name() string { return "broken" }

func (errFeed) Subscribe(ctx context.Context) (<-chan model.PoolTouched, error) {
	return nil, errors.New("dial failed")
}

func testOpp(profit float64) model.Opportunity {
	return model.Opportunity{VenueA: "raydium", VenueB: "orca", TokenA: "SOL", TokenB: "USDC", InputAmount: 1, ProfitPct: profit}
}

func TestRunScansAndRendersTop(t *testing.T) {
	arb := &fakeArb{opps: []model.Opportunity{testOpp(1.5), testOpp(0.7)}}
	sink := &memSink{}
	svc := NewService(ServiceDeps{
		Arb:          arb,
		Sink:         sink,
		ScanInterval: 10 * time.Millisecond,
		MinProfitPct: 0.5,
		TopN:         5,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		scans, _, _ := arb.counts()
		return scans >= 3
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	_, refreshes, _ := arb.counts()
	assert.Equal(t, 1, refreshes)
	// 榜单不变时只输出一次
	assert.Equal(t, 1, sink.blockCount())
	require.Len(t, sink.blocks[0], 2)
	assert.Contains(t, sink.blocks[0][0], "raydium->orca")
	assert.Contains(t, svc.State().Top()[0].VenueA, "raydium")
}

func TestRunDebouncesPoolEvents(t *testing.T) {
	arb := &fakeArb{}
	feed := &chanFeed{ch: make(chan model.PoolTouched, 8)}
	svc := NewService(ServiceDeps{
		Arb:          arb,
		Feeds:        []PoolEventFeed{feed},
		Sink:         &memSink{},
		ScanInterval: time.Hour,
		Debounce:     50 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	for i := 0; i < 3; i++ {
		feed.ch <- model.PoolTouched{Venue: "raydium", PoolID: "p1"}
	}

	require.Eventually(t, func() bool {
		_, _, venues := arb.counts()
		return len(venues) >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// 等待可能的多余刷新
	time.Sleep(150 * time.Millisecond)
	_, _, venues := arb.counts()
	assert.Equal(t, []string{"raydium"}, venues)
	assert.Equal(t, 3, svc.State().Touches()["raydium"])

	cancel()
	<-done
}

func TestRunFeedSubscribeError(t *testing.T) {
	svc := NewService(ServiceDeps{Arb: &fakeArb{}, Feeds: []PoolEventFeed{errFeed{}}, Sink: &memSink{}})
	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "dial failed"))
}

func TestRunRequiresArbitrage(t *testing.T) {
	assert.Error(t, NewService(ServiceDeps{Sink: &memSink{}}).Run(context.Background()))
}

func TestFormatterBands(t *testing.T) {
	f := NewFormatter(0.5, 1)
	assert.Contains(t, f.Route(testOpp(1.0)), ansiGreen)
	assert.Contains(t, f.Route(testOpp(0.2)), ansiYellow)
	assert.Contains(t, f.Route(testOpp(-0.2)), ansiRed)
	assert.Len(t, f.RenderTop([]model.Opportunity{testOpp(2), testOpp(1)}), 1)

	st := NewState()
	line := f.Render(st, model.StatsSnapshot{}, RenderSnapshot)
	assert.Contains(t, line, "no opportunities")
	assert.False(t, strings.HasPrefix(line, "\r"))
}

func TestStateApplyDetectsChange(t *testing.T) {
	st := NewState()
	now := time.Now()
	assert.False(t, st.Apply(nil, now))
	assert.True(t, st.Apply([]model.Opportunity{testOpp(1)}, now))
	assert.False(t, st.Apply([]model.Opportunity{testOpp(1)}, now))
	assert.True(t, st.Apply([]model.Opportunity{testOpp(2)}, now))
	assert.Equal(t, now, st.LastScan())
}
