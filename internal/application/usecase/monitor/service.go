package monitor

import (
	"context"
	"errors"
	"time"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"

	"github.com/rs/zerolog/log"
)

type Service struct {
	deps ServiceDeps
	st   *State
	fmt  *Formatter
}

func NewService(deps ServiceDeps) *Service {
	if deps.ScanInterval <= 0 {
		deps.ScanInterval = time.Second
	}
	if deps.RefreshInterval <= 0 {
		deps.RefreshInterval = 30 * time.Second
	}
	if deps.StatsEvery <= 0 {
		deps.StatsEvery = time.Minute
	}
	if deps.Debounce <= 0 {
		deps.Debounce = 250 * time.Millisecond
	}
	if deps.Repo == nil {
		deps.Repo = NewNoopRepo()
	}
	return &Service{
		deps: deps,
		st:   NewState(),
		fmt:  NewFormatter(deps.MinProfitPct, deps.TopN),
	}
}

// State 监控状态（只读使用）
func (s *Service) State() *State { return s.st }

// Run 初始刷新后进入扫描循环，直到 ctx 取消
func (s *Service) Run(ctx context.Context) error {
	if s.deps.Arb == nil {
		return errors.New("no arbitrage service")
	}

	if failed := s.deps.Arb.RefreshAll(ctx); failed > 0 {
		log.Warn().Int("failed", failed).Msg("initial pool refresh incomplete")
	}

	touched := make(chan model.PoolTouched, 256)
	for _, feed := range s.deps.Feeds {
		ch, err := feed.Subscribe(ctx)
		if err != nil {
			return err
		}
		go func(in <-chan model.PoolTouched) {
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-in:
					if !ok {
						return
					}
					select {
					case touched <- ev:
					default:
					}
				}
			}
		}(ch)

		log.Info().Str("feed", feed.Name()).Msg("pool event feed started")
	}

	scanTicker := time.NewTicker(s.deps.ScanInterval)
	defer scanTicker.Stop()
	refreshTicker := time.NewTicker(s.deps.RefreshInterval)
	defer refreshTicker.Stop()
	statsTicker := time.NewTicker(s.deps.StatsEvery)
	defer statsTicker.Stop()

	debounce := time.NewTimer(s.deps.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	debouncing := false

	s.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case <-scanTicker.C:
			s.scan(ctx)

		case <-refreshTicker.C:
			if failed := s.deps.Arb.RefreshAll(ctx); failed > 0 {
				log.Warn().Int("failed", failed).Msg("pool refresh incomplete")
			}

		case now := <-statsTicker.C:
			s.snapshot(ctx, now)

		case ev := <-touched:
			s.st.Touch(ev)
			if !debouncing {
				debounce.Reset(s.deps.Debounce)
				debouncing = true
			}

		case <-debounce.C:
			debouncing = false
			for _, venue := range s.st.DrainPending() {
				if err := s.deps.Arb.RefreshVenue(ctx, venue); err != nil {
					log.Debug().Err(err).Str("venue", venue).Msg("event-driven refresh failed")
				}
			}
			s.scan(ctx)
		}
	}
}

func (s *Service) scan(ctx context.Context) {
	opps, err := s.deps.Arb.Scan(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scan failed")
		return
	}
	changed := s.st.Apply(opps, time.Now())
	_ = s.deps.Sink.WriteLive(s.fmt.Render(s.st, s.deps.Arb.Stats(), RenderLive))
	if changed && len(opps) > 0 {
		_ = s.deps.Sink.NewLine()
		_ = s.deps.Sink.WriteBlock(s.fmt.RenderTop(opps))
	}
}

func (s *Service) snapshot(ctx context.Context, now time.Time) {
	stats := s.deps.Arb.Stats()
	_ = s.deps.Sink.WriteSnapshot(now, s.fmt.Render(s.st, stats, RenderSnapshot))
	if err := s.deps.Repo.InsertScanStats(ctx, now.UnixMilli(), stats); err != nil {
		log.Error().Err(err).Msg("persist scan stats failed")
	}
}

var _ port.Repository = (*noopRepo)(nil)
