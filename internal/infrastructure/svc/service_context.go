package svc

import (
	"context"
	"fmt"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"dexarb/internal/application/port"
	"dexarb/internal/application/service"
	"dexarb/internal/application/usecase/monitor"
	"dexarb/internal/domain/model"
	domainservice "dexarb/internal/domain/service"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/metrics"
	"dexarb/internal/infrastructure/queue"
	"dexarb/internal/infrastructure/storage"
	"dexarb/internal/infrastructure/storage/composite"
	pgrepo "dexarb/internal/infrastructure/storage/postgres"
	redisrepo "dexarb/internal/infrastructure/storage/redis"
	sqliterepo "dexarb/internal/infrastructure/storage/sqlite"
	"dexarb/internal/infrastructure/venue"
	"dexarb/internal/infrastructure/websocket"
	"dexarb/internal/interfaces/console"

	// 数据源注册
	_ "dexarb/internal/infrastructure/venue/jupiter"
	_ "dexarb/internal/infrastructure/venue/orca"
	_ "dexarb/internal/infrastructure/venue/raydium"
	_ "dexarb/internal/infrastructure/venue/static"
)

const defaultFallbackFee = 0.003

type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	// 基础设施层（第一层初始化）
	Tokens      *model.TokenBook
	redisClient *redisclient.Client
	redisRepo   *redisrepo.Repo
	sqliteRepo  *sqliterepo.Repo
	pgRepo      *pgrepo.Repo
	repo        port.Repository
	publisher   port.OpportunityPublisher
	metrics     *metrics.Recorder

	// 输出端口
	Sink port.Sink

	// 应用业务组件（依赖基础设施）
	venues    []port.VenueAdapter
	feeds     []port.PoolEventFeed
	arbitrage *service.ArbitrageService

	// 资源管理
	closerChain []func() error
}

// New 创建并初始化 ServiceContext
// 这是应用启动的唯一入口点，所有依赖初始化都在这里完成
func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	sc := &ServiceContext{
		Ctx:         ctx,
		Config:      cfg,
		Tokens:      model.NewTokenBook(cfg.Tokens),
		Sink:        console.NewSink(),
		closerChain: make([]func() error, 0),
	}

	if err := sc.initializeComponents(); err != nil {
		// 清理已初始化的资源
		_ = sc.Close()
		return nil, err
	}
	return sc, nil
}

// initializeComponents 按依赖顺序初始化：存储 -> 推送 -> 指标 -> 交易所 -> 扫描服务 -> 事件源
func (sc *ServiceContext) initializeComponents() error {
	if err := sc.initializeStorage(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageInitFailed, err)
	}
	if err := sc.initPublisher(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublisherInitFailed, err)
	}
	if sc.Config.Metrics.Enabled {
		sc.metrics = metrics.NewRecorder("dexarb")
	}
	if err := sc.initVenues(); err != nil {
		return err
	}
	if err := sc.initArbitrage(); err != nil {
		return err
	}
	sc.initFeeds()

	log.Info().
		Int("venues", len(sc.venues)).
		Int("feeds", len(sc.feeds)).
		Msg("✓ All components initialized")
	return nil
}

// initializeStorage 初始化存储层 (Redis / SQLite / Postgres)，都未启用时使用内存仓储
func (sc *ServiceContext) initializeStorage() error {
	if sc.Config.Redis.Enabled {
		if err := sc.initRedis(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if sc.Config.SQLite.Enabled {
		if err := sc.initSQLite(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	}
	if sc.Config.Postgres.Enabled {
		if err := sc.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}

	var repos []port.Repository
	if sc.sqliteRepo != nil {
		repos = append(repos, sc.sqliteRepo)
	}
	if sc.pgRepo != nil {
		repos = append(repos, sc.pgRepo)
	}
	if sc.redisRepo != nil {
		repos = append(repos, sc.redisRepo)
	}

	switch len(repos) {
	case 0:
		sc.repo = storage.NewMemoryRepo(1000)
		log.Info().Msg("no storage backend enabled, using in-memory repository")
	case 1:
		sc.repo = repos[0]
	default:
		sc.repo = composite.New(repos...)
	}
	return nil
}

// initRedis 初始化 Redis 连接
func (sc *ServiceContext) initRedis() error {
	rdb := redisclient.NewClient(&redisclient.Options{
		Addr:     sc.Config.Redis.Addr,
		Password: sc.Config.Redis.Password,
		DB:       sc.Config.Redis.DB,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(sc.Ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	sc.redisClient = rdb
	sc.redisRepo = redisrepo.New(
		rdb,
		sc.Config.Redis.Prefix,
		time.Duration(sc.Config.Redis.TTLSeconds)*time.Second,
		sc.Config.Redis.Stream,
		sc.Config.Redis.Channel,
	)

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().
		Str("addr", sc.Config.Redis.Addr).
		Int("db", sc.Config.Redis.DB).
		Msg("✓ Redis initialized")
	return nil
}

// initSQLite 初始化 SQLite 数据库
func (sc *ServiceContext) initSQLite() error {
	repo, err := sqliterepo.New(sc.Config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("sqlite repo creation failed: %w", err)
	}
	sc.sqliteRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().
		Str("path", sc.Config.SQLite.Path).
		Msg("✓ SQLite initialized")
	return nil
}

// initPostgres 初始化 Postgres
func (sc *ServiceContext) initPostgres() error {
	ctx, cancel := context.WithTimeout(sc.Ctx, 10*time.Second)
	defer cancel()

	repo, err := pgrepo.New(ctx, sc.Config.Postgres.DSN)
	if err != nil {
		return err
	}
	sc.pgRepo = repo

	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("✓ Postgres initialized")
	return nil
}

// initPublisher 初始化 Kafka 推送
func (sc *ServiceContext) initPublisher() error {
	if !sc.Config.Kafka.Enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(sc.Ctx, 15*time.Second)
	defer cancel()
	if err := queue.WaitForBroker(ctx, sc.Config.Kafka.Brokers); err != nil {
		return err
	}

	pub := queue.NewPublisher(queue.NewWriter(sc.Config.Kafka.Brokers, sc.Config.Kafka.Topic))
	sc.publisher = pub
	sc.closerChain = append(sc.closerChain, func() error {
		log.Info().Msg("closing kafka writer")
		return pub.Close()
	})

	log.Info().
		Strs("brokers", sc.Config.Kafka.Brokers).
		Str("topic", sc.Config.Kafka.Topic).
		Msg("✓ Kafka publisher initialized")
	return nil
}

// initVenues 按配置顺序创建交易所适配器
func (sc *ServiceContext) initVenues() error {
	for _, vc := range sc.Config.EnabledVenues() {
		src, err := venue.NewSource(vc, sc.Tokens)
		if err != nil {
			return err
		}

		adapter := venue.NewAdapter(vc.Name, src, venue.Options{
			Timeout:    vc.Timeout(),
			RatePerSec: vc.RatePerSec,
			Fallback:   venue.PoolsFromConfig(vc.Name, vc.Pools, vc.Fee(defaultFallbackFee), sc.Tokens),
		})
		sc.venues = append(sc.venues, adapter)

		log.Info().
			Str("venue", vc.Name).
			Str("source", vc.Source).
			Int("fallback_pools", len(vc.Pools)).
			Msg("✓ Venue initialized")
	}

	if len(sc.venues) == 0 {
		return ErrNoVenuesEnabled
	}
	return nil
}

// initArbitrage 组装扫描器、校验器与扫描服务
func (sc *ServiceContext) initArbitrage() error {
	cfg := sc.Config

	var seen domainservice.SeenSet
	if cfg.Validator.Shared && sc.redisClient != nil {
		seen = redisrepo.NewSeenSet(sc.redisClient, cfg.Redis.Prefix, cfg.SeenTTL())
	} else {
		mem, err := domainservice.NewMemorySeenSet(cfg.Validator.SeenCapacity, cfg.SeenTTL())
		if err != nil {
			return fmt.Errorf("seen set: %w", err)
		}
		seen = mem
	}

	validator := domainservice.NewOpportunityValidator(domainservice.ValidatorConfig{
		MinProfitPct:         cfg.Arbitrage.MinProfitThresholdPct,
		MaxProfitPct:         cfg.Validator.MaxProfitPct,
		MaxRoundTripRatio:    cfg.Validator.MaxRoundTripRatio,
		SlippageTolerancePct: cfg.Arbitrage.SlippageTolerancePct,
	}, seen)

	scanner := service.NewArbitrageScanner(
		sc.venues,
		service.NewArbitrageCalculator(cfg.Arbitrage.ReferenceAmount, cfg.Arbitrage.MinProfitThresholdPct),
		service.ScannerConfig{
			Workers:          cfg.Scanner.Workers,
			TaskTimeout:      cfg.TaskTimeout(),
			MaxOpportunities: cfg.Arbitrage.MaxOpportunities,
			ReverseLegs:      cfg.Scanner.ReverseLegs,
		},
	)

	deps := service.ArbitrageDeps{
		Venues:    sc.venues,
		Scanner:   scanner,
		Validator: validator,
		Stats:     domainservice.NewStatsAggregator(),
		Repo:      sc.repo,
		Publisher: sc.publisher,
	}
	if sc.metrics != nil {
		deps.Metrics = sc.metrics
	}
	sc.arbitrage = service.NewArbitrageService(deps)
	return nil
}

// initFeeds 池账户订阅（可选）
func (sc *ServiceContext) initFeeds() {
	if !sc.Config.Events.Enabled {
		return
	}
	watches := make([]websocket.Watch, 0, len(sc.Config.Events.Watch))
	for _, w := range sc.Config.Events.Watch {
		watches = append(watches, websocket.Watch{Venue: w.Venue, PoolID: w.PoolID, Account: w.Account})
	}
	sc.feeds = append(sc.feeds, websocket.NewPoolFeed(sc.Config.Events.WsURL, watches))
}

// Arbitrage 扫描服务
func (sc *ServiceContext) Arbitrage() *service.ArbitrageService {
	return sc.arbitrage
}

// Repository 当前仓储
func (sc *ServiceContext) Repository() port.Repository {
	return sc.repo
}

// GetRedisRepo 获取 Redis 仓储
func (sc *ServiceContext) GetRedisRepo() *redisrepo.Repo {
	return sc.redisRepo
}

// GetSQLiteRepo 获取 SQLite 仓储
func (sc *ServiceContext) GetSQLiteRepo() *sqliterepo.Repo {
	return sc.sqliteRepo
}

// StartMetrics 启动 /metrics，未启用时直接返回
func (sc *ServiceContext) StartMetrics(ctx context.Context) {
	if sc.metrics == nil {
		return
	}
	go func() {
		if err := sc.metrics.Serve(ctx, sc.Config.Metrics.Addr); err != nil {
			log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

// BuildMonitorServiceDeps 构建 Monitor Service 所需的所有依赖
func (sc *ServiceContext) BuildMonitorServiceDeps() monitor.ServiceDeps {
	cfg := sc.Config
	return monitor.ServiceDeps{
		Arb:             sc.arbitrage,
		Feeds:           sc.feeds,
		Sink:            sc.Sink,
		Repo:            sc.repo,
		ScanInterval:    cfg.ScanInterval(),
		RefreshInterval: cfg.RefreshInterval(),
		StatsEvery:      cfg.StatsEvery(),
		Debounce:        time.Duration(cfg.Events.DebounceMs) * time.Millisecond,
		TopN:            cfg.App.TopN,
		MinProfitPct:    cfg.Arbitrage.MinProfitThresholdPct,
	}
}

// Close 关闭 ServiceContext 中的所有资源
// 应该在应用退出时调用
func (sc *ServiceContext) Close() error {
	// 按照相反的顺序关闭所有资源
	for i := len(sc.closerChain) - 1; i >= 0; i-- {
		if err := sc.closerChain[i](); err != nil {
			log.Error().Err(err).Msg("error closing resource")
		}
	}
	sc.closerChain = nil
	return nil
}
