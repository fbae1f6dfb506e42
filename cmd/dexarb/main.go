package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dexarb/internal/application/usecase/monitor"
	"dexarb/internal/infrastructure/config"
	"dexarb/internal/infrastructure/logger"
	"dexarb/internal/infrastructure/svc"
	"dexarb/internal/infrastructure/venue"
)

func main() {
	root := &cobra.Command{
		Use:          "dexarb",
		Short:        "Cross-venue DEX arbitrage scanner",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "configs/config.toml", "path to config.toml")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides config")
	root.PersistentFlags().Bool("json-logs", false, "emit JSON logs instead of console output")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the continuous scan loop",
		RunE:  runMonitor,
	})

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Refresh pools once, run a single scan and print the result",
		RunE:  runScan,
	}
	root.AddCommand(scanCmd)

	root.AddCommand(&cobra.Command{
		Use:   "venues",
		Short: "List registered pool sources and configured venues",
		RunE:  runVenues,
	})

	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recently stored opportunities and persisted stats",
		RunE:  runRecent,
	}
	recentCmd.Flags().Int("limit", 20, "number of opportunities to show")
	root.AddCommand(recentCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// bootstrap 加载配置、初始化日志并创建 ServiceContext
func bootstrap(cmd *cobra.Command) (*svc.ServiceContext, error) {
	configPath, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	logger.Setup("info", jsonLogs)
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	if level == "" {
		level = cfg.App.LogLevel
	}
	logger.Setup(level, jsonLogs)

	sc, err := svc.New(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("config", configPath).
		Int("venues", len(sc.Arbitrage().Venues())).
		Float64("min_profit_pct", cfg.Arbitrage.MinProfitThresholdPct).
		Msg("dexarb started")
	return sc, nil
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	sc, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer sc.Close()

	ctx := cmd.Context()
	sc.StartMetrics(ctx)

	if err := monitor.NewService(sc.BuildMonitorServiceDeps()).Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("monitor service exited")
		return err
	}
	log.Info().Msg("dexarb stopped")
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	sc, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer sc.Close()

	ctx := cmd.Context()
	arb := sc.Arbitrage()
	if failed := arb.RefreshAll(ctx); failed > 0 {
		log.Warn().Int("failed", failed).Msg("some venues failed to refresh, using previous pools")
	}

	opps, err := arb.Scan(ctx)
	if err != nil {
		return err
	}

	f := monitor.NewFormatter(sc.Config.Arbitrage.MinProfitThresholdPct, sc.Config.App.TopN)
	stats := arb.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "scan took %.3fs, %d opportunities\n", stats.LastScanTime, len(opps))
	return sc.Sink.WriteBlock(f.RenderTop(opps))
}

func runVenues(cmd *cobra.Command, _ []string) error {
	sc, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer sc.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sources: %s\n", strings.Join(venue.Sources(), ", "))

	arb := sc.Arbitrage()
	arb.RefreshAll(cmd.Context())
	for _, v := range arb.Venues() {
		pools := v.Pools()
		updated := "never"
		if u, ok := v.(interface{ UpdatedAt() time.Time }); ok && !u.UpdatedAt().IsZero() {
			updated = u.UpdatedAt().Format(time.RFC3339)
		}
		fmt.Fprintf(out, "%-12s pools=%d updated=%s\n", v.Name(), len(pools), updated)
		for _, p := range pools {
			fmt.Fprintf(out, "  %-24s %s/%s reserves=%.4f/%.4f fee=%.4f\n",
				p.ID, sc.Tokens.Name(p.TokenA), sc.Tokens.Name(p.TokenB), p.ReserveA, p.ReserveB, p.FeeRate)
		}
	}
	return nil
}

func runRecent(cmd *cobra.Command, _ []string) error {
	sc, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer sc.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	opps, err := sc.Repository().ListRecentOpportunities(cmd.Context(), limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(opps) == 0 {
		fmt.Fprintln(out, "no stored opportunities")
	}
	for _, o := range opps {
		fmt.Fprintf(out, "%s %s/%s %s->%s %+.4f%%\n",
			o.DiscoveredAt.Format("2006-01-02 15:04:05"),
			sc.Tokens.Name(o.TokenA), sc.Tokens.Name(o.TokenB), o.VenueA, o.VenueB, o.ProfitPct)
	}

	if db := sc.GetSQLiteRepo(); db != nil {
		st, ok, err := db.LatestScanStats(cmd.Context())
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "last stats: scans=%d opportunities=%d best=%.4f%% avg=%.4f%% scan=%.3fs\n",
				st.Scans, st.TotalOpportunities, st.BestProfit, st.AvgProfit, st.LastScanTime)
		}
	}
	if rdb := sc.GetRedisRepo(); rdb != nil {
		best, err := rdb.BestByPair(cmd.Context())
		if err != nil {
			return err
		}
		pairs := make([]string, 0, len(best))
		for pair := range best {
			pairs = append(pairs, pair)
		}
		sort.Strings(pairs)
		for _, pair := range pairs {
			b := best[pair]
			fmt.Fprintf(out, "best %-24s %s->%s %+.4f%%\n", pair, b.VenueA, b.VenueB, b.ProfitPct)
		}
	}
	return nil
}
