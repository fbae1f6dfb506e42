package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"dexarb/internal/application/port"
	"dexarb/internal/domain/model"
)

// Recorder 扫描 / 刷新 / 统计指标
type Recorder struct {
	registry *prometheus.Registry

	Scans           prometheus.Counter
	ScanDuration    prometheus.Histogram
	Found           prometheus.Counter
	Rejected        *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	RefreshFailures *prometheus.CounterVec
	Pools           *prometheus.GaugeVec
	BestProfit      prometheus.Gauge
	AvgProfit       prometheus.Gauge
	TotalTrades     prometheus.Gauge
}

func NewRecorder(namespace string) *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		Scans: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of completed scan cycles",
		}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		Found: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_total",
			Help:      "Total number of opportunities that passed validation",
		}),
		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "opportunities_rejected_total",
			Help:      "Candidates rejected by the validator, by reason",
		}, []string{"reason"}),
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_refreshes_total",
			Help:      "Pool refresh attempts per venue",
		}, []string{"venue"}),
		RefreshFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_refresh_failures_total",
			Help:      "Failed pool refreshes per venue",
		}, []string{"venue"}),
		Pools: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools",
			Help:      "Pools currently held per venue",
		}, []string{"venue"}),
		BestProfit: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_trade_profit",
			Help:      "Best recorded trade profit",
		}),
		AvgProfit: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "avg_trade_profit",
			Help:      "Average profit per opportunity",
		}),
		TotalTrades: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trades",
			Help:      "Successful trades recorded",
		}),
	}
}

// Registry 指标注册表
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) ObserveScan(d time.Duration, found int, rejected map[string]int) {
	r.Scans.Inc()
	r.ScanDuration.Observe(d.Seconds())
	r.Found.Add(float64(found))
	for reason, n := range rejected {
		r.Rejected.WithLabelValues(reason).Add(float64(n))
	}
}

func (r *Recorder) ObserveRefresh(venue string, pools int, err error) {
	r.Refreshes.WithLabelValues(venue).Inc()
	if err != nil {
		r.RefreshFailures.WithLabelValues(venue).Inc()
		return
	}
	r.Pools.WithLabelValues(venue).Set(float64(pools))
}

func (r *Recorder) ObserveStats(snap model.StatsSnapshot) {
	r.BestProfit.Set(snap.BestProfit)
	r.AvgProfit.Set(snap.AvgProfit)
	r.TotalTrades.Set(float64(snap.TotalTrades))
}

// Handler /metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve 阻塞直到 ctx 取消
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

var _ port.MetricsRecorder = (*Recorder)(nil)
