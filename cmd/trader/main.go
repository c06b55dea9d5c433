package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/bytedance/sonic"
	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/pkg/sys"

	"github.com/tommytrillva/memecoinbot/internal/bridge"
	"github.com/tommytrillva/memecoinbot/internal/chaos"
	"github.com/tommytrillva/memecoinbot/internal/marketdata"
	"github.com/tommytrillva/memecoinbot/internal/obs"
	"github.com/tommytrillva/memecoinbot/internal/ops"
	"github.com/tommytrillva/memecoinbot/internal/order"
	"github.com/tommytrillva/memecoinbot/internal/trading"
	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON config")
	envPath := flag.String("env", ".env", "Path to .env file")
	configReload := flag.Duration("config-reload-interval", 2*time.Second, "Config reload interval (0=disable)")
	chaosSeed := flag.Int64("chaos-seed", 0, "Market data fault injection RNG seed (0=now)")
	chaosFailRate := flag.Float64("chaos-fail-rate", 0, "Market data request failure probability [0-1]")
	chaosCorruptRate := flag.Float64("chaos-corrupt-rate", 0, "Market data payload truncation probability [0-1]")
	chaosMaxDelay := flag.Duration("chaos-max-delay", 0, "Max injected market data latency")
	flag.Parse()

	log := logger.Default()

	if err := ops.LoadDotEnv(*envPath); err != nil {
		fatalf(log, "load env failed: %+v", err)
	}
	configMod := configModTime(*configPath)
	loaded, err := ops.Load(*configPath)
	if err != nil {
		fatalf(log, "config load failed: %+v", err)
	}

	if loaded.PyroscopeAddr != "" {
		profiler, err := startProfiler(loaded.PyroscopeAddr, log)
		if err != nil {
			fatalf(log, "pyroscope start failed: %+v", err)
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	var metricsServer *http.Server
	if loaded.MetricsAddr != "" {
		metricsServer = serveMetrics(loaded.MetricsAddr, reg, log)
	}

	engine := trading.New(trading.Options{
		Limits:    loaded.Risk,
		Delegator: order.NewLogDelegator(log),
		Logger:    log,
		Metrics:   metrics,
		Interval:  loaded.EngineInterval,
	})
	subscribeLogs(engine, log)
	if err := engine.Start(); err != nil {
		fatalf(log, "engine start failed: %+v", err)
	}

	var fetcher marketdata.Fetcher = marketdata.NewHTTPFetcher(&http.Client{Timeout: loaded.HTTPTimeout})
	if faults := (chaos.Config{
		Seed:        *chaosSeed,
		FailRate:    *chaosFailRate,
		CorruptRate: *chaosCorruptRate,
		MaxDelay:    *chaosMaxDelay,
	}); faults.Enabled() {
		fetcher, err = chaos.NewFetcher(fetcher, faults)
		if err != nil {
			fatalf(log, "chaos config invalid: %+v", err)
		}
		log.Warnf("market data fault injection enabled: %+v", faults)
	}

	client := marketdata.NewClient(loaded.MarketData, marketdata.Options{
		Fetcher: fetcher,
		Logger:  log,
		Metrics: metrics,
	})
	quotes := bridge.NewQuoteBridge(engine, client, log)
	if loaded.MarketData.BaseURL != "" {
		quotes.Start(loaded.WatchSymbols, loaded.PollInterval)
	} else {
		log.Warnf("market data base url is empty, quote bridge disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if *configPath != "" && *configReload > 0 {
		go watchConfig(ctx, *configPath, configMod, *configReload, log, func(next ops.Loaded) {
			applyReload(engine, quotes, client, loaded, next, log)
			loaded = next
		})
	}

	log.Infof("trader running, symbols: %v", quotes.Symbols())
	<-sys.Shutdown()
	log.Infof("shutting down")

	cancel()
	quotes.Stop()
	client.Close()
	engine.Stop()

	if metricsServer != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("metrics server shutdown, err: %+v", err)
		}
		done()
	}

	snapshot := metrics.Snapshot()
	status := engine.Status("")
	log.Infof("final status: %s %v exposure=%g", status.Summary, status.Positions, status.Exposure)
	if book, err := sonic.ConfigStd.Marshal(engine.Snapshot()); err == nil {
		log.Infof("final book: %s", book)
	}
	log.Infof("metrics: risk_eval=%+v fetch=%+v", snapshot.RiskEvalLatency, snapshot.FetchLatency)
}

func fatalf(log logger.Logger, format string, args ...any) {
	log.Errorf(format, args...)
	os.Exit(1)
}

func startProfiler(addr string, log logger.Logger) (*pyroscope.Profiler, error) {
	host, _ := os.Hostname()
	return pyroscope.Start(pyroscope.Config{
		ApplicationName: "memecoinbot.trader",
		ServerAddress:   addr,
		Tags: map[string]string{
			"host": host,
		},
		Logger: log,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
}

func serveMetrics(addr string, reg *prometheus.Registry, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server, err: %+v", err)
		}
	}()
	log.Infof("metrics listening on %s", addr)
	return srv
}

func subscribeLogs(engine *trading.Engine, log logger.Logger) {
	engine.SubscribeToTradeUpdates(func(u trading.TradeUpdate) {
		if u.Success {
			log.Infof("trade %s: %s", u.OrderID, u.Message)
			return
		}
		log.Warnf("trade %s: %s", u.OrderID, u.Message)
	})
	engine.SubscribeToAlerts(func(a trading.AlertUpdate) {
		log.Warnf("%s: %s", a.Title, a.Body)
	})
	engine.SubscribeToStatusUpdates(func(r trading.StatusReport) {
		log.Debugf("%s %v exposure=%g", r.Summary, r.Positions, r.Exposure)
	})
}

// applyReload pushes the reloadable parts of next into the running components.
func applyReload(engine *trading.Engine, quotes *bridge.QuoteBridge, client *marketdata.Client, prev, next ops.Loaded, log logger.Logger) {
	if next.Risk != prev.Risk {
		engine.UpdateRiskLimits(next.Risk)
		log.Infof("risk limits updated: %+v", next.Risk)
	}
	if next.MarketData.Retry != prev.MarketData.Retry {
		client.SetRetryPolicy(next.MarketData.Retry)
	}
	if next.MarketData.BaseURL == "" {
		return
	}
	if !slices.Equal(next.WatchSymbols, prev.WatchSymbols) || next.PollInterval != prev.PollInterval {
		if len(next.WatchSymbols) == 0 {
			quotes.Stop()
		} else {
			quotes.Start(next.WatchSymbols, next.PollInterval)
		}
		log.Infof("watch list updated: %v", quotes.Symbols())
	}
}

// configModTime returns the mtime of path, zero when it cannot be read.
// Taken before the startup load so an edit racing the load is reloaded.
func configModTime(path string) time.Time {
	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// watchConfig reloads path whenever its mtime moves past lastMod.
func watchConfig(ctx context.Context, path string, lastMod time.Time, interval time.Duration, log logger.Logger, update func(ops.Loaded)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				log.Warnf("config stat failed, err: %+v", err)
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			loaded, err := ops.Load(path)
			if err != nil {
				log.Errorf("config reload failed, err: %+v", err)
				continue
			}
			update(loaded)
			lastMod = info.ModTime()
			log.Infof("config reloaded: %s", path)
		}
	}
}
