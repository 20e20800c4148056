package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/okian/duckhunt/internal/adapters/announce"
	"github.com/okian/duckhunt/internal/adapters/http/api"
	"github.com/okian/duckhunt/internal/adapters/http/swagger"
	"github.com/okian/duckhunt/internal/adapters/persistence"
	app "github.com/okian/duckhunt/internal/app"
	"github.com/okian/duckhunt/internal/config"
	"github.com/okian/duckhunt/pkg/logger"
	"github.com/okian/duckhunt/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(logger.Format(cfg.LogFormat))); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log, nil); err != nil {
		log.Error(ctx, "duck hunt exited", logger.Error(err))
		os.Exit(1)
	}
}

// run starts the engine and the HTTP server and blocks until ctx is done.
// A nil listener binds cfg.Addr.
func run(ctx context.Context, cfg *config.Config, log logger.Logger, ln net.Listener) error {
	mm := metrics.Setup(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithMetricsEnabled(cfg.Metrics.Enabled),
		metrics.WithRefreshInterval(time.Duration(cfg.Metrics.RefreshIntervalSeconds)*time.Second))

	store, err := persistence.Open(ctx, cfg.Persistence.Backend, cfg.Persistence.Path, cfg.Persistence.Compress,
		persistence.WithMaxAttempts(cfg.Persistence.MaxAttempts),
		persistence.WithDelays(
			time.Duration(cfg.Persistence.BaseDelayMS)*time.Millisecond,
			time.Duration(cfg.Persistence.MaxDelayMS)*time.Millisecond),
		persistence.WithLogger(log.Named("persistence")))
	if err != nil {
		return fmt.Errorf("open persistence: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "closing persistence failed", logger.Error(err))
		}
	}()

	hub := announce.NewHub(log.Named("feed"))
	svc, err := app.New(cfg, store,
		app.WithLogger(log),
		app.WithSender(announce.Multi(announce.NewLogSender(log.Named("announce")), hub)))
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		if errors.Is(err, persistence.ErrCorruptSnapshot) {
			return fmt.Errorf("refusing to start over a corrupt snapshot at %s: %w", cfg.Persistence.Path, err)
		}
		return err
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	api.NewServer(svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithFeed(hub.Handler()),
		api.WithLogger(log.Named("http")),
	).Register(ctx, mux)
	swagger.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		var err error
		if ln != nil {
			err = srv.Serve(ln)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		runMetricsUpdaters(gctx, svc, mm.RefreshInterval())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("service stop: %w", err))
		}
		log.Info(ctx, "server stopped")
		return errors.Join(errs...)
	})
	return g.Wait()
}

// runMetricsUpdaters refreshes the system and service gauges every interval
// until ctx is done.
func runMetricsUpdaters(ctx context.Context, svc *app.Service, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			updateSystemMetrics()
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	metrics.UpdateQueueSize(stats.QueueLength)
	metrics.UpdateLiveDucks(stats.LiveDucks)
	metrics.UpdatePlayers(stats.Players)
}
