package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"PowerPosition/internal/calculator"
	"PowerPosition/internal/clock"
	"PowerPosition/internal/collector"
	"PowerPosition/internal/config"
	"PowerPosition/internal/exporter"
	"PowerPosition/internal/job"
	"PowerPosition/internal/logger"
	"PowerPosition/internal/metrics"
	"PowerPosition/internal/notifier"
	"PowerPosition/internal/recorder"
	"PowerPosition/internal/scheduler"
	"PowerPosition/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("PowerPosition failed")
	}
}

func run() error {
	// Load config
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)
	l.Info().Str("config", cfgPath).Msg("PowerPosition starting")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	a, err := newApp(cfg, l, clock.System())
	if err != nil {
		return err
	}
	defer a.close()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.run(ctx)
}

// app holds the wired service.
type app struct {
	log      zerolog.Logger
	rec      recorder.Recorder
	sched    *scheduler.Scheduler
	srv      *server.Server
	tn       *notifier.TelegramNotifier
	commands *job.Commands
}

func newApp(cfg *config.Config, l zerolog.Logger, clk clock.Clock) (a *app, err error) {
	loc, err := calculator.LoadZone(cfg.Report.TimeZone)
	if err != nil {
		return nil, err
	}

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.DataSource.BaseURL != "" {
		fetcher = collector.NewHTTPFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	} else {
		fetcher = collector.NewSimulatedFetcher(loc, cfg.DataSource.FailureRate, time.Now().UnixNano())
	}
	l.Info().Str("source", fetcher.Name()).Msg("Data source selected")

	col := collector.NewCollector(fetcher, collector.RetryPolicy{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  cfg.Retry.BaseDelay,
	}, clk, l)

	exp, err := exporter.New(cfg.Report.ExportDir)
	if err != nil {
		return nil, fmt.Errorf("init exporter: %w", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, l)
		if err != nil {
			l.Warn().Err(err).Msg("Init SQLite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer func() {
		if err != nil {
			rec.Close()
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mr := metrics.New(reg)

	// Init Telegram notifier
	var tn *notifier.TelegramNotifier
	var alerter job.Alerter
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, l)
		alerter = tn
	}

	reportJob, err := job.New(job.Deps{
		Collector: col,
		Exporter:  exp,
		Recorder:  rec,
		Metrics:   mr,
		Alerter:   alerter,
		Location:  loc,
		Clock:     clk,
		Log:       l,
	})
	if err != nil {
		return nil, fmt.Errorf("init report job: %w", err)
	}

	sched, err := scheduler.New(cfg.Report.Schedule, clk, reportJob.Run, l,
		scheduler.WithRunOnStart(cfg.Report.RunOnStart))
	if err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	a = &app{log: l, rec: rec, sched: sched, tn: tn}
	if cfg.HTTP.Enabled {
		a.srv = server.New(server.Config{Addr: cfg.HTTP.Addr, Log: l, Gatherer: reg, Recorder: rec})
	}
	if tn != nil {
		a.commands = &job.Commands{Recorder: rec, Next: sched.Next, Clock: clk, Location: loc}
	}
	return a, nil
}

// run blocks until ctx is done or a component fails, then waits for in-flight runs.
func (a *app) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.sched.Start(gctx)
	})

	if a.srv != nil {
		g.Go(a.srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return a.srv.Shutdown(shutdownCtx)
		})
	}

	if a.tn != nil {
		g.Go(func() error {
			a.tn.StartPolling(gctx, a.commands.Handle)
			return nil
		})
	}

	a.log.Info().Msg("PowerPosition is running. Press Ctrl+C to stop.")

	err := g.Wait()
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		err = nil
	}

	a.log.Info().Msg("Waiting for in-flight runs")
	a.sched.Wait()
	a.log.Info().Msg("PowerPosition stopped")
	return err
}

func (a *app) close() error {
	return a.rec.Close()
}
