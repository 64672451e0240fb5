package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/basket/tasklist/internal/bus"
	"github.com/basket/tasklist/internal/config"
	otelPkg "github.com/basket/tasklist/internal/otel"
	"github.com/basket/tasklist/internal/persistence"
	"github.com/basket/tasklist/internal/tasks"
	"github.com/basket/tasklist/internal/telemetry"
)

// startupError tags a setup failure with the reason code fatalStartup logs.
type startupError struct {
	code string
	err  error
}

func (e *startupError) Error() string { return e.code + ": " + e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

// appRuntime is everything a command needs to read or change the list.
type appRuntime struct {
	cfg    config.Config
	logger *slog.Logger
	bus    *bus.Bus
	otel   *otelPkg.Provider
	db     *persistence.Store
	tasks  *tasks.Store

	closers []func() error
}

// openRuntime loads config and opens the store. quiet keeps logs and
// stdout spans out of the terminal.
func openRuntime(ctx context.Context, quiet bool) (rt *appRuntime, err error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, &startupError{"E_CONFIG_LOAD", err}
	}
	rt = &appRuntime{cfg: cfg}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, quiet)
	if err != nil {
		return rt, &startupError{"E_LOGGER_INIT", err}
	}
	rt.closers = append(rt.closers, closer.Close)
	slog.SetDefault(logger)
	rt.logger = logger
	logger.Info("startup phase", "phase", "config_loaded", "home", cfg.HomeDir, "version", Version)

	rt.bus = bus.New()

	otelCfg := cfg.OTel
	if quiet && otelCfg.Enabled && (otelCfg.Exporter == "stdout" || otelCfg.Exporter == "") {
		f, err := os.OpenFile(filepath.Join(cfg.LogsDir(), "traces.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return rt, &startupError{"E_OTEL_INIT", err}
		}
		rt.closers = append(rt.closers, f.Close)
		otelCfg.Writer = f
	}
	provider, err := otelPkg.Init(ctx, otelCfg)
	if err != nil {
		return rt, &startupError{"E_OTEL_INIT", err}
	}
	rt.otel = provider
	rt.closers = append(rt.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return provider.Shutdown(shutdownCtx)
	})
	metrics, err := otelPkg.NewMetrics(provider.Meter)
	if err != nil {
		return rt, &startupError{"E_OTEL_INIT", err}
	}

	db, err := persistence.Open(cfg.DBPath, rt.bus)
	if err != nil {
		return rt, &startupError{"E_STORE_OPEN", err}
	}
	rt.db = db
	rt.closers = append(rt.closers, db.Close)
	logger.Info("startup phase", "phase", "schema_migrated", "db_path", cfg.DBPath)

	store, err := tasks.Open(ctx, tasks.Options{
		Storage:  db,
		Key:      cfg.StorageKey,
		PageSize: cfg.DefaultPageSize,
		Logger:   logger,
		Bus:      rt.bus,
		Tracer:   provider.Tracer,
		Metrics:  metrics,
	})
	if err != nil {
		return rt, &startupError{"E_TASKS_OPEN", err}
	}
	rt.tasks = store
	logger.Info("startup phase", "phase", "tasks_loaded", "total", store.Counts().Total)
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *appRuntime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && rt.logger != nil {
			rt.logger.Warn("shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}

// openOrReport opens the runtime for a subcommand, printing any failure.
func openOrReport(ctx context.Context) (*appRuntime, bool) {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		var se *startupError
		if errors.As(err, &se) {
			fmt.Fprintf(os.Stderr, "tasklist: %v (%s)\n", se.err, se.code)
		} else {
			fmt.Fprintf(os.Stderr, "tasklist: %v\n", err)
		}
		return nil, false
	}
	return rt, true
}
