package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/foldermap/foldermap/internal/api"
	"github.com/foldermap/foldermap/internal/config"
	"github.com/foldermap/foldermap/internal/db"
	"github.com/foldermap/foldermap/internal/scan"
	"github.com/foldermap/foldermap/internal/scheduler"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// ── Logging (initial — overridden below once config is loaded) ─────────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("foldermap starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"db_path", cfg.DBPath,
		"default_root", cfg.DefaultRoot)

	// ── Database ───────────────────────────────────────────────────────────
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database); err != nil {
		slog.Error("run migrations", "error", err)
		os.Exit(1)
	}

	// Mark any scans that were 'running' when the last process exited.
	if err := scan.MarkStaleScansFailed(database); err != nil {
		slog.Warn("mark stale scans", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Scan manager & tracker ─────────────────────────────────────────────
	mgr := scan.NewManager(database, scan.Config{
		Walkers:       cfg.ScanWorkers.Walkers,
		ProgressEvery: cfg.ProgressEvery,
	})
	tracker := scan.NewTracker(mgr)
	go tracker.Run(ctx, mgr.Events())

	// ── Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New()
	if !cfg.ScanPaused && cfg.RescanSchedule != "" && cfg.DefaultRoot != "" {
		if err := sched.SetJob(cfg.RescanSchedule, func() {
			slog.Info("scheduled rescan triggered", "root", cfg.DefaultRoot)
			if _, err := mgr.Start(context.Background(), cfg.DefaultRoot, "schedule"); err != nil {
				slog.Warn("scheduled rescan start", "error", err)
			}
		}); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.RescanSchedule, "error", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	srv := api.New(cfg.HTTPAddr, database, cfg, mgr, tracker, sched, version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("foldermap stopped")
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
