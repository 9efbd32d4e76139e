package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nforsman/scandir/internal/api"
	"github.com/nforsman/scandir/internal/config"
	"github.com/nforsman/scandir/internal/db"
	"github.com/nforsman/scandir/internal/scans"
	"github.com/nforsman/scandir/internal/scheduler"
)

// NewServeCommand creates the serve subcommand.
func NewServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan service",
		Long: `Serve runs the long-lived scan service: scheduled scans over the
configured roots, scan history in SQLite, and an HTTP API for control
and queries.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")

	return cmd
}

func runServe(configPath string) error {
	// Initial logging; re-configured below once config is loaded.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("scandir starting",
		"version", Version,
		"log_level", cfg.LogLevel,
		"http_addr", cfg.HTTPAddr,
		"db_path", cfg.DBPath,
		"scan_roots", cfg.ScanRoots)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Mark any scans that were 'running' when the last process exited.
	if err := scans.MarkStaleFailed(database); err != nil {
		slog.Warn("mark stale scans", "error", err)
	}

	mgr := scans.NewManager(database, cfg.ScanRoots, cfg.Scan.Options(false))

	sched := scheduler.New(mgr)
	if cfg.Schedule != "" {
		if err := sched.ScheduleScan(cfg.Schedule, cfg.ScanPaused); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
	}
	if err := sched.SchedulePurge(cfg.RetentionDays); err != nil {
		slog.Warn("failed to register purge job", "error", err)
	}
	sched.Start()
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.HTTPAddr, database, cfg, mgr, sched, Version)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	slog.Info("scandir stopped")
	return nil
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
