package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/medfocus/studycore/internal/api"
	"github.com/medfocus/studycore/internal/config"
	"github.com/medfocus/studycore/internal/logging"
	"github.com/medfocus/studycore/internal/progress"
	"github.com/medfocus/studycore/internal/storage"
	"github.com/medfocus/studycore/internal/study"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "medfocus: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// 1. Load configuration from defaults, file, environment and flags
	cfg, err := config.Load(config.Flags("medfocus"), args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// 2. Open the database
	db, err := storage.Open(cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "dsn", cfg.DB.DSN)

	// 3. Wire the ledger, the study service and the HTTP server
	ledgerCfg, err := cfg.LedgerConfig()
	if err != nil {
		return err
	}
	ledger := progress.NewLedger(db, ledgerCfg, logger)
	svc := study.NewService(db, ledger, cfg.SchedulerParams(), ledgerCfg.Location, logger)
	srv := api.NewServer(svc, ledger, db, cfg.Progress.HistoryLimit, logger)

	// 4. Serve until interrupted, then drain in-flight requests
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTP.Addr, "timezone", cfg.Progress.Timezone)
		errc <- srv.Start(cfg.HTTP.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return <-errc
}
