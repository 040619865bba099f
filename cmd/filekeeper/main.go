package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mzolotarev/filekeeper/internal/bot"
	"github.com/mzolotarev/filekeeper/internal/config"
	"github.com/mzolotarev/filekeeper/internal/logging"
	"github.com/mzolotarev/filekeeper/internal/storage/sqlite"
	"github.com/mzolotarev/filekeeper/internal/telegram"
)

func main() {
	log := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Error(ctx, "filekeeper", "error", err)
		stop()
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup survives the error paths; main
// exits exactly once.
func run(ctx context.Context, log logging.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	client, err := telegram.New(cfg.Token, cfg.Debug, log)
	if err != nil {
		return err
	}

	return bot.NewApp(cfg, log, store, client).Run(ctx)
}
