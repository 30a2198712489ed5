package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"categorizer/internal/classifier"
	"categorizer/internal/config"
	"categorizer/internal/handler"
	"categorizer/internal/notifier"
	"categorizer/internal/orchestrator"
	"categorizer/internal/repository"
	"categorizer/internal/server"
	"categorizer/internal/storage"
	"categorizer/internal/watcher"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Dev bootstrap only; the categories/examples schema is owned by
	// the main application.
	if cfg.Database.Migrate {
		repository.MigrateDB(db, logger)
	}

	store := repository.NewCategoryStore(db, logger)

	files, err := storage.New(cfg.Model.Dir)
	if err != nil {
		logger.Fatal("Failed to prepare model directory", zap.Error(err))
	}

	// Optional Telegram notifier for training completions/failures
	var notify orchestrator.Notifier
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		tg, err := notifier.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Warn("Failed to initialize Telegram notifier, continuing without it", zap.Error(err))
		} else {
			notify = tg
		}
	}

	fullParams, incParams := trainerParams(cfg)
	orch := orchestrator.New(store, files, fullParams, incParams, notify, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Train from scratch or load the persisted model and catch up on
	// examples that arrived while the process was down. A store outage
	// here is survivable; predictions report "not ready" until a
	// retrain succeeds.
	if err := orch.Initialize(ctx); err != nil {
		logger.Warn("Initialization incomplete, serving without a trained model", zap.Error(err))
	}

	// Run the staleness watcher in a goroutine
	w := watcher.New(orch, time.Duration(cfg.Watcher.IntervalSeconds)*time.Second, cfg.Watcher.NewExamplesThreshold, logger)
	go w.Run(ctx)

	// Initialize and run the server
	h := handler.NewCategorizerHandler(orch, logger)
	srv := server.NewServer(h, logger)
	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Application stopped.")
}

// trainerParams maps config onto the full and incremental training
// profiles. The profiles share everything except the epoch count.
func trainerParams(cfg *config.Config) (classifier.Params, classifier.Params) {
	full := classifier.FullParams()
	full.LR = cfg.Trainer.LR
	full.Epochs = cfg.Trainer.Epoch
	full.WordNGrams = cfg.Trainer.WordNGrams
	full.Dim = cfg.Trainer.Dim

	inc := full
	inc.Epochs = cfg.Trainer.IncrementalEpoch
	return full, inc
}
