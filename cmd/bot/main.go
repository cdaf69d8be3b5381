package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/team-assistant/internal/ai"
	"github.com/xaenox/team-assistant/internal/bot"
	"github.com/xaenox/team-assistant/internal/linear"
	"github.com/xaenox/team-assistant/internal/query"
	"github.com/xaenox/team-assistant/internal/storage"
	"github.com/xaenox/team-assistant/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage")
		dbConfig := storage.DatabaseConfig{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			User:        cfg.Database.User,
			Password:    cfg.Database.Password,
			DBName:      cfg.Database.DBName,
			SSLMode:     cfg.Database.SSLMode,
			UseInMemory: cfg.Database.UseInMemory,
		}
		store, err = storage.NewPostgresStorage(dbConfig, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Model client and the query pipeline
	client := ai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout, logger)
	executor := query.NewExecutor(store.DB(), cfg.Assistant.QueryTimeout, logger)
	enricher := query.NewEnricher(executor, logger)
	agent := ai.NewAgent(client, executor, enricher, logger)

	// Task tracker, optional. Assigned only when configured so the bot's
	// nil check stays meaningful.
	var tracker bot.TaskTracker
	if cfg.Linear.APIKey != "" {
		linearClient := linear.NewClient(cfg.Linear.APIKey, cfg.Linear.TeamMapping, cfg.Linear.Timeout, logger)
		teamCtx, cancel := context.WithTimeout(context.Background(), cfg.Linear.Timeout)
		if teams, err := linearClient.Teams(teamCtx); err != nil {
			logger.Warn("Linear team check failed", zap.Error(err))
		} else {
			logger.Info("Linear connected", zap.Int("teams", len(teams)))
		}
		cancel()
		tracker = linearClient
	} else {
		logger.Warn("Linear API key not set, task creation disabled")
	}

	assistant, err := bot.New(cfg.Telegram.Token, store, client, agent,
		executor, enricher, tracker, cfg.Telegram.AdminUserID, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return assistant.Start(ctx)
	})
	g.Go(func() error {
		return assistant.RunReminders(ctx, cfg.Assistant.ReminderInterval, cfg.Assistant.ReminderMinAge)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal("Bot stopped", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}
