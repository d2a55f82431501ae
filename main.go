package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/finledger/qbo-connector/apps/quickbooks"
	"github.com/finledger/qbo-connector/crons"
	"github.com/finledger/qbo-connector/db"
	"github.com/finledger/qbo-connector/handler"
	"github.com/finledger/qbo-connector/pkg/logger"
	"github.com/finledger/qbo-connector/pkg/monitor"
	"github.com/finledger/qbo-connector/pkg/prometheus"
	"github.com/finledger/qbo-connector/pkg/utils"
	"github.com/finledger/qbo-connector/router"
)

func main() {
	defer logger.Sync()
	ctx := context.Background()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger.InitForLevel(utils.GetEnvWithDefault("LOG_LEVEL", "info"))
	monitor.InitRegistry()
	prometheus.InitMetrics()

	cfg, err := quickbooks.ConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "invalid configuration", logger.ErrorField(err))
		os.Exit(1)
	}

	store, err := db.Connect(ctx)
	if err != nil {
		logger.Error(ctx, "failed to connect to database", logger.ErrorField(err))
		os.Exit(1)
	}
	if err := store.Migrate(); err != nil {
		logger.Error(ctx, "failed to migrate database", logger.ErrorField(err))
		os.Exit(1)
	}

	tokens := quickbooks.NewTokenManager(cfg)

	// Resume the most recently connected company across restarts.
	if pair, err := store.Tokens.Latest(); err == nil {
		tokens.Set(pair)
		logger.Info(ctx, "resumed quickbooks connection", logger.String("realm_id", pair.RealmID))
	}

	client := quickbooks.NewClient(cfg, tokens)

	refresher := crons.NewRefreshManager(tokens, store)
	refresher.Start()
	defer refresher.Stop()

	h := handler.NewQuickbooksHandler(cfg, tokens, client, store)

	if err := router.StartServer(h, getAddress()); err != nil {
		logger.Error(ctx, "server stopped", logger.ErrorField(err))
		os.Exit(1)
	}
}

func getAddress() string {
	if port := os.Getenv("PORT"); port != "" {
		return ":" + port
	}
	return ":8005"
}
