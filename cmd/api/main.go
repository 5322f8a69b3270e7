package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paymint-app/paymint-backend/api/routes"
	"github.com/paymint-app/paymint-backend/internal/accounts"
	"github.com/paymint-app/paymint-backend/internal/funds"
	"github.com/paymint-app/paymint-backend/internal/ledger"
	"github.com/paymint-app/paymint-backend/internal/users"
	"github.com/paymint-app/paymint-backend/pkg/config"
	"github.com/paymint-app/paymint-backend/pkg/db"
	"github.com/paymint-app/paymint-backend/pkg/logger"
	"github.com/paymint-app/paymint-backend/pkg/metrics"
	"github.com/paymint-app/paymint-backend/pkg/migrate"
	"github.com/paymint-app/paymint-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	fundsMetrics := metrics.NewFundsMetrics(registry)

	accountsRepo := accounts.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())

	accountsService, err := accounts.NewService(accountsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	feeRate, err := cfg.Wallet.Rate()
	if err != nil {
		logg.Error(context.Background(), "invalid wallet fee rate", err)
		os.Exit(1)
	}
	feeCalc, err := funds.NewFeeCalculator(feeRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create fee calculator", err)
		os.Exit(1)
	}
	fundsService, err := funds.NewService(funds.Deps{
		Runner:   dbClient,
		Accounts: accountsRepo,
		Entries:  ledgerRepo,
		Fees:     feeCalc,
		Metrics:  fundsMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create funds service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:           usersRepo,
		Accounts:       accountsService,
		Runner:         dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Users:    usersService,
			Accounts: accountsService,
			Ledger:   ledgerService,
			Funds:    fundsService,
			Metrics:  registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
