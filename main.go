package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Black-And-White-Club/tourney-bot/app"
	"github.com/Black-And-White-Club/tourney-bot/app/observability"
	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"github.com/Black-And-White-Club/tourney-bot/config"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.New(observability.Config{
		Environment:    cfg.Observability.Environment,
		MetricsAddress: cfg.Observability.MetricsAddress,
		LogLevel:       cfg.Observability.LogLevel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}
	logger := obs.Logger

	ctx, stop := app.WaitForShutdown(context.Background())
	defer stop()

	application, err := app.NewApp(ctx, cfg, obs)
	if err != nil {
		logger.Error("Failed to initialize app", attr.Error(err))
		os.Exit(1)
	}

	runErr := application.Start(ctx)
	logger.Info("Shutting down application")

	if err := application.Close(); err != nil || runErr != nil {
		os.Exit(1)
	}
	logger.Info("Application shut down gracefully")
}
