package main

import (
	"context"
	"log"
	"os"

	"wagewatch/pipeline/internal/config"
	"wagewatch/pipeline/internal/loader"
	"wagewatch/pipeline/internal/pipeline"
	"wagewatch/pipeline/internal/store"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			log.Printf("failed to sync logger: %v", err)
		}
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	path := cfg.WageSurveyPath
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	ctx := context.Background()

	target, err := pipeline.OpenTargetStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to target store", zap.Error(err))
	}
	defer target.Close()

	wages, err := store.NewWageStore(target.Conn(), "wage_reference", logger)
	if err != nil {
		logger.Fatal("failed to open wage store", zap.Error(err))
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Fatal("failed to open survey file", zap.String("path", path), zap.Error(err))
	}
	defer file.Close()

	logger.Info("importing wage survey", zap.String("path", path))

	summary, err := loader.New(wages, cfg.WageLoadBatch, logger).LoadCSV(ctx, file)
	if err != nil {
		logger.Fatal("wage survey import failed", zap.Error(err))
	}

	logger.Info("wage survey replaced",
		zap.Int("loaded", summary.Loaded),
		zap.Int("skipped", summary.Skipped))
}
