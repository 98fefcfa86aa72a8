package main

import (
	"context"
	"log"

	"wagewatch/pipeline/internal/config"
	"wagewatch/pipeline/internal/events"
	"wagewatch/pipeline/internal/pipeline"

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

	ctx := context.Background()

	source, target, err := pipeline.OpenStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to stores", zap.Error(err))
	}
	defer source.Close()
	defer target.Close()

	publisher, err := events.NewPublisher(cfg.NATSURL, cfg.NATSConnTimeout, logger)
	if err != nil {
		logger.Warn("NATS unavailable, run summaries will not be published", zap.Error(err))
		publisher = nil
	}
	if publisher != nil {
		defer publisher.Close()
	}

	p := pipeline.New(source.Conn(), target.Conn(), nil, publisher, cfg, logger)

	summaries, err := p.RunSync(ctx)
	for _, s := range summaries {
		logger.Info("pair reconciled",
			zap.String("source", s.SourceTable),
			zap.String("target", s.TargetTable),
			zap.String("strategy", s.Strategy),
			zap.Int("source_records", s.SourceRecords),
			zap.Int("inserted", s.Inserted),
			zap.Int("batch_errors", s.BatchErrors))
	}
	if err != nil {
		logger.Fatal("sync run failed", zap.Error(err))
	}
}
