package main

import (
	"context"
	"log"

	"wagewatch/pipeline/internal/cache"
	cacheredis "wagewatch/pipeline/internal/cache/redis"
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

	target, err := pipeline.OpenTargetStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to target store", zap.Error(err))
	}
	defer target.Close()

	wageCache := cacheredis.New(cache.Options{
		RedisURL:      cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DefaultTTL:    cfg.CacheTTL,
	})
	defer wageCache.Close()

	publisher, err := events.NewPublisher(cfg.NATSURL, cfg.NATSConnTimeout, logger)
	if err != nil {
		logger.Warn("NATS unavailable, run summaries will not be published", zap.Error(err))
		publisher = nil
	}
	if publisher != nil {
		defer publisher.Close()
	}

	p := pipeline.New(nil, target.Conn(), wageCache, publisher, cfg, logger)

	summary, err := p.RunRepair(ctx)
	logger.Info("repair run finished",
		zap.Int("checked", summary.Checked),
		zap.Int("fixed", summary.Fixed),
		zap.Int("no_match", summary.NoMatch),
		zap.Int("write_errors", summary.WriteErrors))
	if err != nil {
		logger.Fatal("repair run failed", zap.Error(err))
	}
}
