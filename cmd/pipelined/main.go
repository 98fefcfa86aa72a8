package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"wagewatch/pipeline/internal/cache"
	cacheredis "wagewatch/pipeline/internal/cache/redis"
	"wagewatch/pipeline/internal/config"
	"wagewatch/pipeline/internal/events"
	"wagewatch/pipeline/internal/pipeline"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newNATSConnection(cfg *config.Config) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("wagewatch-pipelined"),
		nats.RetryOnFailedConnect(true),
	}
	return nats.Connect(cfg.NATSURL, opts...)
}

func newCache(cfg *config.Config) cache.Cache {
	return cacheredis.New(cache.Options{
		RedisURL:      cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		DefaultTTL:    cfg.CacheTTL,
	})
}

func newPublisher(nc *nats.Conn, logger *zap.Logger) *events.Publisher {
	return events.NewPublisherFromConn(nc, logger)
}

func newPipeline(cfg *config.Config, logger *zap.Logger, publisher *events.Publisher, c cache.Cache, lc fx.Lifecycle) (*pipeline.Pipeline, error) {
	source, target, err := pipeline.OpenStores(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := source.Close(); err != nil {
				return err
			}
			return target.Close()
		},
	})

	return pipeline.New(source.Conn(), target.Conn(), c, publisher, cfg, logger), nil
}

func newHandler(logger *zap.Logger, nc *nats.Conn, p *pipeline.Pipeline) *events.Handler {
	return events.NewHandler(logger, nc, p)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	shutdownTracer, err := telemetry.InitTracer(context.Background(), "wagewatch-pipelined", cfg.OTLPCollectorURL)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
	} else {
		defer shutdownTracer()
	}

	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newCache,
			newPublisher,
			newPipeline,
			newHandler,
		),
		fx.Invoke(
			func(handler *events.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
