package pipeline

import (
	"context"

	"wagewatch/pipeline/internal/config"
	"wagewatch/pipeline/internal/store"

	"go.uber.org/zap"
)

// OpenStores connects to the external source store and the local target
// store. Callers own closing both.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (source, target *store.Database, err error) {
	source, err = store.New(ctx, store.Options{
		DSN:             cfg.SourceClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.SourceClickHouseUsername,
		Password:        cfg.SourceClickHousePassword,
		Database:        cfg.SourceClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	target, err = OpenTargetStore(ctx, cfg, logger)
	if err != nil {
		_ = source.Close()
		return nil, nil, err
	}
	return source, target, nil
}

// OpenTargetStore connects to the local target store only, for jobs that
// never touch the source side.
func OpenTargetStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store.Database, error) {
	return store.New(ctx, store.Options{
		DSN:             cfg.TargetClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.TargetClickHouseUsername,
		Password:        cfg.TargetClickHousePassword,
		Database:        cfg.TargetClickHouseDatabase,
	}, logger)
}
