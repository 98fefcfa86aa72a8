package pipeline

import (
	"context"

	"wagewatch/pipeline/internal/cache"
	"wagewatch/pipeline/internal/config"
	"wagewatch/pipeline/internal/events"
	"wagewatch/pipeline/internal/repair"
	"wagewatch/pipeline/internal/resolver"
	"wagewatch/pipeline/internal/store"
	"wagewatch/pipeline/internal/sync"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline")

// Pipeline owns the two store connections and runs the sync and repair
// jobs over them. Runs are sequential; the caller serializes them.
type Pipeline struct {
	sourceConn clickhouse.Conn
	targetConn clickhouse.Conn
	cache      cache.Cache
	publisher  *events.Publisher
	config     *config.Config
	logger     *zap.Logger
}

func New(sourceConn, targetConn clickhouse.Conn, c cache.Cache, publisher *events.Publisher, cfg *config.Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		sourceConn: sourceConn,
		targetConn: targetConn,
		cache:      c,
		publisher:  publisher,
		config:     cfg,
		logger:     logger,
	}
}

// RunSync reconciles every configured table pair in order. A fatal fetch
// error stops the run at that pair; summaries for completed pairs are
// still reported and published.
func (p *Pipeline) RunSync(ctx context.Context) ([]sync.Summary, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.RunSync")
	defer span.End()

	opts := sync.Options{
		PageSize:          p.config.SyncPageSize,
		InsertBatchSize:   p.config.InsertBatchSize,
		FetchRetries:      p.config.FetchRetries,
		RetryDelay:        p.config.RetryDelay,
		PreserveSourceIDs: p.config.PreserveSourceIDs,
	}

	var summaries []sync.Summary
	for _, pair := range p.config.TablePairs {
		source, err := store.NewJobStore(p.sourceConn, pair.SourceTable, p.logger)
		if err != nil {
			span.RecordError(err)
			return summaries, err
		}
		target, err := store.NewJobStore(p.targetConn, pair.TargetTable, p.logger)
		if err != nil {
			span.RecordError(err)
			return summaries, err
		}

		var reconciler sync.Reconciler = sync.ExactID{}
		if pair.Mode == config.SyncModeCountDeficit {
			reconciler = sync.CountDeficit{}
		}

		summary, err := sync.New(source, target, reconciler, opts, p.logger).Run(ctx)
		if err != nil {
			span.RecordError(err)
			p.publishSync(ctx, summaries)
			return summaries, err
		}
		summaries = append(summaries, summary)
	}

	p.publishSync(ctx, summaries)
	return summaries, nil
}

// RunRepair walks still-default postings in the target store and refines
// their wage tiers.
func (p *Pipeline) RunRepair(ctx context.Context) (repair.Summary, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.RunRepair")
	defer span.End()

	jobs, err := store.NewJobStore(p.targetConn, "jobs", p.logger)
	if err != nil {
		span.RecordError(err)
		return repair.Summary{}, err
	}
	wages, err := store.NewWageStore(p.targetConn, "wage_reference", p.logger)
	if err != nil {
		span.RecordError(err)
		return repair.Summary{}, err
	}

	tierResolver := resolver.New(wages, p.cache, p.config.CacheTTL, p.logger)
	driver := repair.NewDriver(jobs, tierResolver, repair.Options{
		PageSize:     p.config.RepairPageSize,
		RecordCap:    p.config.RepairRecordCap,
		FetchRetries: p.config.FetchRetries,
		RetryDelay:   p.config.RetryDelay,
	}, p.logger)

	summary, err := driver.Run(ctx)
	if err != nil {
		span.RecordError(err)
		return summary, err
	}

	if p.publisher != nil {
		if perr := p.publisher.PublishRepairCompleted(ctx, summary); perr != nil {
			p.logger.Warn("failed to publish repair summary", zap.Error(perr))
		}
	}
	return summary, nil
}

func (p *Pipeline) publishSync(ctx context.Context, summaries []sync.Summary) {
	if p.publisher == nil || len(summaries) == 0 {
		return
	}
	if err := p.publisher.PublishSyncCompleted(ctx, summaries); err != nil {
		p.logger.Warn("failed to publish sync summaries", zap.Error(err))
	}
}
