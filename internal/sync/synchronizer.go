package sync

import (
	"context"
	"time"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline/sync")

// idNamespace seeds deterministic UUIDs minted for records copied from
// the source store when source ids are not reused.
var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// SourceStore is the read side of one reconciliation pair.
type SourceStore interface {
	FetchPage(ctx context.Context, offset, limit int) ([]models.JobPosting, error)
	Table() string
}

// TargetStore is the write side. The interface has no delete operation;
// reconciliation is additive only.
type TargetStore interface {
	FetchKeyPage(ctx context.Context, offset, limit int) ([]models.KeyRow, error)
	InsertBatch(ctx context.Context, postings []models.JobPosting) error
	Table() string
}

// Reconciler computes which source records the target is missing. The two
// implementations share all paging, retry and insert plumbing in the
// Synchronizer.
type Reconciler interface {
	Name() string
	Missing(source []models.JobPosting, targetKeys []models.KeyRow) []models.JobPosting
}

// Options bundle the paging and retry knobs from config.
type Options struct {
	PageSize          int
	InsertBatchSize   int
	FetchRetries      int
	RetryDelay        time.Duration
	PreserveSourceIDs bool
}

// Summary is the operator-visible outcome of one sync run over one pair.
type Summary struct {
	SourceTable   string `json:"source_table"`
	TargetTable   string `json:"target_table"`
	Strategy      string `json:"strategy"`
	SourceRecords int    `json:"source_records"`
	TargetRecords int    `json:"target_records"`
	Inserted      int    `json:"inserted"`
	BatchErrors   int    `json:"batch_errors"`
}

// Synchronizer copies records present in the source store but absent from
// the target store, one bounded page and one bounded batch at a time. It
// never deletes. A run is a single sequential actor; concurrent runs
// against the same target must be serialized by the caller.
type Synchronizer struct {
	source     SourceStore
	target     TargetStore
	reconciler Reconciler
	opts       Options
	logger     *zap.Logger
}

func New(source SourceStore, target TargetStore, reconciler Reconciler, opts Options, logger *zap.Logger) *Synchronizer {
	return &Synchronizer{
		source:     source,
		target:     target,
		reconciler: reconciler,
		opts:       opts,
		logger:     logger,
	}
}

// Run pages through the entire source table and the target's dedup-key
// projection, computes the set difference and inserts the deficit. Fetch
// failures are retried a bounded number of times before the whole run is
// declared fatal; insert batch failures are counted and skipped.
func (s *Synchronizer) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Synchronizer.Run")
	defer span.End()
	span.SetAttributes(
		telemetry.String("sync.source", s.source.Table()),
		telemetry.String("sync.target", s.target.Table()),
		telemetry.String("sync.strategy", s.reconciler.Name()),
	)

	summary := Summary{
		SourceTable: s.source.Table(),
		TargetTable: s.target.Table(),
		Strategy:    s.reconciler.Name(),
	}

	sourceRecords, err := s.fetchAllSource(ctx)
	if err != nil {
		span.RecordError(err)
		return summary, err
	}
	summary.SourceRecords = len(sourceRecords)

	targetKeys, err := s.fetchAllTargetKeys(ctx)
	if err != nil {
		span.RecordError(err)
		return summary, err
	}
	summary.TargetRecords = len(targetKeys)

	missing := s.reconciler.Missing(sourceRecords, targetKeys)
	s.logger.Info("reconciliation diff computed",
		zap.String("source", s.source.Table()),
		zap.String("target", s.target.Table()),
		zap.String("strategy", s.reconciler.Name()),
		zap.Int("source_records", len(sourceRecords)),
		zap.Int("target_records", len(targetKeys)),
		zap.Int("missing", len(missing)))

	now := time.Now().UTC()
	for i := range missing {
		if !s.opts.PreserveSourceIDs {
			missing[i].ID = mintID(missing[i].ID)
		}
		missing[i].ApplyDefaults(now)
	}

	inserted, batchErrors := s.insertMissing(ctx, missing)
	summary.Inserted = inserted
	summary.BatchErrors = batchErrors

	span.SetAttributes(
		telemetry.Int("sync.inserted", inserted),
		telemetry.Int("sync.batch_errors", batchErrors),
	)
	s.logger.Info("sync run complete",
		zap.String("target", s.target.Table()),
		zap.Int("inserted", inserted),
		zap.Int("batch_errors", batchErrors))
	return summary, nil
}

func (s *Synchronizer) fetchAllSource(ctx context.Context) ([]models.JobPosting, error) {
	var all []models.JobPosting
	for offset := 0; ; offset += s.opts.PageSize {
		var page []models.JobPosting
		err := s.fetchWithRetry(ctx, "source page", func() error {
			var ferr error
			page, ferr = s.source.FetchPage(ctx, offset, s.opts.PageSize)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < s.opts.PageSize {
			return all, nil
		}
	}
}

func (s *Synchronizer) fetchAllTargetKeys(ctx context.Context) ([]models.KeyRow, error) {
	var all []models.KeyRow
	for offset := 0; ; offset += s.opts.PageSize {
		var page []models.KeyRow
		err := s.fetchWithRetry(ctx, "target key page", func() error {
			var ferr error
			page, ferr = s.target.FetchKeyPage(ctx, offset, s.opts.PageSize)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < s.opts.PageSize {
			return all, nil
		}
	}
}

// fetchWithRetry retries a transient page fetch failure a fixed number
// of times with a fixed delay, then promotes it to fatal for the run.
// Non-transient errors fail immediately. Only fetches are retried;
// writes are not, to avoid duplicate-insert risk.
func (s *Synchronizer) fetchWithRetry(ctx context.Context, what string, fetch func() error) error {
	var lastErr error
	for attempt := 1; attempt <= s.opts.FetchRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(s.opts.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = fetch(); lastErr == nil {
			return nil
		}
		if !errors.IsTransient(lastErr) {
			return lastErr
		}
		s.logger.Warn("page fetch failed",
			zap.String("what", what),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.opts.FetchRetries),
			zap.Error(lastErr))
	}
	return errors.Unavailable(what+" fetch exhausted retries", lastErr)
}

// insertMissing writes in fixed-size batches. A failed batch is logged
// and counted but does not abort the remaining batches.
func (s *Synchronizer) insertMissing(ctx context.Context, missing []models.JobPosting) (inserted, batchErrors int) {
	batchSize := s.opts.InsertBatchSize
	if batchSize <= 0 {
		batchSize = len(missing)
	}
	for start := 0; start < len(missing); start += batchSize {
		end := start + batchSize
		if end > len(missing) {
			end = len(missing)
		}
		batch := missing[start:end]
		if err := s.target.InsertBatch(ctx, batch); err != nil {
			batchErrors++
			s.logger.Error("insert batch failed",
				zap.String("target", s.target.Table()),
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}
		inserted += len(batch)
	}
	return inserted, batchErrors
}

// mintID derives a stable UUID from the source record id, so re-running a
// sync never inserts the same source record under two different ids.
func mintID(sourceID string) string {
	return uuid.NewSHA1(idNamespace, []byte(sourceID)).String()
}
