package repair

import (
	"context"
	"time"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/models"
	"wagewatch/pipeline/internal/telemetry"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline/repair")

// JobSource is the slice of the job store the driver needs: paging over
// still-default postings and writing refined tiers back.
type JobSource interface {
	FetchDefaultTierPage(ctx context.Context, offset, limit int) ([]models.JobPosting, error)
	UpsertBatch(ctx context.Context, postings []models.JobPosting) (int, error)
}

// TierResolver resolves one posting to a wage tier, or to nil when the
// posting is unresolvable.
type TierResolver interface {
	Resolve(ctx context.Context, posting models.JobPosting) (*models.ClassificationResult, error)
}

type runState int

const (
	stateScanning runState = iota
	stateDraining
	stateDone
)

// Options bundle the paging and retry knobs from config.
type Options struct {
	PageSize     int
	RecordCap    int
	FetchRetries int
	RetryDelay   time.Duration
}

// Summary is the operator-visible outcome of one repair run.
type Summary struct {
	Checked     int `json:"checked"`
	Fixed       int `json:"fixed"`
	NoMatch     int `json:"no_match"`
	WriteErrors int `json:"write_errors"`
}

// Driver walks every posting still carrying the default tier, resolves a
// refined tier for each and persists changes in bounded batches. A page
// that produced a successful upsert is re-fetched at the same offset,
// because fixed postings drop out of the still-default query; the offset
// only advances once a page yields no changes.
type Driver struct {
	jobs     JobSource
	resolver TierResolver
	opts     Options
	logger   *zap.Logger
}

func NewDriver(jobs JobSource, resolver TierResolver, opts Options, logger *zap.Logger) *Driver {
	return &Driver{
		jobs:     jobs,
		resolver: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// Run executes one repair pass. It terminates on an empty page, on the
// hard record cap, or fatally once a page fetch has exhausted its
// retries or a resolve fails. Partial progress stays committed either
// way.
func (d *Driver) Run(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "RepairDriver.Run")
	defer span.End()

	var summary Summary
	seen := make(map[string]bool)
	offset := 0
	state := stateScanning

	for state != stateDone {
		if summary.Checked >= d.opts.RecordCap {
			d.logger.Warn("repair run hit record cap",
				zap.Int("cap", d.opts.RecordCap),
				zap.Int("checked", summary.Checked))
			break
		}

		page, err := d.fetchPageWithRetry(ctx, offset)
		if err != nil {
			span.RecordError(err)
			return summary, err
		}
		if len(page) == 0 {
			state = stateDone
			continue
		}

		changed, err := d.resolvePage(ctx, page, seen, &summary)
		if err != nil {
			span.RecordError(err)
			return summary, err
		}

		if len(changed) == 0 {
			state = stateScanning
		} else if _, err := d.jobs.UpsertBatch(ctx, changed); err != nil {
			// writes are not retried; record the failure and move the
			// window forward so the same page cannot loop forever
			summary.WriteErrors++
			d.logger.Error("failed to upsert repaired tiers",
				zap.Int("batch_size", len(changed)),
				zap.Error(err))
			state = stateScanning
		} else {
			summary.Fixed += len(changed)
			state = stateDraining
		}

		// DRAINING re-fetches the same window, because the fixed
		// postings just dropped out of it; SCANNING moves on.
		if state == stateScanning {
			offset += d.opts.PageSize
		}
	}

	span.SetAttributes(
		telemetry.Int("repair.checked", summary.Checked),
		telemetry.Int("repair.fixed", summary.Fixed),
		telemetry.Int("repair.no_match", summary.NoMatch),
	)
	d.logger.Info("repair run complete",
		zap.Int("checked", summary.Checked),
		zap.Int("fixed", summary.Fixed),
		zap.Int("no_match", summary.NoMatch),
		zap.Int("write_errors", summary.WriteErrors))
	return summary, nil
}

// fetchPageWithRetry retries a transient page fetch failure a fixed
// number of times with a fixed delay, then promotes it to fatal for the
// run. Non-transient errors fail immediately.
func (d *Driver) fetchPageWithRetry(ctx context.Context, offset int) ([]models.JobPosting, error) {
	var lastErr error
	for attempt := 1; attempt <= d.opts.FetchRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(d.opts.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		page, err := d.jobs.FetchDefaultTierPage(ctx, offset, d.opts.PageSize)
		if err == nil {
			return page, nil
		}
		if !errors.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		d.logger.Warn("default-tier page fetch failed",
			zap.Int("offset", offset),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", d.opts.FetchRetries),
			zap.Error(lastErr))
	}
	return nil, errors.Unavailable("default-tier page fetch exhausted retries", lastErr)
}

// resolvePage resolves every previously unseen posting on the page and
// returns the ones whose tier actually changed. Already-seen postings are
// skipped so re-fetching the same window never double-counts them.
func (d *Driver) resolvePage(ctx context.Context, page []models.JobPosting, seen map[string]bool, summary *Summary) ([]models.JobPosting, error) {
	var changed []models.JobPosting
	for _, posting := range page {
		if seen[posting.ID] {
			continue
		}
		seen[posting.ID] = true
		summary.Checked++

		result, err := d.resolver.Resolve(ctx, posting)
		if err != nil {
			return nil, err
		}
		if result == nil {
			summary.NoMatch++
			continue
		}
		if result.TierLabel == posting.WageTierLabel {
			continue
		}

		posting.WageTierLabel = result.TierLabel
		posting.WageTierNum = result.TierNum
		changed = append(changed, posting)
	}
	return changed, nil
}
