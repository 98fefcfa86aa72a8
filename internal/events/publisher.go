package events

import (
	"context"
	"encoding/json"
	"time"

	"wagewatch/pipeline/internal/errors"
	"wagewatch/pipeline/internal/repair"
	"wagewatch/pipeline/internal/sync"
	"wagewatch/pipeline/internal/telemetry"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("wagewatch/pipeline/events")

const (
	SyncCompletedSubject   = "jobs.sync.completed"
	RepairCompletedSubject = "jobs.repair.completed"

	// SyncRunSubject and RepairRunSubject are the operator-facing
	// triggers the pipelined daemon subscribes to.
	SyncRunSubject   = "pipeline.sync.run"
	RepairRunSubject = "pipeline.repair.run"
)

type syncCompletedEvent struct {
	Summaries  []sync.Summary `json:"summaries"`
	FinishedAt time.Time      `json:"finished_at"`
}

type repairCompletedEvent struct {
	Summary    repair.Summary `json:"summary"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Publisher emits run summaries so the job board's collaborators can
// react to fresh or re-tiered postings without polling the store.
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

func NewPublisher(natsURL string, connTimeout time.Duration, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(connTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, errors.Unavailable("connecting to NATS", err)
	}

	return &Publisher{
		nc:     nc,
		logger: logger,
	}, nil
}

// NewPublisherFromConn wraps an existing NATS connection the caller owns.
func NewPublisherFromConn(nc *nats.Conn, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, logger: logger}
}

func (p *Publisher) PublishSyncCompleted(ctx context.Context, summaries []sync.Summary) error {
	return p.publish(ctx, SyncCompletedSubject, syncCompletedEvent{
		Summaries:  summaries,
		FinishedAt: time.Now().UTC(),
	})
}

func (p *Publisher) PublishRepairCompleted(ctx context.Context, summary repair.Summary) error {
	return p.publish(ctx, RepairCompletedSubject, repairCompletedEvent{
		Summary:    summary,
		FinishedAt: time.Now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, event interface{}) error {
	_, span := tracer.Start(ctx, "Publisher.publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return errors.Internal("marshaling run summary event", err)
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.nc.Publish(subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish run summary",
			zap.String("subject", subject),
			zap.Error(err))
		return errors.Internal("publishing run summary", err)
	}

	p.logger.Debug("published run summary", zap.String("subject", subject))
	return nil
}

func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
