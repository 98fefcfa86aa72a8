package events

import (
	"context"
	"fmt"
	gosync "sync"

	"wagewatch/pipeline/internal/repair"
	"wagewatch/pipeline/internal/sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Runner is the pipeline surface the daemon drives.
type Runner interface {
	RunSync(ctx context.Context) ([]sync.Summary, error)
	RunRepair(ctx context.Context) (repair.Summary, error)
}

// Handler turns NATS run-request messages into pipeline runs. A single
// mutex serializes runs: concurrent synchronizer runs against the same
// target are not safe, and the daemon is the serialization point.
type Handler struct {
	logger *zap.Logger
	nc     *nats.Conn
	runner Runner
	mu     gosync.Mutex
	subs   []*nats.Subscription
}

func NewHandler(logger *zap.Logger, nc *nats.Conn, runner Runner) *Handler {
	return &Handler{
		logger: logger,
		nc:     nc,
		runner: runner,
	}
}

func (h *Handler) RegisterSubscriptions(lc fx.Lifecycle) error {
	syncSub, err := h.nc.QueueSubscribe(SyncRunSubject, "wagewatch-pipeline", h.handleSyncRun)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", SyncRunSubject, err)
	}
	h.subs = append(h.subs, syncSub)

	repairSub, err := h.nc.QueueSubscribe(RepairRunSubject, "wagewatch-pipeline", h.handleRepairRun)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", RepairRunSubject, err)
	}
	h.subs = append(h.subs, repairSub)

	h.logger.Info("registered NATS subscriptions")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			for _, sub := range h.subs {
				if err := sub.Unsubscribe(); err != nil {
					return err
				}
			}
			return nil
		},
	})

	return nil
}

func (h *Handler) handleSyncRun(msg *nats.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info("sync run requested", zap.String("subject", msg.Subject))
	if _, err := h.runner.RunSync(context.Background()); err != nil {
		h.logger.Error("sync run failed", zap.Error(err))
	}
}

func (h *Handler) handleRepairRun(msg *nats.Msg) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logger.Info("repair run requested", zap.String("subject", msg.Subject))
	if _, err := h.runner.RunRepair(context.Background()); err != nil {
		h.logger.Error("repair run failed", zap.Error(err))
	}
}
