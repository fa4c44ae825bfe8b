package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"readingbot/pkg/config"
	"readingbot/pkg/logger"
	"readingbot/pkg/task"
	"readingbot/pkg/taskname"
	"readingbot/services/payment"
)

const (
	syncTaskTimeout  = 30 * time.Second
	syncTaskRetries  = 3
	enqueueFanOut    = 8
	syncTaskIDPrefix = "payment-sync:"
)

type PendingLister interface {
	Pending(ctx context.Context, olderThan time.Duration, limit int) ([]*payment.Payment, error)
}

type SyncPayload struct {
	ExternalID string `json:"external_id"`
}

func NewSyncTask(externalID string) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncPayload{ExternalID: externalID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.PaymentSync, payload,
		asynq.TaskID(syncTaskIDPrefix+externalID),
		asynq.Queue(task.QueueDefault),
		asynq.MaxRetry(syncTaskRetries),
		asynq.Timeout(syncTaskTimeout),
	), nil
}

// Sweeper periodically queues a gateway poll for every payment still pending
// after SweepAge, covering notifications that never arrived.
type Sweeper struct {
	payments PendingLister
	enqueuer task.Enqueuer
	interval time.Duration
	age      time.Duration
	batch    int
}

type SweeperParams struct {
	fx.In
	Config   *config.Config
	Payments PendingLister
	Enqueuer task.Enqueuer
}

func NewSweeper(p SweeperParams) *Sweeper {
	return &Sweeper{
		payments: p.Payments,
		enqueuer: p.Enqueuer,
		interval: p.Config.Payment.SweepInterval,
		age:      p.Config.Payment.SweepAge,
		batch:    p.Config.Payment.SweepBatch,
	}
}

// Sweep enqueues one sync task per stale pending payment and returns how many
// were queued. Payments whose task is still queued are skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	pending, err := s.payments.Pending(ctx, s.age, s.batch)
	if err != nil {
		return 0, err
	}

	var queued atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enqueueFanOut)
	for _, p := range pending {
		externalID := p.External()
		g.Go(func() error {
			t, err := NewSyncTask(externalID)
			if err != nil {
				return err
			}
			if _, err := s.enqueuer.Enqueue(gctx, t); err != nil {
				if errors.Is(err, task.ErrDuplicateTask) {
					return nil
				}
				return err
			}
			queued.Add(1)
			return nil
		})
	}

	err = g.Wait()
	return int(queued.Load()), err
}

func StartSweeper(lc fx.Lifecycle, s *Sweeper) {
	if s.interval <= 0 {
		zap.L().Info("[Sweeper] disabled, PAYMENT.SWEEP_INTERVAL is not positive")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func (s *Sweeper) run(ctx context.Context) {
	zap.L().Info("[Sweeper] started pending payment sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			n, err := s.Sweep(ctx)
			if err != nil {
				zap.L().Error("[Sweeper] sweep failed", zap.Int("queued", n), zap.Error(err))
				continue
			}
			zap.L().Info("[Sweeper] sweep finished", zap.Int("queued", n), zap.Duration("duration", time.Since(start)))
		case <-ctx.Done():
			zap.L().Warn("[Sweeper] stopped")
			return
		}
	}
}

type SyncHandler struct {
	reconciler *Reconciler
}

func NewSyncHandler(r *Reconciler) *SyncHandler {
	return &SyncHandler{reconciler: r}
}

func (h *SyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p SyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil || p.ExternalID == "" {
		return fmt.Errorf("decode %s payload: %w", t.Type(), errors.Join(err, asynq.SkipRetry))
	}

	outcome, err := h.reconciler.Sync(ctx, p.ExternalID)
	if err != nil {
		return err
	}
	logger.L(ctx).Info("pending payment synced",
		zap.String("external_id", p.ExternalID),
		zap.String("outcome", string(outcome)),
	)
	return nil
}

func RegisterSyncHandler(mux *asynq.ServeMux, h *SyncHandler) {
	mux.Handle(taskname.PaymentSync, h)
}
