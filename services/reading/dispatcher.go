package reading

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"readingbot/pkg/logger"
	"readingbot/pkg/task"
	"readingbot/pkg/taskname"
	"readingbot/services/content"
)

// Dispatcher hands a started session to whatever drives its playback.
type Dispatcher interface {
	Dispatch(ctx context.Context, sessionID string) error
}

// InlineDispatcher plays the session in a goroutine of the current process.
type InlineDispatcher struct {
	engine *Engine
}

func NewInlineDispatcher(engine *Engine) *InlineDispatcher {
	return &InlineDispatcher{engine: engine}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, sessionID string) error {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := d.engine.Play(ctx, sessionID); err != nil {
			logger.L(ctx).Warn("inline playback stopped", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
	return nil
}

type PlayStepPayload struct {
	SessionID string          `json:"session_id"`
	Cursor    *content.Cursor `json:"cursor,omitempty"`
}

// NewPlayStepTask builds the task rendering the step after p.Cursor. Steps
// are never retried: a half-rendered step must not be sent twice.
func NewPlayStepTask(p PlayStepPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskname.ReadingPlayStep, b, asynq.MaxRetry(0), asynq.Queue(task.QueueCritical)), nil
}

// QueueDispatcher schedules one task per step. The next task is enqueued
// only after the current step finished, with the step's delay.
type QueueDispatcher struct {
	enqueuer task.Enqueuer
}

func NewQueueDispatcher(enqueuer task.Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{enqueuer: enqueuer}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, sessionID string) error {
	return d.schedule(ctx, PlayStepPayload{SessionID: sessionID}, 0)
}

func (d *QueueDispatcher) schedule(ctx context.Context, p PlayStepPayload, delay time.Duration) error {
	t, err := NewPlayStepTask(p)
	if err != nil {
		return err
	}

	opts := []asynq.Option{}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	info, err := d.enqueuer.Enqueue(ctx, t, opts...)
	if err != nil {
		logger.L(ctx).Error("failed to enqueue playback step", zap.String("session_id", p.SessionID), zap.Error(err))
		return err
	}

	logger.L(ctx).Debug("playback step scheduled",
		zap.String("session_id", p.SessionID),
		zap.String("task_id", info.ID),
		zap.Duration("delay", delay),
	)
	return nil
}

// TaskHandler renders one step per task and schedules the following one.
type TaskHandler struct {
	engine     *Engine
	dispatcher *QueueDispatcher
}

func NewTaskHandler(engine *Engine, dispatcher *QueueDispatcher) *TaskHandler {
	return &TaskHandler{engine: engine, dispatcher: dispatcher}
}

func (h *TaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p PlayStepPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	res, err := h.engine.PlayStep(ctx, p.SessionID, p.Cursor)
	if err != nil {
		return err
	}
	if !res.Continue() {
		return nil
	}

	return h.dispatcher.schedule(ctx, PlayStepPayload{SessionID: p.SessionID, Cursor: res.Next}, res.Delay)
}

func RegisterTaskHandlers(mux *asynq.ServeMux, h *TaskHandler) {
	mux.Handle(taskname.ReadingPlayStep, h)
}
