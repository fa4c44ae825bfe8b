package reading

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"readingbot/pkg/taskname"
	"readingbot/services/content"
)

type enqueued struct {
	task *asynq.Task
	opts []asynq.Option
}

type mockEnqueuer struct {
	tasks []enqueued
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, enqueued{task: task, opts: opts})
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (m *mockEnqueuer) pop(t *testing.T) (PlayStepPayload, time.Duration) {
	t.Helper()
	require.NotEmpty(t, m.tasks)

	next := m.tasks[0]
	m.tasks = m.tasks[1:]
	require.Equal(t, taskname.ReadingPlayStep, next.task.Type())

	var p PlayStepPayload
	require.NoError(t, json.Unmarshal(next.task.Payload(), &p))

	var delay time.Duration
	for _, o := range next.opts {
		if o.Type() == asynq.ProcessInOpt {
			delay = o.Value().(time.Duration)
		}
	}
	return p, delay
}

func TestQueuePlaybackOneTaskPerStep(t *testing.T) {
	h := newHarness(t)
	h.seedStep(t, "first", 1, true, content.Blocks{content.TextBlock("one"), content.DelayDirective(5)})
	h.seedStep(t, "second", 2, true, content.Blocks{content.TextBlock("two")})
	ctx := context.Background()

	enq := &mockEnqueuer{}
	dispatcher := NewQueueDispatcher(enq)
	handler := NewTaskHandler(h.engine, dispatcher)

	id, err := h.engine.Start(ctx, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, dispatcher.Dispatch(ctx, id))

	p, delay := enq.pop(t)
	require.Equal(t, id, p.SessionID)
	require.Nil(t, p.Cursor)
	require.Zero(t, delay)

	task, err := NewPlayStepTask(p)
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(ctx, task))
	require.Equal(t, 1, h.sender.count())

	p, delay = enq.pop(t)
	require.NotNil(t, p.Cursor)
	require.Equal(t, 5*time.Second, delay)

	task, err = NewPlayStepTask(p)
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(ctx, task))
	require.Equal(t, 2, h.sender.count())

	p, _ = enq.pop(t)
	task, err = NewPlayStepTask(p)
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(ctx, task))
	require.Empty(t, enq.tasks)

	s, err := h.engine.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, s.Status)
}

func TestProcessTaskRejectsBadPayload(t *testing.T) {
	h := newHarness(t)
	handler := NewTaskHandler(h.engine, NewQueueDispatcher(&mockEnqueuer{}))

	err := handler.ProcessTask(context.Background(), asynq.NewTask(taskname.ReadingPlayStep, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInlineDispatcherPlaysInBackground(t *testing.T) {
	h := newHarness(t)
	h.seedStep(t, "only", 1, true, content.Blocks{content.TextBlock("hi")})
	ctx := context.Background()

	id, err := h.engine.Start(ctx, "user-1", "")
	require.NoError(t, err)
	require.NoError(t, NewInlineDispatcher(h.engine).Dispatch(ctx, id))

	require.Eventually(t, func() bool {
		s, err := h.engine.Get(ctx, id)
		return err == nil && s.Status == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}
