package reading

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"readingbot/pkg/config"
	"readingbot/pkg/db/option"
	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
	"readingbot/pkg/repository"
	"readingbot/pkg/util"
	"readingbot/services/content"
)

var (
	ErrSessionNotFound = errors.New("reading session not found")
	ErrSessionClosed   = errors.New("reading session is not in progress")
)

// Consumer takes one paid credit from a user inside the caller's transaction.
type Consumer interface {
	Consume(ctx context.Context, tx *gorm.DB, userID string, reference string) error
}

type Engine struct {
	db         *gorm.DB
	node       *snowflake.Node
	script     content.Script
	consumer   Consumer
	sender     Sender
	recipients Recipients
	canceller  Canceller

	isPaid       func(label string) bool
	defaultLabel string

	sessions repository.Repository[Session]
}

type EngineParams struct {
	fx.In
	DB         *gorm.DB
	Node       *snowflake.Node
	Config     *config.Config
	Script     content.Script
	Consumer   Consumer
	Sender     Sender
	Recipients Recipients
	Canceller  Canceller
}

func NewEngine(p EngineParams) *Engine {
	return &Engine{
		db:         p.DB,
		node:       p.Node,
		script:     p.Script,
		consumer:   p.Consumer,
		sender:     p.Sender,
		recipients: p.Recipients,
		canceller:  p.Canceller,

		isPaid:       p.Config.IsPaidLabel,
		defaultLabel: p.Config.Scenario.DefaultLabel,

		sessions: repository.ProvideStore[Session](p.DB),
	}
}

// Start creates a session for the user and moves it to in progress. Paid
// labels consume one credit in the transaction that creates the session.
// Rendering is left to PlayStep.
func (e *Engine) Start(ctx context.Context, userID, label string) (string, error) {
	if label == "" {
		label = e.defaultLabel
	}
	log := logger.L(ctx).With(zap.String("user_id", userID), zap.String("label", label))

	first, err := e.script.NextStep(ctx, nil)
	if err != nil {
		log.Error("failed to load script", zap.Error(err))
		return "", err
	}
	if first == nil {
		return "", errutil.UnprocessableEntity("scenario has no active steps", content.ErrEmptyScript)
	}

	recipient, err := e.recipients.Recipient(ctx, userID)
	if err != nil {
		return "", err
	}

	s := &Session{
		ID:            e.node.Generate().String(),
		UserID:        userID,
		Recipient:     recipient,
		ScenarioLabel: label,
		Paid:          e.isPaid(label),
		Status:        StatusPending,
	}

	if err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.sessions.WithTrx(tx).Create(ctx, s); err != nil {
			return err
		}
		if s.Paid {
			if err := e.consumer.Consume(ctx, tx, userID, s.ID); err != nil {
				return err
			}
		}
		_, err := e.transition(ctx, tx, s.ID, StatusInProgress, nil, StatusPending)
		return err
	}); err != nil {
		log.Warn("failed to start session", zap.Error(err))
		return "", err
	}

	sessionsStarted.WithLabelValues(label).Inc()
	log.Info("reading session started", zap.String("session_id", s.ID), zap.Bool("paid", s.Paid))
	return s.ID, nil
}

// PlayStep renders the first step after cursor. A nil cursor resumes from the
// progress stored on the session. When no step is left the session is
// completed. A raised cancel signal stops playback before anything
// is rendered.
func (e *Engine) PlayStep(ctx context.Context, sessionID string, cursor *content.Cursor) (StepResult, error) {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return StepResult{}, err
	}
	if s.Status != StatusInProgress {
		return StepResult{}, errutil.Conflict("session is not in progress", ErrSessionClosed)
	}

	log := logger.L(ctx).With(zap.String("session_id", s.ID), zap.String("user_id", s.UserID))

	cancelled, err := e.canceller.Cancelled(ctx, s.ID)
	if err != nil {
		log.Error("failed to read cancel signal", zap.Error(err))
		return StepResult{}, err
	}
	if cancelled {
		log.Info("playback cancelled")
		return StepResult{Cancelled: true}, nil
	}

	if cursor == nil {
		cursor = s.Cursor.Data()
	}

	step, err := e.script.NextStep(ctx, cursor)
	if err != nil {
		return StepResult{}, e.fail(ctx, s, err)
	}
	if step == nil {
		return StepResult{Done: true}, e.complete(ctx, s)
	}

	for _, msg := range renderStep(*step) {
		if err := e.sender.Send(ctx, s.Recipient, msg); err != nil {
			return StepResult{}, e.fail(ctx, s, err)
		}
	}
	stepsRendered.Inc()

	next := step.Cursor()
	if err := e.db.WithContext(ctx).
		Model(&Session{}).
		Where("id = ? AND status = ?", s.ID, StatusInProgress).
		Updates(map[string]any{
			"cursor":     datatypes.NewJSONType(&next),
			"updated_at": time.Now(),
		}).Error; err != nil {
		log.Warn("failed to record progress", zap.Int64("step_id", next.StepID), zap.Error(err))
	}

	log.Debug("step rendered", zap.Int64("step_id", step.Step.ID), zap.Int("questions", len(step.Questions)))
	return StepResult{Next: &next, Delay: content.Delay(step.Step.Content)}, nil
}

// Play drives a session to the end in the calling goroutine. Delays between
// steps are timers that give way to ctx cancellation; a cancelled ctx leaves
// the session in progress.
func (e *Engine) Play(ctx context.Context, sessionID string) error {
	var cursor *content.Cursor
	for {
		res, err := e.PlayStep(ctx, sessionID, cursor)
		if err != nil {
			return err
		}
		if !res.Continue() {
			return nil
		}
		if err := util.SleepOrDone(ctx, res.Delay); err != nil {
			return err
		}
		cursor = res.Next
	}
}

// Cancel raises the cancel signal. Playback stops before the next step.
func (e *Engine) Cancel(ctx context.Context, sessionID string) error {
	s, err := e.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if s.Status.IsTerminal() {
		return errutil.Conflict("session already finished", ErrSessionClosed)
	}

	if err := e.canceller.Cancel(ctx, s.ID); err != nil {
		logger.L(ctx).Error("failed to raise cancel signal", zap.String("session_id", s.ID), zap.Error(err))
		return err
	}
	logger.L(ctx).Info("reading session cancel requested", zap.String("session_id", s.ID))
	return nil
}

func (e *Engine) Get(ctx context.Context, sessionID string) (*Session, error) {
	s, err := e.sessions.FindOne(ctx, &Session{ID: sessionID})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errutil.NotFound("reading session not found", ErrSessionNotFound)
	}
	return s, nil
}

func (e *Engine) ListByUser(ctx context.Context, userID string, limit int) ([]*Session, error) {
	return e.sessions.Find(ctx, &Session{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.ApplyPagination(limit, 0),
	)
}

func (e *Engine) complete(ctx context.Context, s *Session) error {
	now := time.Now()
	changed, err := e.transition(ctx, nil, s.ID, StatusCompleted, map[string]any{"completed_at": now}, StatusInProgress)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	sessionsFinished.WithLabelValues(string(StatusCompleted)).Inc()
	logger.L(ctx).Info("reading session completed", zap.String("session_id", s.ID))

	if err := e.sender.Send(ctx, s.Recipient, Message{Text: messageCompleted}); err != nil {
		logger.L(ctx).Warn("failed to send completion message", zap.String("session_id", s.ID), zap.Error(err))
	}
	return nil
}

// fail marks the session failed and tells the user. It returns cause so the
// caller can propagate it. A cancelled ctx is not a failure: the session
// stays in progress.
func (e *Engine) fail(ctx context.Context, s *Session, cause error) error {
	log := logger.L(ctx).With(zap.String("session_id", s.ID))

	if ctx.Err() != nil {
		log.Info("playback interrupted", zap.Error(ctx.Err()))
		return cause
	}

	changed, err := e.transition(ctx, nil, s.ID, StatusFailed, map[string]any{"failure_reason": cause.Error()}, StatusInProgress)
	if err != nil {
		log.Error("failed to mark session failed", zap.Error(err))
		return cause
	}
	if changed {
		sessionsFinished.WithLabelValues(string(StatusFailed)).Inc()
	}

	log.Error("reading session failed", zap.Error(cause))
	if err := e.sender.Send(ctx, s.Recipient, Message{Text: messageFailed}); err != nil {
		log.Warn("failed to send failure message", zap.Error(err))
	}
	return cause
}

// transition moves the session to status to when it currently is in one of
// from. It runs on tx when given and reports whether a row changed.
func (e *Engine) transition(ctx context.Context, tx *gorm.DB, sessionID string, to Status, extra map[string]any, from ...Status) (bool, error) {
	conn := e.db
	if tx != nil {
		conn = tx
	}

	values := map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range extra {
		values[k] = v
	}

	res := conn.WithContext(ctx).
		Model(&Session{}).
		Where("id = ? AND status IN ?", sessionID, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
