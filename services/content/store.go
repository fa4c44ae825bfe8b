package content

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

var ErrEmptyScript = errors.New("scenario has no active steps")

// Script is the read side of the content store used during playback.
type Script interface {
	ListActiveScript(ctx context.Context) ([]ScriptStep, error)
	NextStep(ctx context.Context, after *Cursor) (*ScriptStep, error)
}

type Store struct {
	db *gorm.DB
}

type StoreParams struct {
	fx.In
	DB *gorm.DB
}

func NewStore(p StoreParams) *Store {
	return &Store{db: p.DB}
}

// ListActiveScript returns active steps ordered by (sort_order, id), each with
// its questions ordered the same way.
func (s *Store) ListActiveScript(ctx context.Context) ([]ScriptStep, error) {
	var steps []Step
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").Order("id ASC").
		Find(&steps).Error; err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(steps))
	for _, st := range steps {
		ids = append(ids, st.ID)
	}

	questions, err := s.questionsFor(ctx, ids...)
	if err != nil {
		return nil, err
	}

	script := make([]ScriptStep, 0, len(steps))
	for _, st := range steps {
		script = append(script, ScriptStep{Step: st, Questions: questions[st.ID]})
	}

	return script, nil
}

// NextStep returns the first active step sorting strictly after the cursor, or
// nil when the script is exhausted. A nil cursor yields the first step.
func (s *Store) NextStep(ctx context.Context, after *Cursor) (*ScriptStep, error) {
	q := s.db.WithContext(ctx).Where("is_active = ?", true)
	if after != nil {
		q = q.Where("sort_order > ? OR (sort_order = ? AND id > ?)", after.Order, after.Order, after.StepID)
	}

	var step Step
	err := q.Order("sort_order ASC").Order("id ASC").Take(&step).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	questions, err := s.questionsFor(ctx, step.ID)
	if err != nil {
		return nil, err
	}

	return &ScriptStep{Step: step, Questions: questions[step.ID]}, nil
}

func (s *Store) questionsFor(ctx context.Context, stepIDs ...int64) (map[int64][]Question, error) {
	var questions []Question
	if err := s.db.WithContext(ctx).
		Where("step_id IN ?", stepIDs).
		Order("step_id ASC").Order("sort_order ASC").Order("id ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}

	byStep := make(map[int64][]Question, len(stepIDs))
	for _, q := range questions {
		byStep[q.StepID] = append(byStep[q.StepID], q)
	}
	return byStep, nil
}
