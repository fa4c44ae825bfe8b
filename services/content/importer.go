package content

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LegacyStep is a step exported from the previous bot, with its content still
// in the inline "caption|delay_sec:N|image_file_id:X" format.
type LegacyStep struct {
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Order       int              `json:"order" yaml:"order"`
	IsActive    bool             `json:"is_active" yaml:"is_active"`
	Questions   []LegacyQuestion `json:"questions" yaml:"questions"`
}

type LegacyQuestion struct {
	Text       string   `json:"question_text" yaml:"question_text"`
	Type       string   `json:"question_type" yaml:"question_type"`
	Options    []Option `json:"options" yaml:"options"`
	Order      int      `json:"order" yaml:"order"`
	IsRequired bool     `json:"is_required" yaml:"is_required"`
}

type Importer struct {
	db *gorm.DB
}

func NewImporter(db *gorm.DB) *Importer {
	return &Importer{db: db}
}

// Import converts legacy steps to the block model and stores them in one
// transaction. It returns the number of steps written.
func (i *Importer) Import(ctx context.Context, legacy []LegacyStep) (int, error) {
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for n, ls := range legacy {
			name := strings.TrimSpace(ls.Name)
			if name == "" {
				return fmt.Errorf("step %d: name is required", n)
			}

			step := &Step{
				Name:      name,
				Content:   ParseLegacy(ls.Description).Blocks(),
				SortOrder: ls.Order,
				IsActive:  ls.IsActive,
			}
			if err := tx.Create(step).Error; err != nil {
				return fmt.Errorf("step %q: %w", name, err)
			}

			for _, lq := range ls.Questions {
				q := &Question{
					StepID:     step.ID,
					Text:       lq.Text,
					Type:       normalizeType(lq.Type),
					Options:    datatypes.JSONSlice[Option](lq.Options),
					SortOrder:  lq.Order,
					IsRequired: lq.IsRequired,
				}
				if err := tx.Create(q).Error; err != nil {
					return fmt.Errorf("step %q question: %w", name, err)
				}
			}

			zap.L().Debug("imported legacy step",
				zap.Int64("step_id", step.ID),
				zap.String("name", name),
				zap.Int("questions", len(ls.Questions)),
			)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(legacy), nil
}

func normalizeType(t string) QuestionType {
	switch QuestionType(strings.ToLower(strings.TrimSpace(t))) {
	case QuestionSingleChoice:
		return QuestionSingleChoice
	case QuestionMultiChoice:
		return QuestionMultiChoice
	case QuestionFreeText, "":
		return QuestionFreeText
	default:
		return QuestionType(t)
	}
}
