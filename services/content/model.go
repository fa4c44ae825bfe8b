package content

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	QuestionFreeText     QuestionType = "text"
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionMultiChoice  QuestionType = "multiple_choice"
)

type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
	BlockDelay BlockKind = "delay"
)

// Block is one element of a step's content. Only the field matching Kind is
// meaningful.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	FileID  string    `json:"file_id,omitempty"`
	Seconds int       `json:"seconds,omitempty"`
}

func TextBlock(text string) Block      { return Block{Kind: BlockText, Text: text} }
func ImageBlock(fileID string) Block   { return Block{Kind: BlockImage, FileID: fileID} }
func DelayDirective(seconds int) Block { return Block{Kind: BlockDelay, Seconds: seconds} }

type Blocks = datatypes.JSONSlice[Block]

// Caption joins the text blocks of a step.
func Caption(blocks Blocks) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Kind == BlockText && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ImageFileID returns the first image of a step, or "".
func ImageFileID(blocks Blocks) string {
	for _, b := range blocks {
		if b.Kind == BlockImage && b.FileID != "" {
			return b.FileID
		}
	}
	return ""
}

// Delay is the pause taken after a step has been rendered.
func Delay(blocks Blocks) time.Duration {
	var total int
	for _, b := range blocks {
		if b.Kind == BlockDelay && b.Seconds > 0 {
			total += b.Seconds
		}
	}
	return time.Duration(total) * time.Second
}

type Step struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Content   Blocks    `gorm:"column:content"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0;index:idx_steps_active_order,priority:2"`
	IsActive  bool      `gorm:"column:is_active;not null;index:idx_steps_active_order,priority:1"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Step) TableName() string { return "steps" }

type Option struct {
	Label   string `json:"text"`
	Payload string `json:"payload,omitempty"`
}

// CallbackPayload falls back to the label when no payload is configured.
func (o Option) CallbackPayload() string {
	if o.Payload != "" {
		return o.Payload
	}
	return o.Label
}

type Question struct {
	ID         int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	StepID     int64                       `gorm:"column:step_id;not null;index:idx_questions_step_order,priority:1"`
	Text       string                      `gorm:"column:text;not null"`
	Type       QuestionType                `gorm:"column:type;not null;default:'text'"`
	Options    datatypes.JSONSlice[Option] `gorm:"column:options"`
	SortOrder  int                         `gorm:"column:sort_order;not null;default:0;index:idx_questions_step_order,priority:2"`
	IsRequired bool                        `gorm:"column:is_required;not null"`
	CreatedAt  time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (Question) TableName() string { return "questions" }

// ScriptStep is an active step with its questions in playback order.
type ScriptStep struct {
	Step      Step
	Questions []Question
}

// Cursor is the ordering key of the last rendered step.
type Cursor struct {
	Order  int   `json:"order"`
	StepID int64 `json:"step_id"`
}

func (s ScriptStep) Cursor() Cursor {
	return Cursor{Order: s.Step.SortOrder, StepID: s.Step.ID}
}

// After reports whether the step sorts strictly after c.
func (s ScriptStep) After(c *Cursor) bool {
	if c == nil {
		return true
	}
	if s.Step.SortOrder != c.Order {
		return s.Step.SortOrder > c.Order
	}
	return s.Step.ID > c.StepID
}
