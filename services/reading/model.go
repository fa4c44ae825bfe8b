package reading

import (
	"time"

	"gorm.io/datatypes"

	"readingbot/services/content"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session is one playback of the script for one user. It is never deleted.
type Session struct {
	ID            string                              `gorm:"column:id;primaryKey" json:"id"`
	UserID        string                              `gorm:"column:user_id;not null;index" json:"user_id"`
	Recipient     string                              `gorm:"column:recipient;not null" json:"-"`
	ScenarioLabel string                              `gorm:"column:scenario_label;not null" json:"scenario_label"`
	Paid          bool                                `gorm:"column:paid;not null" json:"paid"`
	Payload       datatypes.JSONMap                   `gorm:"column:payload" json:"payload,omitempty"`
	Status        Status                              `gorm:"column:status;not null;index" json:"status"`
	Cursor        datatypes.JSONType[*content.Cursor] `gorm:"column:cursor" json:"cursor"`
	FailureReason string                              `gorm:"column:failure_reason" json:"failure_reason,omitempty"`
	CreatedAt     time.Time                           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt   *time.Time                          `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Session) TableName() string { return "reading_sessions" }

// StepResult is what PlayStep reports back to the loop or task that drives
// playback.
type StepResult struct {
	// Next is the cursor of the step just rendered; nil when nothing was
	// rendered.
	Next *content.Cursor
	// Delay is the pause requested by the rendered step before the next one.
	Delay time.Duration

	Done      bool
	Cancelled bool
}

// Continue reports whether another step should be scheduled.
func (r StepResult) Continue() bool {
	return !r.Done && !r.Cancelled
}
