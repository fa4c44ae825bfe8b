package user

import "time"

type User struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	TelegramID int64     `gorm:"column:telegram_id;not null;uniqueIndex" json:"telegram_id"`
	FirstName  string    `gorm:"column:first_name;not null" json:"first_name"`
	LastName   string    `gorm:"column:last_name" json:"last_name,omitempty"`
	Username   string    `gorm:"column:username;index" json:"username,omitempty"`
	IsBot      bool      `gorm:"column:is_bot;not null" json:"is_bot"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "bot_users" }

// Profile is what the messaging transport tells us about a user.
type Profile struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	IsBot      bool
}
