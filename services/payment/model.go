package payment

import (
	"time"

	"gorm.io/datatypes"

	"readingbot/pkg/money"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCanceled  Status = "canceled"
	StatusFailed    Status = "failed"
)

func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}

// Metadata is stored with every payment and tells the reconciler what to
// grant once the payment succeeds.
type Metadata struct {
	PackageCode      string `json:"package_code"`
	EntitlementCount int    `json:"entitlement_count"`
	CorrelationID    string `json:"correlation_id,omitempty"`
}

type Payment struct {
	ID              string                       `gorm:"column:id;primaryKey"`
	UserID          string                       `gorm:"column:user_id;not null;index"`
	Number          string                       `gorm:"column:number;index"`
	ExternalID      *string                      `gorm:"column:external_id;uniqueIndex"`
	Amount          int64                        `gorm:"column:amount;not null"`
	Currency        string                       `gorm:"column:currency;not null;default:'RUB'"`
	Status          Status                       `gorm:"column:status;not null;default:'pending';index"`
	Description     string                       `gorm:"column:description"`
	ConfirmationURL string                       `gorm:"column:confirmation_url"`
	Metadata        datatypes.JSONType[Metadata] `gorm:"column:metadata"`
	CreatedAt       time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) Money() money.Money {
	return money.Money{Amount: p.Amount, Currency: p.Currency}
}

func (p *Payment) External() string {
	if p.ExternalID == nil {
		return ""
	}
	return *p.ExternalID
}

// PaymentUpdate lists every field that may change after creation. Nil fields
// keep their stored value. Status is absent: it only moves
// through Transition.
type PaymentUpdate struct {
	ExternalID      *string
	ConfirmationURL *string
	Description     *string
	Metadata        *Metadata
}

// Purchase is returned to the caller of CreatePurchase.
type Purchase struct {
	PaymentID   string      `json:"payment_id"`
	Number      string      `json:"number"`
	ExternalID  string      `json:"external_id"`
	RedirectURL string      `json:"redirect_url"`
	Amount      money.Money `json:"amount"`
	Description string      `json:"description"`
}

type ChargeRequest struct {
	Amount         money.Money
	Description    string
	Metadata       map[string]string
	IdempotenceKey string
}

type Charge struct {
	ExternalID      string
	Status          string
	ConfirmationURL string
	Paid            bool
}
