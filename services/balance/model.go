package balance

import "time"

type EntryKind string

const (
	EntryGrant   EntryKind = "grant"
	EntryConsume EntryKind = "consume"
)

// EntitlementBalance is the materialised per-user credit counter.
type EntitlementBalance struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;default:0;check:balance >= 0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (EntitlementBalance) TableName() string { return "entitlement_balances" }

// EntitlementEntry journals every mutation of a balance. (kind, reference) is
// unique, which makes a grant for one external payment happen at most once.
type EntitlementEntry struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	Kind      EntryKind `gorm:"column:kind;not null;uniqueIndex:idx_entitlement_entries_kind_ref,priority:1"`
	Amount    int64     `gorm:"column:amount;not null"`
	Reference string    `gorm:"column:reference;not null;uniqueIndex:idx_entitlement_entries_kind_ref,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (EntitlementEntry) TableName() string { return "entitlement_entries" }
