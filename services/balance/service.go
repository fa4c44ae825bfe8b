package balance

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"readingbot/pkg/db/option"
	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
	"readingbot/pkg/repository"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyGranted      = errors.New("entitlement already granted for reference")
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	balances repository.Repository[EntitlementBalance]
	entries  repository.Repository[EntitlementEntry]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,

		balances: repository.ProvideStore[EntitlementBalance](p.DB),
		entries:  repository.ProvideStore[EntitlementEntry](p.DB),
	}
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// Get returns the current balance; users without a row have zero credits.
func (s *Service) Get(ctx context.Context, userID string) (int64, error) {
	b, err := s.balances.FindOne(ctx, &EntitlementBalance{UserID: userID})
	if err != nil {
		logger.L(ctx).Error("failed to query balance", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	if b == nil {
		return 0, nil
	}
	return b.Balance, nil
}

// Grant credits amount to the user and journals it under reference. It must
// run inside the caller's transaction so the credit commits or rolls back
// together with the payment transition.
func (s *Service) Grant(ctx context.Context, tx *gorm.DB, userID string, amount int64, reference string) error {
	if amount <= 0 {
		return errutil.BadRequest("grant amount must be > 0", nil)
	}

	conn := s.conn(tx)
	entries := s.entries.WithTrx(conn)

	exist, err := entries.FindOne(ctx, &EntitlementEntry{Kind: EntryGrant, Reference: reference})
	if err != nil {
		return err
	}
	if exist != nil {
		return errutil.Conflict("entitlement already granted", ErrAlreadyGranted)
	}

	if err := entries.Create(ctx, &EntitlementEntry{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Kind:      EntryGrant,
		Amount:    amount,
		Reference: reference,
	}); err != nil {
		return err
	}

	now := time.Now()
	if err := conn.WithContext(ctx).Clauses(balanceUpsert(amount, now)).Create(&EntitlementBalance{
		UserID:    userID,
		Balance:   amount,
		CreatedAt: now,
		UpdatedAt: now,
	}).Error; err != nil {
		return err
	}

	logger.L(ctx).Info("entitlement granted",
		zap.String("user_id", userID),
		zap.Int64("amount", amount),
		zap.String("reference", reference),
	)
	return nil
}

// balanceUpsert adds amount to an existing counter. The increment is bound as
// a parameter because mysql has no "excluded" row.
func balanceUpsert(amount int64, now time.Time) clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"balance":    gorm.Expr("entitlement_balances.balance + ?", amount),
			"updated_at": now,
		}),
	}
}

// Consume takes one credit from the user. The check and the decrement are a
// single conditional update, so concurrent consumers cannot overdraw.
func (s *Service) Consume(ctx context.Context, tx *gorm.DB, userID string, reference string) error {
	conn := s.conn(tx)

	res := conn.WithContext(ctx).
		Model(&EntitlementBalance{}).
		Where("user_id = ? AND balance >= ?", userID, 1).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", 1),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.PaymentRequired("no paid readings left", ErrInsufficientBalance)
	}

	if err := s.entries.WithTrx(conn).Create(ctx, &EntitlementEntry{
		ID:        s.node.Generate().String(),
		UserID:    userID,
		Kind:      EntryConsume,
		Amount:    1,
		Reference: reference,
	}); err != nil {
		return err
	}

	logger.L(ctx).Info("entitlement consumed", zap.String("user_id", userID), zap.String("reference", reference))
	return nil
}

// Entries lists the user's journal, newest first.
func (s *Service) Entries(ctx context.Context, userID string, limit int) ([]*EntitlementEntry, error) {
	return s.entries.Find(ctx, &EntitlementEntry{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.ApplyPagination(limit, 0),
	)
}
