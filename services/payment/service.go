package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"readingbot/pkg/db/option"
	"readingbot/pkg/featureflags"
	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
	"readingbot/pkg/repository"
	"readingbot/pkg/sequence"
	"readingbot/services/catalog"
)

var (
	ErrPaymentCreation = errors.New("payment creation failed")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrPurchasesOff    = errors.New("purchases are disabled")
)

// Gateway is the external payment provider.
type Gateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, externalID string) (*Charge, error)
}

type Service struct {
	db      *gorm.DB
	node    *snowflake.Node
	catalog *catalog.Catalog
	gateway Gateway
	numbers sequence.Generator
	flags   featureflags.FeatureFlag

	payments repository.Repository[Payment]
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Catalog *catalog.Catalog
	Gateway Gateway
	Numbers sequence.Generator       `optional:"true"`
	Flags   featureflags.FeatureFlag `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:      p.DB,
		node:    p.Node,
		catalog: p.Catalog,
		gateway: p.Gateway,
		numbers: p.Numbers,
		flags:   p.Flags,

		payments: repository.ProvideStore[Payment](p.DB),
	}
}

func (s *Service) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

// CreatePurchase records a pending payment for the package and opens a charge
// at the gateway. When the gateway call fails the pending row is compensated
// so no orphan is left behind.
func (s *Service) CreatePurchase(ctx context.Context, userID, packageCode string) (*Purchase, error) {
	if s.flags != nil && !s.flags.Enabled(ctx, featureflags.PurchasesEnabled, userID, true) {
		return nil, errutil.New(errutil.StatusServiceUnavailable, "purchases are temporarily disabled",
			errutil.WithErr(ErrPurchasesOff))
	}

	pkg, err := s.catalog.Lookup(packageCode)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	id := s.node.Generate().String()
	p := &Payment{
		ID:          id,
		UserID:      userID,
		Number:      s.orderNumber(ctx, id),
		Amount:      pkg.Price.Amount,
		Currency:    pkg.Price.Currency,
		Status:      StatusPending,
		Description: pkg.Description,
		Metadata: datatypes.NewJSONType(Metadata{
			PackageCode:      pkg.Code,
			EntitlementCount: pkg.EntitlementCount,
			CorrelationID:    correlationID,
		}),
	}
	log := logger.L(ctx).With(
		zap.String("payment_id", p.ID),
		zap.String("user_id", userID),
		zap.String("package_code", pkg.Code),
	)

	if err := s.payments.Create(ctx, p); err != nil {
		log.Error("failed to create payment", zap.Error(err))
		return nil, err
	}

	charge, err := s.gateway.CreateCharge(ctx, ChargeRequest{
		Amount:      pkg.Price,
		Description: fmt.Sprintf("%s, order %s", pkg.Description, p.Number),
		Metadata: map[string]string{
			"payment_id":        p.ID,
			"order_number":      p.Number,
			"user_id":           userID,
			"package_code":      pkg.Code,
			"entitlement_count": strconv.Itoa(pkg.EntitlementCount),
		},
		IdempotenceKey: p.ID + ":" + correlationID,
	})
	if err != nil {
		log.Warn("gateway rejected charge", zap.Error(err))
		s.compensate(ctx, p.ID)
		return nil, errutil.BadGateway("payment provider is unavailable", errors.Join(ErrPaymentCreation, err))
	}

	if err := s.Update(ctx, nil, p.ID, PaymentUpdate{
		ExternalID:      &charge.ExternalID,
		ConfirmationURL: &charge.ConfirmationURL,
	}); err != nil {
		log.Error("failed to store gateway reference", zap.String("external_id", charge.ExternalID), zap.Error(err))
		s.compensate(ctx, p.ID)
		return nil, errutil.Internal("failed to store payment", errors.Join(ErrPaymentCreation, err))
	}

	log.Info("payment created", zap.String("external_id", charge.ExternalID))
	return &Purchase{
		PaymentID:   p.ID,
		Number:      p.Number,
		ExternalID:  charge.ExternalID,
		RedirectURL: charge.ConfirmationURL,
		Amount:      pkg.Price,
		Description: pkg.Description,
	}, nil
}

// orderNumber falls back to the payment id when no generator is wired or
// the counter is unavailable.
func (s *Service) orderNumber(ctx context.Context, paymentID string) string {
	if s.numbers == nil {
		return paymentID
	}
	n, err := s.numbers.NextOrderNumber(ctx)
	if err != nil {
		logger.L(ctx).Warn("order number unavailable, using payment id", zap.String("payment_id", paymentID), zap.Error(err))
		return paymentID
	}
	return n
}

// compensate removes a pending payment that never reached the gateway. If
// the delete fails the row is marked failed instead.
func (s *Service) compensate(ctx context.Context, paymentID string) {
	log := logger.L(ctx).With(zap.String("payment_id", paymentID))

	err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", paymentID, StatusPending).
		Delete(&Payment{}).Error
	if err == nil {
		log.Info("pending payment compensated")
		return
	}

	log.Warn("compensating delete failed, marking payment failed", zap.Error(err))
	if err := s.db.WithContext(ctx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", paymentID, StatusPending).
		Updates(map[string]any{"status": StatusFailed, "updated_at": time.Now()}).Error; err != nil {
		log.Error("failed to mark payment failed", zap.Error(err))
	}
}

// Update applies a PaymentUpdate with one fixed statement; nil fields keep
// the stored value.
func (s *Service) Update(ctx context.Context, tx *gorm.DB, paymentID string, upd PaymentUpdate) error {
	var metadata any
	if upd.Metadata != nil {
		raw, err := json.Marshal(upd.Metadata)
		if err != nil {
			return err
		}
		metadata = string(raw)
	}

	res := s.conn(tx).WithContext(ctx).Exec(
		`UPDATE payments SET
			external_id = COALESCE(?, external_id),
			confirmation_url = COALESCE(?, confirmation_url),
			description = COALESCE(?, description),
			metadata = COALESCE(?, metadata),
			updated_at = ?
		WHERE id = ?`,
		upd.ExternalID, upd.ConfirmationURL, upd.Description, metadata, time.Now(), paymentID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errutil.NotFound("payment not found", ErrPaymentNotFound)
	}
	return nil
}

// Transition moves a pending payment to status to. It reports false when the
// payment is not pending anymore, which makes redelivered events harmless.
func (s *Service) Transition(ctx context.Context, tx *gorm.DB, externalID string, to Status) (bool, error) {
	if !to.IsTerminal() {
		return false, errutil.BadRequest("target status must be terminal", nil)
	}

	res := s.conn(tx).WithContext(ctx).
		Model(&Payment{}).
		Where("external_id = ? AND status = ?", externalID, StatusPending).
		Updates(map[string]any{
			"status":     to,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Service) Get(ctx context.Context, paymentID string) (*Payment, error) {
	p, err := s.payments.FindOne(ctx, &Payment{ID: paymentID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payment not found", ErrPaymentNotFound)
	}
	return p, nil
}

// FindByExternalID returns nil, nil when the gateway reference is unknown.
func (s *Service) FindByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*Payment, error) {
	return s.payments.WithTrx(tx).FindOne(ctx, &Payment{ExternalID: &externalID})
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Payment, error) {
	return s.payments.Find(ctx, &Payment{UserID: userID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc"}),
		option.ApplyPagination(limit, 0),
	)
}

// Pending lists pending payments older than the given age, oldest first. The
// reconciler polls these against the gateway.
func (s *Service) Pending(ctx context.Context, olderThan time.Duration, limit int) ([]*Payment, error) {
	return s.payments.Find(ctx, &Payment{Status: StatusPending},
		option.ApplyOperator(option.Condition{Field: "created_at", Operator: option.LT, Value: time.Now().Add(-olderThan)}),
		option.ApplyOperator(option.Condition{Field: "external_id", Operator: option.ISNOTNULL}),
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
		option.ApplyPagination(limit, 0),
	)
}
