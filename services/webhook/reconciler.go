package webhook

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"readingbot/pkg/errutil"
	"readingbot/pkg/logger"
	"readingbot/services/payment"
)

var (
	ErrUnknownPayment = errors.New("unknown payment")
	ErrMalformedEvent = errors.New("malformed payment event")
)

const (
	EventSucceeded = "payment.succeeded"
	EventCanceled  = "payment.canceled"
	EventFailed    = "payment.failed"
)

type Event struct {
	Event  string      `json:"event"`
	Type   string      `json:"type,omitempty"`
	Object EventObject `json:"object"`
}

type EventObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeConflict  Outcome = "conflict"
)

// Ledger is the part of the payment service the reconciler mutates.
type Ledger interface {
	FindByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*payment.Payment, error)
	Transition(ctx context.Context, tx *gorm.DB, externalID string, to payment.Status) (bool, error)
}

type Granter interface {
	Grant(ctx context.Context, tx *gorm.DB, userID string, amount int64, reference string) error
}

type Reconciler struct {
	db      *gorm.DB
	ledger  Ledger
	granter Granter
	gateway payment.Gateway
}

type ReconcilerParams struct {
	fx.In
	DB      *gorm.DB
	Ledger  Ledger
	Granter Granter
	Gateway payment.Gateway
}

func NewReconciler(p ReconcilerParams) *Reconciler {
	return &Reconciler{
		db:      p.DB,
		ledger:  p.Ledger,
		granter: p.Granter,
		gateway: p.Gateway,
	}
}

func targetStatus(event string) (payment.Status, bool) {
	switch event {
	case EventSucceeded:
		return payment.StatusSucceeded, true
	case EventCanceled:
		return payment.StatusCanceled, true
	case EventFailed:
		return payment.StatusFailed, true
	default:
		return "", false
	}
}

// Handle applies a verified gateway notification. Events that do not settle
// a payment are acknowledged without touching state.
func (r *Reconciler) Handle(ctx context.Context, ev Event) (Outcome, error) {
	name := ev.Event
	if name == "" {
		name = ev.Type
	}

	to, ok := targetStatus(name)
	if !ok {
		logger.L(ctx).Info("skipping payment event", zap.String("event", name))
		eventsTotal.WithLabelValues(name, string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}

	if ev.Object.ID == "" {
		return "", errutil.BadRequest("event object id is required", ErrMalformedEvent)
	}

	outcome, err := r.apply(ctx, ev.Object.ID, to)
	if err != nil {
		eventsTotal.WithLabelValues(name, "error").Inc()
		return "", err
	}
	eventsTotal.WithLabelValues(name, string(outcome)).Inc()
	return outcome, nil
}

// Sync asks the gateway for the current state of a charge and applies it
// the same way a notification would be applied.
func (r *Reconciler) Sync(ctx context.Context, externalID string) (Outcome, error) {
	charge, err := r.gateway.GetCharge(ctx, externalID)
	if err != nil {
		return "", errutil.BadGateway("failed to fetch payment status", err)
	}

	var to payment.Status
	switch charge.Status {
	case string(payment.StatusSucceeded):
		to = payment.StatusSucceeded
	case string(payment.StatusCanceled):
		to = payment.StatusCanceled
	default:
		return OutcomeIgnored, nil
	}

	return r.apply(ctx, externalID, to)
}

func (r *Reconciler) apply(ctx context.Context, externalID string, to payment.Status) (Outcome, error) {
	log := logger.L(ctx).With(zap.String("external_id", externalID), zap.String("to", string(to)))

	var outcome Outcome
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := r.ledger.FindByExternalID(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if p == nil {
			return errutil.NotFound("payment not found", ErrUnknownPayment)
		}

		switch {
		case p.Status == to:
			outcome = OutcomeDuplicate
			return nil
		case p.Status.IsTerminal():
			outcome = OutcomeConflict
			return nil
		}

		changed, err := r.ledger.Transition(ctx, tx, externalID, to)
		if err != nil {
			return err
		}
		if !changed {
			// a concurrent delivery settled it first
			outcome = OutcomeDuplicate
			return nil
		}

		if to == payment.StatusSucceeded {
			meta := p.Metadata.Data()
			if meta.EntitlementCount > 0 {
				if err := r.granter.Grant(ctx, tx, p.UserID, int64(meta.EntitlementCount), externalID); err != nil {
					return err
				}
			}
		}

		outcome = OutcomeApplied
		return nil
	})
	if err != nil {
		log.Error("failed to apply payment event", zap.Error(err))
		return "", err
	}

	switch outcome {
	case OutcomeConflict:
		log.Warn("payment already settled with a different status")
	default:
		log.Info("payment event processed", zap.String("outcome", string(outcome)))
	}
	return outcome, nil
}
