package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"readingbot/pkg/errutil"
	"readingbot/services/catalog"
	"readingbot/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockGateway struct {
	createFn func(ctx context.Context, req ChargeRequest) (*Charge, error)
	getFn    func(ctx context.Context, externalID string) (*Charge, error)

	requests []ChargeRequest
}

func (m *mockGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	m.requests = append(m.requests, req)
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &Charge{
		ExternalID:      "ext-" + req.Metadata["payment_id"],
		Status:          "pending",
		ConfirmationURL: "https://pay.example/confirm/" + req.Metadata["payment_id"],
	}, nil
}

func (m *mockGateway) GetCharge(ctx context.Context, externalID string) (*Charge, error) {
	if m.getFn != nil {
		return m.getFn(ctx, externalID)
	}
	return &Charge{ExternalID: externalID, Status: "pending"}, nil
}

func newTestService(t *testing.T, gw Gateway) (*Service, *gorm.DB) {
	t.Helper()

	db := testutil.NewTestDB(t, &Payment{})
	node := testutil.NewNode(t)

	return NewService(ServiceParams{
		DB:      db,
		Node:    node,
		Catalog: catalog.NewCatalog(),
		Gateway: gw,
	}), db
}

func TestCreatePurchase(t *testing.T) {
	gw := &mockGateway{}
	svc, _ := newTestService(t, gw)
	ctx := context.Background()

	purchase, err := svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)
	require.Equal(t, int64(29900), purchase.Amount.Amount)
	require.Equal(t, "RUB", purchase.Amount.Currency)
	require.Equal(t, "ext-"+purchase.PaymentID, purchase.ExternalID)
	require.NotEmpty(t, purchase.RedirectURL)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	require.True(t, strings.HasPrefix(req.IdempotenceKey, purchase.PaymentID+":"))
	require.Equal(t, "buy_5", req.Metadata["package_code"])
	require.Equal(t, "5", req.Metadata["entitlement_count"])
	require.Equal(t, "user-1", req.Metadata["user_id"])

	stored, err := svc.Get(ctx, purchase.PaymentID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, stored.Status)
	require.Equal(t, purchase.ExternalID, stored.External())
	require.Equal(t, purchase.RedirectURL, stored.ConfirmationURL)
	require.Equal(t, "buy_5", stored.Metadata.Data().PackageCode)
	require.Equal(t, 5, stored.Metadata.Data().EntitlementCount)
}

func TestCreatePurchaseAmountMatchesCatalog(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})
	ctx := context.Background()

	for _, pkg := range catalog.NewCatalog().List() {
		purchase, err := svc.CreatePurchase(ctx, "user-1", pkg.Code)
		require.NoError(t, err, pkg.Code)

		stored, err := svc.Get(ctx, purchase.PaymentID)
		require.NoError(t, err)
		require.True(t, stored.Money().Equal(pkg.Price), pkg.Code)
	}
}

func TestCreatePurchaseUnknownPackage(t *testing.T) {
	gw := &mockGateway{}
	svc, db := newTestService(t, gw)

	_, err := svc.CreatePurchase(context.Background(), "user-1", "buy_1000")
	require.ErrorIs(t, err, catalog.ErrUnknownPackage)
	require.Empty(t, gw.requests)

	var count int64
	require.NoError(t, db.Model(&Payment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCreatePurchaseCompensatesOnGatewayFailure(t *testing.T) {
	gatewayErr := errors.New("connection reset")
	gw := &mockGateway{
		createFn: func(ctx context.Context, req ChargeRequest) (*Charge, error) {
			return nil, gatewayErr
		},
	}
	svc, db := newTestService(t, gw)

	_, err := svc.CreatePurchase(context.Background(), "user-1", "buy_10")
	require.ErrorIs(t, err, ErrPaymentCreation)
	require.ErrorIs(t, err, gatewayErr)
	require.Equal(t, errutil.StatusBadGateway, errutil.StatusOf(err))

	var count int64
	require.NoError(t, db.Model(&Payment{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateKeepsNilFields(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})
	ctx := context.Background()

	purchase, err := svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)

	desc := "gift"
	require.NoError(t, svc.Update(ctx, nil, purchase.PaymentID, PaymentUpdate{Description: &desc}))

	stored, err := svc.Get(ctx, purchase.PaymentID)
	require.NoError(t, err)
	require.Equal(t, "gift", stored.Description)
	require.Equal(t, purchase.ExternalID, stored.External())
	require.Equal(t, purchase.RedirectURL, stored.ConfirmationURL)

	meta := Metadata{PackageCode: "buy_5", EntitlementCount: 6}
	require.NoError(t, svc.Update(ctx, nil, purchase.PaymentID, PaymentUpdate{Metadata: &meta}))

	stored, err = svc.Get(ctx, purchase.PaymentID)
	require.NoError(t, err)
	require.Equal(t, 6, stored.Metadata.Data().EntitlementCount)
	require.Equal(t, "gift", stored.Description)
}

func TestUpdateUnknownPayment(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})

	desc := "x"
	err := svc.Update(context.Background(), nil, "missing", PaymentUpdate{Description: &desc})
	require.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestTransitionOnlyFromPending(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})
	ctx := context.Background()

	purchase, err := svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)

	changed, err := svc.Transition(ctx, nil, purchase.ExternalID, StatusSucceeded)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = svc.Transition(ctx, nil, purchase.ExternalID, StatusSucceeded)
	require.NoError(t, err)
	require.False(t, changed)

	changed, err = svc.Transition(ctx, nil, purchase.ExternalID, StatusCanceled)
	require.NoError(t, err)
	require.False(t, changed)

	stored, err := svc.Get(ctx, purchase.PaymentID)
	require.NoError(t, err)
	require.Equal(t, StatusSucceeded, stored.Status)
}

func TestTransitionRejectsPendingTarget(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})

	_, err := svc.Transition(context.Background(), nil, "ext", StatusPending)
	require.Error(t, err)
}

func TestFindByExternalID(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})
	ctx := context.Background()

	got, err := svc.FindByExternalID(ctx, nil, "unknown")
	require.NoError(t, err)
	require.Nil(t, got)

	purchase, err := svc.CreatePurchase(ctx, "user-1", "buy_20")
	require.NoError(t, err)

	got, err = svc.FindByExternalID(ctx, nil, purchase.ExternalID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, purchase.PaymentID, got.ID)
}

func TestListByUser(t *testing.T) {
	svc, _ := newTestService(t, &mockGateway{})
	ctx := context.Background()

	_, err := svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)
	_, err = svc.CreatePurchase(ctx, "user-1", "buy_10")
	require.NoError(t, err)
	_, err = svc.CreatePurchase(ctx, "user-2", "buy_5")
	require.NoError(t, err)

	list, err := svc.ListByUser(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
}

type numbersFunc func(ctx context.Context) (string, error)

func (f numbersFunc) NextOrderNumber(ctx context.Context) (string, error) { return f(ctx) }

func TestCreatePurchaseOrderNumber(t *testing.T) {
	gw := &mockGateway{}
	svc, _ := newTestService(t, gw)
	ctx := context.Background()

	// without a generator the payment id doubles as the order number
	purchase, err := svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)
	require.Equal(t, purchase.PaymentID, purchase.Number)

	svc.numbers = numbersFunc(func(ctx context.Context) (string, error) { return "RB-260118-001AB", nil })
	purchase, err = svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)
	require.Equal(t, "RB-260118-001AB", purchase.Number)
	require.Equal(t, "RB-260118-001AB", gw.requests[1].Metadata["order_number"])
	require.Contains(t, gw.requests[1].Description, "RB-260118-001AB")

	stored, err := svc.Get(ctx, purchase.PaymentID)
	require.NoError(t, err)
	require.Equal(t, "RB-260118-001AB", stored.Number)

	svc.numbers = numbersFunc(func(ctx context.Context) (string, error) { return "", errors.New("redis down") })
	purchase, err = svc.CreatePurchase(ctx, "user-1", "buy_5")
	require.NoError(t, err)
	require.Equal(t, purchase.PaymentID, purchase.Number)
}

type flagsFunc func(feature, identifier string) bool

func (f flagsFunc) Enabled(ctx context.Context, feature, identifier string, fallback bool) bool {
	return f(feature, identifier)
}

func TestCreatePurchaseDisabledByFlag(t *testing.T) {
	gw := &mockGateway{}
	svc, _ := newTestService(t, gw)
	svc.flags = flagsFunc(func(feature, identifier string) bool {
		return identifier != "user-blocked"
	})

	_, err := svc.CreatePurchase(context.Background(), "user-blocked", "buy_5")
	require.ErrorIs(t, err, ErrPurchasesOff)
	require.Equal(t, errutil.StatusServiceUnavailable, errutil.StatusOf(err))
	require.Empty(t, gw.requests)

	_, err = svc.CreatePurchase(context.Background(), "user-1", "buy_5")
	require.NoError(t, err)
}
