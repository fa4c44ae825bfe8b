package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"readingbot/pkg/errutil"
	"readingbot/pkg/middleware"
	"readingbot/pkg/money"
	"readingbot/services/balance"
	"readingbot/services/catalog"
	"readingbot/services/payment"
	"readingbot/services/reading"
	"readingbot/services/webhook"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockPurchases struct {
	createFn func(ctx context.Context, userID, code string) (*payment.Purchase, error)
	payments []*payment.Payment
	limit    int
}

func (m *mockPurchases) CreatePurchase(ctx context.Context, userID, code string) (*payment.Purchase, error) {
	return m.createFn(ctx, userID, code)
}

func (m *mockPurchases) ListByUser(ctx context.Context, userID string, limit int) ([]*payment.Payment, error) {
	m.limit = limit
	return m.payments, nil
}

type mockBalances map[string]int64

func (m mockBalances) Get(ctx context.Context, userID string) (int64, error) {
	return m[userID], nil
}

type mockReadings struct {
	startFn  func(ctx context.Context, userID, label string) (string, error)
	sessions map[string]*reading.Session
	cancelFn func(ctx context.Context, id string) error
}

func (m *mockReadings) Start(ctx context.Context, userID, label string) (string, error) {
	return m.startFn(ctx, userID, label)
}

func (m *mockReadings) Get(ctx context.Context, id string) (*reading.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, errutil.NotFound("reading session not found", reading.ErrSessionNotFound)
	}
	return s, nil
}

func (m *mockReadings) Cancel(ctx context.Context, id string) error {
	return m.cancelFn(ctx, id)
}

type mockDispatcher struct {
	dispatched []string
	err        error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, id string) error {
	m.dispatched = append(m.dispatched, id)
	return m.err
}

type syncFunc func(ctx context.Context, externalID string) (webhook.Outcome, error)

func (f syncFunc) Sync(ctx context.Context, externalID string) (webhook.Outcome, error) {
	return f(ctx, externalID)
}

type fixture struct {
	purchases  *mockPurchases
	readings   *mockReadings
	dispatcher *mockDispatcher
	engine     *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		purchases: &mockPurchases{},
		readings: &mockReadings{
			sessions: map[string]*reading.Session{},
			cancelFn: func(ctx context.Context, id string) error { return nil },
		},
		dispatcher: &mockDispatcher{},
	}
	h := NewHandler(HandlerParams{
		Catalog:    catalog.NewCatalog(),
		Purchases:  f.purchases,
		Balances:   mockBalances{"u-1": 3},
		Readings:   f.readings,
		Dispatcher: f.dispatcher,
		Syncer: syncFunc(func(ctx context.Context, externalID string) (webhook.Outcome, error) {
			if externalID == "down" {
				return "", errutil.BadGateway("poll gateway", errors.New("timeout"))
			}
			return webhook.OutcomeApplied, nil
		}),
	})

	f.engine = gin.New()
	f.engine.Use(middleware.Error())
	h.RegisterRoutes(f.engine)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestListPackages(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/v1/packages", "")
	require.Equal(t, http.StatusOK, w.Code)

	packages := body["packages"].([]any)
	require.Len(t, packages, 3)
	first := packages[0].(map[string]any)
	require.Equal(t, "buy_5", first["code"])
	require.Equal(t, "299.00", first["price"])
}

func TestCreatePurchase(t *testing.T) {
	f := newFixture(t)
	f.purchases.createFn = func(ctx context.Context, userID, code string) (*payment.Purchase, error) {
		require.Equal(t, "u-1", userID)
		require.Equal(t, "buy_10", code)
		return &payment.Purchase{PaymentID: "p-1", ExternalID: "pay_1", RedirectURL: "https://pay/1", Amount: money.RUB(49900)}, nil
	}

	w, body := f.do(t, http.MethodPost, "/v1/purchases", `{"user_id":"u-1","package_code":"buy_10"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "https://pay/1", body["redirect_url"])
}

func TestCreatePurchaseErrors(t *testing.T) {
	f := newFixture(t)
	f.purchases.createFn = func(ctx context.Context, userID, code string) (*payment.Purchase, error) {
		switch code {
		case "buy_5":
			return nil, errutil.BadGateway("gateway rejected the payment", errors.Join(payment.ErrPaymentCreation, errors.New("503")))
		default:
			_, err := catalog.NewCatalog().Lookup(code)
			return nil, err
		}
	}

	w, _ := f.do(t, http.MethodPost, "/v1/purchases", `{"user_id":"u-1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/v1/purchases", `{"user_id":"u-1","package_code":"buy_1000"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = f.do(t, http.MethodPost, "/v1/purchases", `{"user_id":"u-1","package_code":"buy_5"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListPayments(t *testing.T) {
	f := newFixture(t)
	ext := "pay_1"
	f.purchases.payments = []*payment.Payment{{
		ID: "p-1", ExternalID: &ext, Amount: 29900, Currency: "RUB",
		Status: payment.StatusSucceeded, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}

	w, body := f.do(t, http.MethodGet, "/v1/users/u-1/payments?limit=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, maxLimit, f.purchases.limit)

	payments := body["payments"].([]any)
	require.Len(t, payments, 1)
	p := payments[0].(map[string]any)
	require.Equal(t, "pay_1", p["external_id"])
	require.Equal(t, "succeeded", p["status"])
	require.Equal(t, "2026-01-02T03:04:05Z", p["created_at"])

	w, _ = f.do(t, http.MethodGet, "/v1/users/u-1/payments?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/v1/users/u-1/balance", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 3, body["balance"])
}

func TestStartReading(t *testing.T) {
	f := newFixture(t)
	f.readings.startFn = func(ctx context.Context, userID, label string) (string, error) {
		if label == "paid" {
			return "", errutil.PaymentRequired("no paid readings left", balance.ErrInsufficientBalance)
		}
		return "s-1", nil
	}

	w, body := f.do(t, http.MethodPost, "/v1/readings", `{"user_id":"u-1"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, "s-1", body["session_id"])
	require.Equal(t, []string{"s-1"}, f.dispatcher.dispatched)

	w, _ = f.do(t, http.MethodPost, "/v1/readings", `{"user_id":"u-1","label":"paid"}`)
	require.Equal(t, http.StatusPaymentRequired, w.Code)
	require.Len(t, f.dispatcher.dispatched, 1)
}

func TestStartReadingDispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.readings.startFn = func(ctx context.Context, userID, label string) (string, error) { return "s-1", nil }
	f.dispatcher.err = errors.New("redis down")

	w, _ := f.do(t, http.MethodPost, "/v1/readings", `{"user_id":"u-1"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetAndCancelReading(t *testing.T) {
	f := newFixture(t)
	f.readings.sessions["s-1"] = &reading.Session{ID: "s-1", UserID: "u-1", Status: reading.StatusInProgress}
	f.readings.cancelFn = func(ctx context.Context, id string) error {
		if id != "s-1" {
			return errutil.Conflict("reading session is not in progress", reading.ErrSessionClosed)
		}
		return nil
	}

	w, body := f.do(t, http.MethodGet, "/v1/readings/s-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "in_progress", body["status"])

	w, _ = f.do(t, http.MethodGet, "/v1/readings/s-2", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w, _ = f.do(t, http.MethodPost, "/v1/readings/s-1/cancel", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	w, _ = f.do(t, http.MethodPost, "/v1/readings/s-2/cancel", "")
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestSyncPayment(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/v1/payments/pay_1/sync", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "applied", body["outcome"])

	w, _ = f.do(t, http.MethodPost, "/v1/payments/down/sync", "")
	require.Equal(t, http.StatusBadGateway, w.Code)
}
