package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"readingbot/pkg/config"
	"readingbot/pkg/money"
	"readingbot/pkg/yookassa"
)

func TestYooKassaGatewayCreateCharge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req yookassa.PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "299.00", req.Amount.Value)
		require.Equal(t, "RUB", req.Amount.Currency)
		require.Equal(t, "https://t.me/readingbot", req.Confirmation.ReturnURL)
		require.Equal(t, "buy_5", req.Metadata["package_code"])
		require.Equal(t, "idem-1", r.Header.Get("Idempotence-Key"))

		_, _ = w.Write([]byte(`{"id":"pay_1","status":"pending","confirmation":{"type":"redirect","confirmation_url":"https://pay/1"}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.YooKassa.APIURL = srv.URL
	cfg.YooKassa.ShopID = "shop"
	cfg.YooKassa.SecretKey = "secret"
	cfg.YooKassa.ReturnURL = "https://t.me/readingbot"
	cfg.YooKassa.Timeout = time.Second

	gw := NewYooKassaGateway(yookassa.New(cfg))
	charge, err := gw.CreateCharge(context.Background(), ChargeRequest{
		Amount:         money.RUB(29900),
		Description:    "Package of 5 paid readings",
		Metadata:       map[string]string{"package_code": "buy_5"},
		IdempotenceKey: "idem-1",
	})
	require.NoError(t, err)
	require.Equal(t, &Charge{ExternalID: "pay_1", Status: "pending", ConfirmationURL: "https://pay/1"}, charge)
}
