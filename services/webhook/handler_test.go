package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"readingbot/pkg/middleware"
)

func newTestRouter(t *testing.T, f *fixture, v *Verifier) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(v, f.rec).RegisterRoutes(r)
	return r
}

func post(r http.Handler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/yookassa", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNotifyStatusCodes(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier("s3cret")
	r := newTestRouter(t, f, v)

	f.gateway.nextID = "pay_1"
	_, err := f.payments.CreatePurchase(context.Background(), "user-1", "buy_5")
	require.NoError(t, err)

	ok := `{"event":"payment.succeeded","object":{"id":"pay_1","status":"succeeded"}}`
	unknown := `{"event":"payment.succeeded","object":{"id":"pay_404"}}`
	ignored := `{"event":"refund.succeeded","object":{"id":"pay_1"}}`
	malformed := `{"event":`

	tests := []struct {
		name      string
		body      string
		signature string
		want      int
	}{
		{name: "missing signature", body: ok, signature: "", want: http.StatusBadRequest},
		{name: "invalid signature", body: ok, signature: "sha256_" + v.Sign([]byte(unknown)), want: http.StatusUnauthorized},
		{name: "malformed json", body: malformed, signature: v.Sign([]byte(malformed)), want: http.StatusBadRequest},
		{name: "unknown payment", body: unknown, signature: v.Sign([]byte(unknown)), want: http.StatusNotFound},
		{name: "ignored event", body: ignored, signature: v.Sign([]byte(ignored)), want: http.StatusOK},
		{name: "applied", body: ok, signature: "sha256_" + v.Sign([]byte(ok)), want: http.StatusOK},
		{name: "redelivery", body: ok, signature: v.Sign([]byte(ok)), want: http.StatusOK},
	}

	for _, tt := range tests {
		w := post(r, tt.body, tt.signature)
		require.Equal(t, tt.want, w.Code, tt.name)
	}

	got, err := f.balances.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), got)
}
