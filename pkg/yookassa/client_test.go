package yookassa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return &Client{
		http:      &http.Client{Timeout: time.Second},
		baseURL:   url,
		shopID:    "shop",
		secretKey: "secret",
		returnURL: "https://t.me/readingbot",
	}
}

func TestCreatePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)
		require.Equal(t, "key-1", r.Header.Get("Idempotence-Key"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "shop", user)
		require.Equal(t, "secret", pass)

		var req PaymentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, Amount{Value: "299.00", Currency: "RUB"}, req.Amount)
		require.True(t, req.Capture)
		require.Equal(t, ConfirmationRedirect, req.Confirmation.Type)
		require.Len(t, []rune(req.Description), maxDescriptionLen)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pay_1",
			"status": "pending",
			"paid": false,
			"amount": {"value": "299.00", "currency": "RUB"},
			"confirmation": {"type": "redirect", "confirmation_url": "https://yoomoney.ru/checkout/pay_1"}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	p, err := c.CreatePayment(context.Background(), PaymentRequest{
		Amount:       Amount{Value: "299.00", Currency: "RUB"},
		Capture:      true,
		Confirmation: Confirmation{Type: ConfirmationRedirect, ReturnURL: c.ReturnURL()},
		Description:  strings.Repeat("я", 200),
	}, "key-1")
	require.NoError(t, err)
	require.Equal(t, "pay_1", p.ID)
	require.Equal(t, "https://yoomoney.ru/checkout/pay_1", p.Confirmation.ConfirmationURL)
}

func TestGetPaymentError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"error","id":"e1","code":"not_found","description":"Payment not found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPayment(context.Background(), "missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Equal(t, "not_found", apiErr.Code)
}

func TestNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPayment(context.Background(), "x")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, "bad gateway", apiErr.Description)
}
