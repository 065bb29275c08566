package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&cfg.PaymentCfg{
		BaseURL:        srv.URL,
		SecretKey:      "sk_test",
		RequestTimeout: time.Second,
		MaxRetries:     2,
		CallbackURL:    "https://shop.example/thanks",
	}, logger.NewNop())
	c.backoff.Base = time.Millisecond
	c.backoff.Max = 2 * time.Millisecond

	return c
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestClient_InitializeTransaction(t *testing.T) {
	var got initializeRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transaction/initialize", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "Authorization URL created",
			"data": map[string]any{
				"authorization_url": "https://checkout.paystack.com/abc",
				"access_code":       "abc",
				"reference":         got.Reference,
			},
		})
	})

	res, err := c.InitializeTransaction(context.Background(), &usecase.PaymentLinkReq{
		Reference: "order-1",
		Amount:    decimal.RequireFromString("33.05"),
		Currency:  "NGN",
		Email:     "ada@example.com",
		Metadata:  usecase.PaymentMetadata{OrderID: "order-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.paystack.com/abc", res.AuthorizationURL)
	assert.Equal(t, "order-1", res.Reference)
	assert.Equal(t, int64(3305), got.Amount)
	assert.Equal(t, "https://shop.example/thanks", got.CallbackURL)
	assert.Equal(t, "order-1", got.Metadata.OrderID)
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]any{"status": false, "message": "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data":   map[string]any{"authorization_url": "https://pay/x", "reference": "r"},
		})
	})

	res, err := c.InitializeTransaction(context.Background(), &usecase.PaymentLinkReq{Reference: "r"})
	require.NoError(t, err)
	assert.Equal(t, "https://pay/x", res.AuthorizationURL)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, map[string]any{"status": false, "message": "Invalid key"})
	})

	_, err := c.InitializeTransaction(context.Background(), &usecase.PaymentLinkReq{Reference: "r"})
	require.ErrorIs(t, err, e.ErrProcessor)
	assert.Contains(t, err.Error(), "Invalid key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.InitializeTransaction(context.Background(), &usecase.PaymentLinkReq{Reference: "r"})
	require.ErrorIs(t, err, e.ErrProcessor)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_VerifyTransaction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/order-1", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data": map[string]any{
				"reference": "order-1",
				"status":    "success",
				"amount":    3305,
				"currency":  "NGN",
				"paid_at":   "2026-01-10T12:00:00Z",
				"metadata":  map[string]any{"order_id": "order-1", "address": "1 Main St"},
			},
		})
	})

	res, err := c.VerifyTransaction(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, int64(3305), res.Amount)
	assert.Equal(t, "1 Main St", res.Metadata.Address)
	require.NotNil(t, res.PaidAt)
}

func TestClient_VerifyEmptyMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": true,
			"data":   map[string]any{"reference": "r", "status": "abandoned", "metadata": ""},
		})
	})

	res, err := c.VerifyTransaction(context.Background(), "r")
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.False(t, res.InProgress())
	assert.Empty(t, res.Metadata.OrderID)
}

func TestClient_VerifyUnknownReference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"status": false, "message": "Transaction reference not found"})
	})

	_, err := c.VerifyTransaction(context.Background(), "missing")
	require.ErrorIs(t, err, e.ErrPaymentReferenceNotFound)
}
