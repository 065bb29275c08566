package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCheckoutUC struct {
	createOrder func(ctx context.Context, req *usecase.CreateOrderReq) (*usecase.CreateOrderRes, error)
	lastReq     *usecase.CreateOrderReq
}

func (f *fakeCheckoutUC) CreateOrder(ctx context.Context, req *usecase.CreateOrderReq) (*usecase.CreateOrderRes, error) {
	f.lastReq = req
	return f.createOrder(ctx, req)
}

type fakePaymentUC struct {
	handle    func(body []byte, sig string) (*usecase.NotificationRes, error)
	verify    func(storeID, orderID uuid.UUID) (*usecase.VerifyPaymentRes, error)
	lastSig   string
	lastBody  []byte
	reconcile int
}

func (f *fakePaymentUC) HandleNotification(_ context.Context, body []byte, sig string) (*usecase.NotificationRes, error) {
	f.lastBody, f.lastSig = body, sig
	return f.handle(body, sig)
}

func (f *fakePaymentUC) VerifyPayment(_ context.Context, storeID, orderID uuid.UUID) (*usecase.VerifyPaymentRes, error) {
	return f.verify(storeID, orderID)
}

func (f *fakePaymentUC) ReconcileStale(context.Context) (*usecase.ReconcileRes, error) {
	f.reconcile++
	return &usecase.ReconcileRes{}, nil
}

type fakeOrderUC struct {
	order *domain.Order
	err   error
}

func (f *fakeOrderUC) GetOrder(_ context.Context, storeID, orderID uuid.UUID) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.order == nil || f.order.ID != orderID || f.order.StoreID != storeID {
		return nil, e.ErrOrderNotFound
	}
	return f.order, nil
}

type fakeProductUC struct {
	lastReq *usecase.GetProductsReq
	res     *usecase.GetProductsRes
	err     error
}

func (f *fakeProductUC) GetProductsInfo(_ context.Context, req *usecase.GetProductsReq) (*usecase.GetProductsRes, error) {
	f.lastReq = req
	return f.res, f.err
}

type testEnv struct {
	router   *chi.Mux
	checkout *fakeCheckoutUC
	payment  *fakePaymentUC
	orders   *fakeOrderUC
	products *fakeProductUC
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		router:   chi.NewRouter(),
		checkout: &fakeCheckoutUC{},
		payment:  &fakePaymentUC{},
		orders:   &fakeOrderUC{},
		products: &fakeProductUC{},
	}

	conf := &cfg.Config{
		Http: &cfg.HTTPConfig{SwaggerHost: "localhost:8080"},
		Cors: &cfg.CorsCfg{StorefrontOrigin: "http://shop.test"},
	}

	NewRouter(env.router, conf, logger.NewNop()).Init(UseCases{
		Checkout: env.checkout,
		Payment:  env.payment,
		Order:    env.orders,
		Product:  env.products,
	}, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	}))

	return env
}

func (env *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var res ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	return res
}

const validShipping = `{
	"fullName": "Ada Obi",
	"email": "ada@example.com",
	"phone": "+2348000000000",
	"addressLine1": "12 Marina",
	"city": "Lagos",
	"country": "NG"
}`

func checkoutBody(items string) string {
	return fmt.Sprintf(`{"items": %s, "shipping": %s}`, items, validShipping)
}

func TestCheckout_Created(t *testing.T) {
	env := newTestEnv(t)
	storeID, productID, orderID := uuid.New(), uuid.New(), uuid.New()

	env.checkout.createOrder = func(_ context.Context, req *usecase.CreateOrderReq) (*usecase.CreateOrderRes, error) {
		return &usecase.CreateOrderRes{OrderID: orderID, CheckoutURL: "https://pay.test/abc"}, nil
	}

	rec := env.do(http.MethodPost, "/api/v1/"+storeID.String()+"/checkout",
		checkoutBody(fmt.Sprintf(`[{"productId": %q, "quantity": 2}]`, productID)), nil)

	require.Equal(t, http.StatusCreated, rec.Code)

	var res CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, "https://pay.test/abc", res.URL)
	assert.Equal(t, orderID.String(), res.OrderID)

	req := env.checkout.lastReq
	require.NotNil(t, req)
	assert.Equal(t, storeID, req.StoreID)
	require.Len(t, req.Items, 1)
	assert.Equal(t, productID, req.Items[0].ProductID)
	assert.Equal(t, 2, req.Items[0].Quantity)
	assert.Equal(t, "Lagos", req.Shipping.City)
}

func TestCheckout_ValidationErrors(t *testing.T) {
	productID := uuid.New().String()

	tests := []struct {
		name    string
		body    string
		message string
		fields  []string
	}{
		{
			name:    "empty cart",
			body:    checkoutBody(`[]`),
			message: e.ErrEmptyCart.Error(),
		},
		{
			name:    "zero quantity",
			body:    checkoutBody(fmt.Sprintf(`[{"productId": %q, "quantity": 0}]`, productID)),
			message: e.ErrInvalidQuantity.Error(),
		},
		{
			name:    "quantity above column range",
			body:    checkoutBody(fmt.Sprintf(`[{"productId": %q, "quantity": 2147483648}]`, productID)),
			message: e.ErrInvalidQuantity.Error(),
		},
		{
			name:    "bad product id",
			body:    checkoutBody(`[{"productId": "nope", "quantity": 1}]`),
			message: e.ErrInvalidID.Error(),
		},
		{
			name:    "missing shipping fields",
			body:    fmt.Sprintf(`{"items": [{"productId": %q, "quantity": 1}], "shipping": {"fullName": "Ada", "email": "ada@example.com", "phone": "1", "country": "NG"}}`, productID),
			message: e.ErrMissingShippingFields.Error(),
			fields:  []string{"addressLine1", "city"},
		},
		{
			name:    "malformed json",
			body:    `{"items": [`,
			message: e.ErrStatusBadRequest.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.checkout.createOrder = func(context.Context, *usecase.CreateOrderReq) (*usecase.CreateOrderRes, error) {
				t.Fatal("usecase must not be called")
				return nil, nil
			}

			rec := env.do(http.MethodPost, "/api/v1/"+uuid.NewString()+"/checkout", tt.body, nil)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			res := decodeError(t, rec)
			assert.Equal(t, tt.message, res.Message)
			assert.ElementsMatch(t, tt.fields, res.Fields)
		})
	}
}

func TestCheckout_InvalidStoreID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/not-a-uuid/checkout", checkoutBody(`[]`), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, e.ErrInvalidID.Error(), decodeError(t, rec).Message)
}

func TestCheckout_UseCaseErrors(t *testing.T) {
	productID, orderID := uuid.New(), uuid.New()

	tests := []struct {
		name      string
		err       error
		code      int
		productID string
		orderID   string
	}{
		{
			name:      "insufficient stock names the product",
			err:       e.Wrap("CheckoutUseCase.CreateOrder", &usecase.InsufficientStockError{ProductID: productID, Requested: 5, Available: 1}),
			code:      http.StatusConflict,
			productID: productID.String(),
		},
		{
			name: "unknown store",
			err:  e.Wrap("CheckoutUseCase.CreateOrder", e.ErrStoreNotFound),
			code: http.StatusNotFound,
		},
		{
			name: "unknown product",
			err:  e.Wrap("CheckoutUseCase.CreateOrder", e.ErrProductNotFound),
			code: http.StatusNotFound,
		},
		{
			name:    "payment link failed keeps the order id",
			err:     &usecase.OrderCreatedError{OrderID: orderID, Err: fmt.Errorf("%w: timeout", e.ErrProcessor)},
			code:    http.StatusBadGateway,
			orderID: orderID.String(),
		},
		{
			name: "database failure",
			err:  errors.New("connection reset"),
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.checkout.createOrder = func(context.Context, *usecase.CreateOrderReq) (*usecase.CreateOrderRes, error) {
				return nil, tt.err
			}

			rec := env.do(http.MethodPost, "/api/v1/"+uuid.NewString()+"/checkout",
				checkoutBody(fmt.Sprintf(`[{"productId": %q, "quantity": 5}]`, productID)), nil)

			require.Equal(t, tt.code, rec.Code)
			res := decodeError(t, rec)
			assert.Equal(t, tt.code, res.Code)
			assert.Equal(t, tt.productID, res.ProductID)
			assert.Equal(t, tt.orderID, res.OrderID)
		})
	}
}

func TestCheckout_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodOptions, "/api/v1/"+uuid.NewString()+"/checkout", "", map[string]string{
		"Origin":                        "http://shop.test",
		"Access-Control-Request-Method": http.MethodPost,
	})

	assert.Equal(t, "http://shop.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name    string
		res     *usecase.NotificationRes
		err     error
		code    int
		outcome string
	}{
		{
			name:    "paid",
			res:     &usecase.NotificationRes{Outcome: usecase.NotificationPaid},
			code:    http.StatusOK,
			outcome: "paid",
		},
		{
			name:    "duplicate delivery",
			res:     &usecase.NotificationRes{Outcome: usecase.NotificationAlreadyPaid},
			code:    http.StatusOK,
			outcome: "already_paid",
		},
		{
			name: "bad signature",
			err:  e.Wrap("PaymentUseCase.HandleNotification", e.ErrInvalidSignature),
			code: http.StatusBadRequest,
		},
		{
			name: "malformed body",
			err:  e.Wrap("PaymentUseCase.HandleNotification", e.ErrInvalidPayload),
			code: http.StatusBadRequest,
		},
		{
			name: "unknown order",
			err:  e.Wrap("PaymentUseCase.HandleNotification", e.ErrOrderNotFound),
			code: http.StatusNotFound,
		},
		{
			name: "storage failure is retried",
			err:  errors.New("connection refused"),
			code: http.StatusInternalServerError,
		},
		{
			name: "concurrent state change is retried",
			err:  e.Wrap("PaymentUseCase.HandleNotification", e.ErrOrderStateChanged),
			code: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.payment.handle = func([]byte, string) (*usecase.NotificationRes, error) {
				return tt.res, tt.err
			}

			body := `{"event":"charge.success","data":{"reference":"x"}}`
			rec := env.do(http.MethodPost, "/api/v1/webhook", body, map[string]string{
				"X-Paystack-Signature": "abc123",
			})

			require.Equal(t, tt.code, rec.Code)
			assert.Equal(t, "abc123", env.payment.lastSig)
			assert.Equal(t, body, string(env.payment.lastBody))

			if tt.code == http.StatusOK {
				var res WebhookResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
				assert.Equal(t, "ok", res.Status)
				assert.Equal(t, tt.outcome, res.Outcome)
			}
		})
	}
}

func TestWebhook_NoCORSHeaders(t *testing.T) {
	env := newTestEnv(t)
	env.payment.handle = func([]byte, string) (*usecase.NotificationRes, error) {
		return &usecase.NotificationRes{Outcome: usecase.NotificationIgnored}, nil
	}

	rec := env.do(http.MethodPost, "/api/v1/webhook", `{}`, map[string]string{"Origin": "http://shop.test"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv(t)
	paidAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:          uuid.New(),
		StoreID:     uuid.New(),
		Status:      domain.OrderStatusPaid,
		IsPaid:      true,
		TotalAmount: decimal.RequireFromString("25.5"),
		Currency:    "NGN",
		Phone:       "+2348000000000",
		Address:     "12 Marina, Lagos",
		PaidAt:      &paidAt,
		Items: []domain.OrderItem{
			{ProductID: uuid.New(), Quantity: 3, UnitPrice: decimal.RequireFromString("8.5")},
		},
	}
	env.orders.order = order

	rec := env.do(http.MethodGet, fmt.Sprintf("/api/v1/%s/orders/%s", order.StoreID, order.ID), "", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var res OrderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, order.ID.String(), res.ID)
	assert.Equal(t, "paid", res.Status)
	assert.True(t, res.IsPaid)
	assert.Equal(t, "25.50", res.TotalAmount)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "8.50", res.Items[0].UnitPrice)
	require.NotNil(t, res.PaidAt)
	assert.True(t, paidAt.Equal(*res.PaidAt))
}

func TestGetOrder_OtherStore(t *testing.T) {
	env := newTestEnv(t)
	env.orders.order = &domain.Order{ID: uuid.New(), StoreID: uuid.New()}

	rec := env.do(http.MethodGet, fmt.Sprintf("/api/v1/%s/orders/%s", uuid.New(), env.orders.order.ID), "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyPayment(t *testing.T) {
	storeID, orderID := uuid.New(), uuid.New()

	t.Run("confirmed", func(t *testing.T) {
		env := newTestEnv(t)
		env.payment.verify = func(s, o uuid.UUID) (*usecase.VerifyPaymentRes, error) {
			assert.Equal(t, storeID, s)
			assert.Equal(t, orderID, o)
			return &usecase.VerifyPaymentRes{
				OrderID:         o,
				OrderStatus:     domain.OrderStatusPaid,
				ProcessorStatus: "success",
				Confirmed:       true,
			}, nil
		}

		rec := env.do(http.MethodPost, fmt.Sprintf("/api/v1/%s/orders/%s/verify", storeID, orderID), "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var res VerifyPaymentResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.True(t, res.Confirmed)
		assert.Equal(t, "paid", res.OrderStatus)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		env.payment.verify = func(uuid.UUID, uuid.UUID) (*usecase.VerifyPaymentRes, error) {
			return nil, e.Wrap("PaymentUseCase.VerifyPayment", e.ErrAmountMismatch)
		}

		rec := env.do(http.MethodPost, fmt.Sprintf("/api/v1/%s/orders/%s/verify", storeID, orderID), "", nil)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("processor down", func(t *testing.T) {
		env := newTestEnv(t)
		env.payment.verify = func(uuid.UUID, uuid.UUID) (*usecase.VerifyPaymentRes, error) {
			return nil, fmt.Errorf("%w: status 503", e.ErrProcessor)
		}

		rec := env.do(http.MethodPost, fmt.Sprintf("/api/v1/%s/orders/%s/verify", storeID, orderID), "", nil)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestGetProductsInfo(t *testing.T) {
	env := newTestEnv(t)
	storeID, found, missing := uuid.New(), uuid.New(), uuid.New()
	env.products.res = &usecase.GetProductsRes{
		Products: []usecase.ProductInfo{
			{ID: found, StoreID: storeID, Name: "Kettle", Price: decimal.NewFromInt(12), InStock: 4},
		},
		NotFoundProducts: []uuid.UUID{missing},
	}

	rec := env.do(http.MethodGet,
		fmt.Sprintf("/api/v1/%s/products?ids=%s,%s", storeID, found, missing), "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.products.lastReq)
	assert.Equal(t, storeID, env.products.lastReq.StoreID)
	assert.Equal(t, []uuid.UUID{found, missing}, env.products.lastReq.IDs)

	var res ProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Products, 1)
	assert.Equal(t, "12.00", res.Products[0].Price)
	assert.Equal(t, []string{missing.String()}, res.NotFound)
}

func TestGetProductsInfo_BadID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/"+uuid.NewString()+"/products?ids=oops", "", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, env.products.lastReq)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "metrics", rec.Body.String())
}
