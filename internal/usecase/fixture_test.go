package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/DRSN-tech/storefront-backend/pkg/signature"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "whsec_test"

type fixture struct {
	db        *memDB
	processor *fakeProcessor
	cache     *fakeCache
	archive   *fakeArchive
	metrics   *fakeMetrics

	checkout *CheckoutUseCase
	payment  *PaymentUseCase
	storeID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newMemDB()
	f := &fixture{
		db:        db,
		processor: newFakeProcessor(),
		cache:     newFakeCache(),
		archive:   &fakeArchive{},
		metrics:   newFakeMetrics(),
		storeID:   db.addStore(),
	}

	paymentCfg := &cfg.PaymentCfg{
		SigningSecret:  testSigningSecret,
		Currency:       "NGN",
		RequestTimeout: time.Second,
	}
	reconcileCfg := &cfg.ReconcileCfg{
		Interval:   time.Minute,
		PendingTTL: 30 * time.Minute,
		BatchSize:  10,
	}

	f.checkout = NewCheckoutUC(
		db,
		memStoreRepo{db},
		memProductRepo{db},
		memOrderRepo{db},
		memShippingRepo{db},
		memOutbox{db},
		f.cache,
		f.processor,
		f.metrics,
		paymentCfg,
		logger.NewNop(),
	)

	f.payment = NewPaymentUC(
		db,
		memOrderRepo{db},
		memProductRepo{db},
		memShortfallRepo{db},
		memOutbox{db},
		f.cache,
		f.archive,
		f.processor,
		f.metrics,
		paymentCfg,
		reconcileCfg,
		logger.NewNop(),
	)
	f.payment.now = func() time.Time { return db.now }

	return f
}

func validShipping() domain.ShippingDetails {
	return domain.ShippingDetails{
		FullName:     "Ada Obi",
		Email:        "ada@example.com",
		Phone:        "+2348000000000",
		AddressLine1: "12 Marina Rd",
		City:         "Lagos",
		Country:      "NG",
	}
}

func (f *fixture) checkoutReq(items ...CartItem) *CreateOrderReq {
	return &CreateOrderReq{
		StoreID:  f.storeID,
		Items:    items,
		Shipping: validShipping(),
	}
}

// placeOrder оформляет заказ и проверяет, что он создан.
func (f *fixture) placeOrder(t *testing.T, items ...CartItem) *CreateOrderRes {
	t.Helper()

	res, err := f.checkout.CreateOrder(context.Background(), f.checkoutReq(items...))
	require.NoError(t, err)
	return res
}

// signedEvent собирает тело вебхука и его подпись.
func signedEvent(t *testing.T, event, reference, status string) ([]byte, string) {
	t.Helper()

	ev := PaymentEvent{Event: event}
	ev.Data.Reference = reference
	ev.Data.Status = status
	ev.Data.Metadata.Address = "1 Confirmed St, Lagos"
	ev.Data.Metadata.Phone = "+2348111111111"

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	return body, signature.Sign(testSigningSecret, body)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
