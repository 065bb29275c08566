package usecase

import (
	"context"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/google/uuid"
)

type CheckoutUC interface {
	CreateOrder(ctx context.Context, req *CreateOrderReq) (*CreateOrderRes, error)
}

type PaymentUC interface {
	HandleNotification(ctx context.Context, body []byte, signature string) (*NotificationRes, error)
	VerifyPayment(ctx context.Context, storeID, orderID uuid.UUID) (*VerifyPaymentRes, error)
	ReconcileStale(ctx context.Context) (*ReconcileRes, error)
}

type OrderUC interface {
	GetOrder(ctx context.Context, storeID, orderID uuid.UUID) (*domain.Order, error)
}

type ProductUC interface {
	GetProductsInfo(ctx context.Context, req *GetProductsReq) (*GetProductsRes, error)
}
