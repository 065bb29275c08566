package usecase

import (
	"context"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/google/uuid"
)

type OrderUseCase struct {
	orderRepo OrderRepository
}

func NewOrderUC(orderRepo OrderRepository) *OrderUseCase {
	return &OrderUseCase{orderRepo: orderRepo}
}

// GetOrder возвращает заказ магазина вместе с позициями.
func (o *OrderUseCase) GetOrder(ctx context.Context, storeID, orderID uuid.UUID) (*domain.Order, error) {
	const op = "OrderUseCase.GetOrder"

	order, err := o.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	// Чужой заказ не отличаем от несуществующего
	if order.StoreID != storeID {
		return nil, e.Wrap(op, e.ErrOrderNotFound)
	}

	return order, nil
}
