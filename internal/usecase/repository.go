package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StoreRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Store, error)
}

// ProductRepository — складской учёт. Reserve, Release и Consume работают только внутри транзакции.
type ProductRepository interface {
	// Reserve атомарно списывает quantity единиц и возвращает текущую цену.
	// Ошибки: e.ErrProductNotFound, *InsufficientStockError.
	Reserve(ctx context.Context, storeID, productID uuid.UUID, quantity int) (decimal.Decimal, error)
	Release(ctx context.Context, productID uuid.UUID, quantity int) error
	// Consume — условное списание при подтверждении оплаты, возвращает остаток после списания.
	Consume(ctx context.Context, productID uuid.UUID, quantity int) (int, error)
	GetProductsInfo(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]ProductInfo, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	// SetAwaitingPayment переводит pending_link -> awaiting_payment. false, если статус уже другой.
	SetAwaitingPayment(ctx context.Context, id uuid.UUID, reference, checkoutURL string) (bool, error)
	// MarkPaid выставляет is_paid только если заказ ещё не оплачен. false, если уже оплачен или не найден.
	MarkPaid(ctx context.Context, id uuid.UUID, address, phone string) (bool, error)
	// Cancel отменяет заказ, если он всё ещё ожидает оплаты.
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error)
	// LockOpen блокирует открытый заказ (FOR UPDATE SKIP LOCKED). nil, если заказ закрыт или занят.
	LockOpen(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type ShippingDetailsRepository interface {
	Create(ctx context.Context, details *domain.ShippingDetails) error
}

type ShortfallRepository interface {
	Create(ctx context.Context, shortfall *domain.StockShortfall) error
}

type OutboxWriter interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
}

type OutboxRepository interface {
	OutboxWriter
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	ReturnToPending(ctx context.Context, id int64) error
	RequeueStuck(ctx context.Context, olderThan time.Duration) (int64, error)
}

type CacheRepository interface {
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductInfo, error)
	// ProductVersions читается до запроса в БД; SetProducts пропускает товары, чья версия с тех пор изменилась.
	ProductVersions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
	SetProducts(ctx context.Context, products []ProductInfo, versions map[uuid.UUID]int64) error
	// DeleteProducts инвалидирует товары и увеличивает их версии.
	DeleteProducts(ctx context.Context, ids []uuid.UUID) error
}
