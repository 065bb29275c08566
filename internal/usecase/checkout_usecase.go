package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// maxItemQuantity — верхняя граница количества по одному товару, равна диапазону колонки integer.
const maxItemQuantity = math.MaxInt32

// CheckoutUseCase оформляет заказ: резервирует остатки, сохраняет заказ и запрашивает ссылку на оплату.
type CheckoutUseCase struct {
	tx           Transactor
	storeRepo    StoreRepository
	productRepo  ProductRepository
	orderRepo    OrderRepository
	shippingRepo ShippingDetailsRepository
	outbox       OutboxWriter
	cacheRepo    CacheRepository
	processor    PaymentProcessor
	metrics      Metrics
	cfg          *cfg.PaymentCfg
	logger       logger.Logger
}

func NewCheckoutUC(
	tx Transactor,
	storeRepo StoreRepository,
	productRepo ProductRepository,
	orderRepo OrderRepository,
	shippingRepo ShippingDetailsRepository,
	outbox OutboxWriter,
	cacheRepo CacheRepository,
	processor PaymentProcessor,
	metrics Metrics,
	cfg *cfg.PaymentCfg,
	logger logger.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		tx:           tx,
		storeRepo:    storeRepo,
		productRepo:  productRepo,
		orderRepo:    orderRepo,
		shippingRepo: shippingRepo,
		outbox:       outbox,
		cacheRepo:    cacheRepo,
		processor:    processor,
		metrics:      metrics,
		cfg:          cfg,
		logger:       logger,
	}
}

// CreateOrder резервирует товары и создаёт заказ в одной транзакции, затем запрашивает ссылку на оплату.
// Если заказ сохранён, а ссылку получить не удалось, возвращается *OrderCreatedError.
func (c *CheckoutUseCase) CreateOrder(ctx context.Context, req *CreateOrderReq) (res *CreateOrderRes, err error) {
	const op = "CheckoutUseCase.CreateOrder"

	started := time.Now()
	ctx, span := startSpan(ctx, op, attribute.String("store.id", req.StoreID.String()))
	defer func() {
		c.metrics.CheckoutResult(checkoutOutcome(err), time.Since(started))
		endSpan(span, err)
	}()

	// Валидация до открытия транзакции
	items, err := c.validate(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	shipping := req.Shipping
	shipping.ID = uuid.New()

	var order *domain.Order
	err = c.tx.Do(ctx, func(ctx context.Context) error {
		var txErr error
		order, txErr = c.placeOrder(ctx, req.StoreID, items, &shipping)
		return txErr
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	span.SetAttributes(attribute.String("order.id", order.ID.String()))
	c.logger.Infof("order %s created: store %s, total %s %s, items %d",
		order.ID, order.StoreID, order.TotalAmount.StringFixed(2), order.Currency, len(order.Items))

	// Остатки изменились, кэш витрины устарел
	c.invalidateProducts(ctx, items)

	link, err := c.processor.InitializeTransaction(ctx, &PaymentLinkReq{
		Reference: order.Reference(),
		Amount:    order.TotalAmount,
		Currency:  order.Currency,
		Email:     shipping.Email,
		Metadata: PaymentMetadata{
			OrderID: order.ID.String(),
			StoreID: order.StoreID.String(),
			Address: order.Address,
			Phone:   order.Phone,
		},
	})
	if err != nil {
		// Заказ остаётся в pending_link с зарезервированным товаром, его подберёт сверка
		c.logger.Errorf(err, "payment link failed for order %s, left in %s for reconciliation",
			order.ID, domain.OrderStatusPendingLink)
		return nil, &OrderCreatedError{OrderID: order.ID, Err: err}
	}

	ok, err := c.orderRepo.SetAwaitingPayment(ctx, order.ID, link.Reference, link.AuthorizationURL)
	if err != nil {
		// Ссылка уже выдана, покупатель может оплатить; вебхук переведёт заказ из pending_link сразу в paid
		c.logger.Errorf(err, "failed to store payment link for order %s", order.ID)
	} else if !ok {
		c.logger.Warnf("order %s left %s before payment link was stored", order.ID, domain.OrderStatusPendingLink)
	}

	return &CreateOrderRes{
		OrderID:     order.ID,
		CheckoutURL: link.AuthorizationURL,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

// placeOrder выполняется внутри транзакции. Любая ошибка откатывает все изменения.
func (c *CheckoutUseCase) placeOrder(ctx context.Context, storeID uuid.UUID, items []CartItem, shipping *domain.ShippingDetails) (*domain.Order, error) {
	if _, err := c.storeRepo.Get(ctx, storeID); err != nil {
		return nil, err
	}

	order := domain.NewOrder(storeID, shipping, decimal.Zero, c.cfg.Currency)

	total := decimal.Zero
	order.Items = make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		price, err := c.productRepo.Reserve(ctx, storeID, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}

		orderItem := domain.NewOrderItem(order.ID, item.ProductID, item.Quantity, price)
		total = total.Add(orderItem.LineTotal())
		order.Items = append(order.Items, orderItem)
	}
	order.TotalAmount = total

	if err := c.shippingRepo.Create(ctx, shipping); err != nil {
		return nil, err
	}

	if err := c.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	event, err := NewOutboxEvent(OrderCreated, order.ID, newOrderCreatedPayload(order))
	if err != nil {
		return nil, err
	}

	if _, err := c.outbox.Create(ctx, event); err != nil {
		return nil, err
	}

	return order, nil
}

// validate проверяет запрос и возвращает позиции, объединённые по товару и отсортированные по id.
// Сортировка задаёт одинаковый порядок блокировок строк products во всех транзакциях.
func (c *CheckoutUseCase) validate(req *CreateOrderReq) ([]CartItem, error) {
	if req.StoreID == uuid.Nil {
		return nil, e.ErrInvalidID
	}

	if len(req.Items) == 0 {
		return nil, e.ErrEmptyCart
	}

	if missing := req.Shipping.MissingFields(); len(missing) > 0 {
		return nil, &FieldsError{Err: e.ErrMissingShippingFields, Fields: missing}
	}

	merged := make(map[uuid.UUID]int, len(req.Items))
	for _, item := range req.Items {
		if item.ProductID == uuid.Nil {
			return nil, e.ErrInvalidID
		}
		if item.Quantity <= 0 || item.Quantity > maxItemQuantity {
			return nil, e.Wrap(item.ProductID.String(), e.ErrInvalidQuantity)
		}
		// Сумма проверяется до сложения, иначе int может переполниться
		if merged[item.ProductID] > maxItemQuantity-item.Quantity {
			return nil, e.Wrap(item.ProductID.String(), e.ErrInvalidQuantity)
		}
		merged[item.ProductID] += item.Quantity
	}

	items := make([]CartItem, 0, len(merged))
	for id, qty := range merged {
		items = append(items, CartItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})

	return items, nil
}

func (c *CheckoutUseCase) invalidateProducts(ctx context.Context, items []CartItem) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	if err := c.cacheRepo.DeleteProducts(ctx, ids); err != nil {
		c.logger.Warnf("Failed to delete products from cache: %v", err)
	}
}

func newOrderCreatedPayload(order *domain.Order) OrderCreatedPayload {
	items := make([]OrderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemPayload{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	return OrderCreatedPayload{
		OrderID:     order.ID.String(),
		StoreID:     order.StoreID.String(),
		TotalAmount: order.TotalAmount.StringFixed(2),
		Currency:    order.Currency,
		Items:       items,
	}
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, e.ErrPaymentLinkFailed):
		return "payment_link_failed"
	case errors.Is(err, e.ErrValidation):
		return "invalid"
	case errors.Is(err, e.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, e.ErrStoreNotFound), errors.Is(err, e.ErrProductNotFound):
		return "not_found"
	default:
		return "error"
	}
}
