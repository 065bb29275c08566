package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/DRSN-tech/storefront-backend/pkg/signature"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// eventChargeSuccess — единственное событие провайдера, меняющее состояние заказа
	eventChargeSuccess = "charge.success"
	statusSuccess      = "success"

	archiveTimeout = 3 * time.Second
)

// PaymentUseCase сверяет заказы с платёжным провайдером: вебхуки, ручная проверка и фоновая сверка.
type PaymentUseCase struct {
	tx            Transactor
	orderRepo     OrderRepository
	productRepo   ProductRepository
	shortfallRepo ShortfallRepository
	outbox        OutboxWriter
	cacheRepo     CacheRepository
	archive       NotificationArchive
	processor     PaymentProcessor
	metrics       Metrics
	cfg           *cfg.PaymentCfg
	reconcileCfg  *cfg.ReconcileCfg
	logger        logger.Logger
	now           func() time.Time
}

func NewPaymentUC(
	tx Transactor,
	orderRepo OrderRepository,
	productRepo ProductRepository,
	shortfallRepo ShortfallRepository,
	outbox OutboxWriter,
	cacheRepo CacheRepository,
	archive NotificationArchive,
	processor PaymentProcessor,
	metrics Metrics,
	cfg *cfg.PaymentCfg,
	reconcileCfg *cfg.ReconcileCfg,
	logger logger.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		tx:            tx,
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		shortfallRepo: shortfallRepo,
		outbox:        outbox,
		cacheRepo:     cacheRepo,
		archive:       archive,
		processor:     processor,
		metrics:       metrics,
		cfg:           cfg,
		reconcileCfg:  reconcileCfg,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleNotification проверяет подпись вебхука и подтверждает оплату заказа.
// Повторная доставка того же уведомления не меняет остатки.
func (p *PaymentUseCase) HandleNotification(ctx context.Context, body []byte, sig string) (res *NotificationRes, err error) {
	const op = "PaymentUseCase.HandleNotification"

	ctx, span := startSpan(ctx, op)
	defer func() {
		p.metrics.NotificationResult(notificationOutcome(res, err))
		endSpan(span, err)
	}()

	// Подпись — единственная аутентификация этого эндпоинта
	if !signature.Verify(p.cfg.SigningSecret, body, sig) {
		p.logger.Warnf("security: rejected payment notification with invalid signature (%d bytes)", len(body))
		return nil, e.Wrap(op, e.ErrInvalidSignature)
	}

	var event PaymentEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, e.Wrap(op, e.Wrap(err.Error(), e.ErrInvalidPayload))
	}

	p.archiveNotification(ctx, event.Data.Reference, body)

	if event.Event != eventChargeSuccess || event.Data.Status != statusSuccess {
		p.logger.Debugf("payment notification %q (status %q) ignored", event.Event, event.Data.Status)
		return &NotificationRes{Outcome: NotificationIgnored}, nil
	}

	orderID, err := correlationOrderID(event.Data.Reference, event.Data.Metadata.OrderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	span.SetAttributes(attribute.String("order.id", orderID.String()))

	res, err = p.confirm(ctx, orderID, event.Data.Metadata.Address, event.Data.Metadata.Phone, "webhook")
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return res, nil
}

// VerifyPayment запрашивает у провайдера состояние транзакции заказа и подтверждает оплату, если она прошла.
// Резервный путь на случай потерянного вебхука.
func (p *PaymentUseCase) VerifyPayment(ctx context.Context, storeID, orderID uuid.UUID) (res *VerifyPaymentRes, err error) {
	const op = "PaymentUseCase.VerifyPayment"

	ctx, span := startSpan(ctx, op, attribute.String("order.id", orderID.String()))
	defer func() { endSpan(span, err) }()

	order, err := p.orderRepo.Get(ctx, orderID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if order.StoreID != storeID {
		return nil, e.Wrap(op, e.ErrOrderNotFound)
	}

	if order.IsPaid {
		return &VerifyPaymentRes{
			OrderID:         order.ID,
			OrderStatus:     order.Status,
			ProcessorStatus: statusSuccess,
			Confirmed:       true,
		}, nil
	}

	tr, err := p.processor.VerifyTransaction(ctx, order.Reference())
	if err != nil {
		if errors.Is(err, e.ErrPaymentReferenceNotFound) {
			return &VerifyPaymentRes{OrderID: order.ID, OrderStatus: order.Status, ProcessorStatus: "not_found"}, nil
		}
		return nil, e.Wrap(op, err)
	}

	if !tr.Succeeded() {
		return &VerifyPaymentRes{OrderID: order.ID, OrderStatus: order.Status, ProcessorStatus: tr.Status}, nil
	}

	if err := checkAmount(order, tr); err != nil {
		p.logger.Warnf("order %s: %v", order.ID, err)
		return nil, e.Wrap(op, err)
	}

	if _, err := p.confirm(ctx, order.ID, tr.Metadata.Address, tr.Metadata.Phone, "verify"); err != nil {
		return nil, e.Wrap(op, err)
	}

	return &VerifyPaymentRes{
		OrderID:         order.ID,
		OrderStatus:     domain.OrderStatusPaid,
		ProcessorStatus: tr.Status,
		Confirmed:       true,
	}, nil
}

// confirm помечает заказ оплаченным и списывает товары в одной транзакции.
// Нехватка остатка фиксируется как алерт и не отменяет оплату.
func (p *PaymentUseCase) confirm(ctx context.Context, orderID uuid.UUID, address, phone, source string) (*NotificationRes, error) {
	res := &NotificationRes{OrderID: orderID}

	var touched []uuid.UUID
	err := p.tx.Do(ctx, func(ctx context.Context) error {
		var txErr error
		res.Outcome = NotificationPaid
		res.Shortfalls = nil
		touched, txErr = p.markPaidAndConsume(ctx, res, address, phone, source)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if res.Outcome == NotificationAlreadyPaid {
		p.logger.Infof("order %s already paid, %s notification acknowledged", orderID, source)
		return res, nil
	}

	for _, s := range res.Shortfalls {
		p.metrics.StockShortfall()
		p.logger.Warnf("stock shortfall on paid order %s: product %s requested %d, available %d",
			s.OrderID, s.ProductID, s.Requested, s.Available)
	}
	p.logger.Infof("order %s marked paid via %s", orderID, source)

	if err := p.cacheRepo.DeleteProducts(ctx, touched); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", err)
	}

	return res, nil
}

// markPaidAndConsume возвращает id товаров, остатки которых изменились.
func (p *PaymentUseCase) markPaidAndConsume(ctx context.Context, res *NotificationRes, address, phone, source string) ([]uuid.UUID, error) {
	updated, err := p.orderRepo.MarkPaid(ctx, res.OrderID, address, phone)
	if err != nil {
		return nil, err
	}

	if !updated {
		exists, err := p.orderRepo.Exists(ctx, res.OrderID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, e.ErrOrderNotFound
		}

		res.Outcome = NotificationAlreadyPaid
		return nil, nil
	}

	items, err := p.orderRepo.ListItems(ctx, res.OrderID)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)

		_, err := p.productRepo.Consume(ctx, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}

		shortfall := domain.StockShortfall{
			OrderID:   res.OrderID,
			ProductID: item.ProductID,
			Requested: item.Quantity,
		}

		var stockErr *InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			shortfall.Available = stockErr.Available
		case errors.Is(err, e.ErrProductNotFound):
		default:
			return nil, err
		}

		if err := p.recordShortfall(ctx, &shortfall); err != nil {
			return nil, err
		}
		res.Shortfalls = append(res.Shortfalls, shortfall)
	}

	event, err := NewOutboxEvent(OrderPaid, res.OrderID, OrderPaidPayload{
		OrderID:    res.OrderID.String(),
		Source:     source,
		Shortfalls: len(res.Shortfalls),
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.outbox.Create(ctx, event); err != nil {
		return nil, err
	}

	return productIDs, nil
}

func (p *PaymentUseCase) recordShortfall(ctx context.Context, s *domain.StockShortfall) error {
	if err := p.shortfallRepo.Create(ctx, s); err != nil {
		return err
	}

	event, err := NewOutboxEvent(InventoryShortfall, s.OrderID, ShortfallPayload{
		OrderID:   s.OrderID.String(),
		ProductID: s.ProductID.String(),
		Requested: s.Requested,
		Available: s.Available,
	})
	if err != nil {
		return err
	}

	_, err = p.outbox.Create(ctx, event)
	return err
}

// archiveNotification сохраняет тело уведомления. Ошибки архива не влияют на обработку.
func (p *PaymentUseCase) archiveNotification(ctx context.Context, reference string, body []byte) {
	if p.archive == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, archiveTimeout)
	defer cancel()

	if err := p.archive.Save(ctx, reference, body); err != nil {
		p.logger.Warnf("Failed to archive payment notification %q: %v", reference, err)
	}
}

// correlationOrderID восстанавливает id заказа из reference, а при его отсутствии из metadata.
func correlationOrderID(reference, metadataOrderID string) (uuid.UUID, error) {
	token := reference
	if token == "" {
		token = metadataOrderID
	}

	id, err := uuid.Parse(token)
	if err != nil {
		return uuid.Nil, e.Wrap("reference "+token, e.ErrOrderNotFound)
	}

	return id, nil
}

func checkAmount(order *domain.Order, tr *VerifyTransactionRes) error {
	if tr.Amount != ToMinorUnits(order.TotalAmount) {
		return e.ErrAmountMismatch
	}

	return nil
}

func notificationOutcome(res *NotificationRes, err error) string {
	switch {
	case err == nil && res != nil:
		return string(res.Outcome)
	case errors.Is(err, e.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, e.ErrOrderNotFound):
		return "order_not_found"
	case errors.Is(err, e.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "error"
	}
}
