package usecase

import (
	"context"
	"errors"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type reconcileOutcome string

const (
	reconcileConfirmed reconcileOutcome = "confirmed"
	reconcileCancelled reconcileOutcome = "cancelled"
	reconcileSkipped   reconcileOutcome = "skipped"
)

// ReconcileStale сверяет с провайдером заказы, которые дольше PendingTTL ждут оплаты.
// Оплаченные подтверждаются, брошенные отменяются с возвратом товара на склад.
func (p *PaymentUseCase) ReconcileStale(ctx context.Context) (res *ReconcileRes, err error) {
	const op = "PaymentUseCase.ReconcileStale"

	ctx, span := startSpan(ctx, op)
	defer func() { endSpan(span, err) }()

	ids, err := p.orderRepo.ListStale(ctx, p.now().Add(-p.reconcileCfg.PendingTTL), p.reconcileCfg.BatchSize)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res = &ReconcileRes{}
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		res.Checked++
		outcome, err := p.reconcileOrder(ctx, id)
		if err != nil {
			p.metrics.ReconcileResult("error")
			p.logger.Errorf(err, "reconcile order %s failed", id)
			res.Skipped++
			continue
		}

		p.metrics.ReconcileResult(string(outcome))
		switch outcome {
		case reconcileConfirmed:
			res.Confirmed++
		case reconcileCancelled:
			res.Cancelled++
		default:
			res.Skipped++
		}
	}

	span.SetAttributes(
		attribute.Int("reconcile.checked", res.Checked),
		attribute.Int("reconcile.cancelled", res.Cancelled),
	)
	if res.Checked > 0 {
		p.logger.Infof("reconcile: checked %d, confirmed %d, cancelled %d, skipped %d",
			res.Checked, res.Confirmed, res.Cancelled, res.Skipped)
	}

	return res, nil
}

// reconcileOrder опрашивает провайдера без блокировок, а отмену выполняет в короткой транзакции,
// повторно проверив под FOR UPDATE, что заказ всё ещё открыт.
func (p *PaymentUseCase) reconcileOrder(ctx context.Context, id uuid.UUID) (reconcileOutcome, error) {
	order, err := p.orderRepo.Get(ctx, id)
	if err != nil {
		return reconcileSkipped, err
	}
	if !order.Status.IsOpen() {
		return reconcileSkipped, nil
	}

	tr, err := p.processor.VerifyTransaction(ctx, order.Reference())
	switch {
	case errors.Is(err, e.ErrPaymentReferenceNotFound):
		// Ссылка так и не была создана
	case err != nil:
		return reconcileSkipped, err
	case tr.Succeeded():
		if err := checkAmount(order, tr); err != nil {
			p.logger.Warnf("reconcile order %s: %v, left for manual review", order.ID, err)
			return reconcileSkipped, nil
		}
		// Подтверждение идёт по тому же пути, что и вебхук
		if _, err := p.confirm(ctx, id, tr.Metadata.Address, tr.Metadata.Phone, "reconcile"); err != nil {
			return reconcileSkipped, err
		}
		return reconcileConfirmed, nil
	case tr.InProgress():
		return reconcileSkipped, nil
	}

	var touched []uuid.UUID
	err = p.tx.Do(ctx, func(ctx context.Context) error {
		touched = nil

		locked, err := p.orderRepo.LockOpen(ctx, id)
		if err != nil {
			return err
		}
		if locked == nil {
			// Пока шёл запрос к провайдеру, заказ оплатили или его взял другой экземпляр
			return nil
		}

		touched, err = p.cancel(ctx, locked)
		return err
	})
	if err != nil {
		return reconcileSkipped, err
	}
	if touched == nil {
		return reconcileSkipped, nil
	}

	p.logger.Infof("order %s cancelled by reconciliation, stock released", id)
	if err := p.cacheRepo.DeleteProducts(ctx, touched); err != nil {
		p.logger.Warnf("Failed to delete products from cache: %v", err)
	}

	return reconcileCancelled, nil
}

// cancel отменяет заказ и возвращает зарезервированный товар на склад.
func (p *PaymentUseCase) cancel(ctx context.Context, order *domain.Order) ([]uuid.UUID, error) {
	if !domain.CanTransition(order.Status, domain.OrderStatusCancelled) {
		return nil, e.ErrOrderStateChanged
	}

	ok, err := p.orderRepo.Cancel(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, e.ErrOrderStateChanged
	}

	items, err := p.orderRepo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if err := p.productRepo.Release(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
		ids = append(ids, item.ProductID)
	}

	event, err := NewOutboxEvent(OrderCancelled, order.ID, OrderCancelledPayload{
		OrderID: order.ID.String(),
		Reason:  "payment not completed before timeout",
	})
	if err != nil {
		return nil, err
	}

	if _, err := p.outbox.Create(ctx, event); err != nil {
		return nil, err
	}

	return ids, nil
}
