package pgdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const orderColumns = `
	id, store_id, status, is_paid, is_sent, phone, address, shipping_details_id,
	total_amount, currency, payment_reference, checkout_url, paid_at, created_at, updated_at
`

// OrderRepo хранит заказы и их позиции.
// Все переходы статуса выполняются условным UPDATE с проверкой числа затронутых строк.
type OrderRepo struct {
	pool *pgxpool.Pool
	conv converter.OrderConverter
}

func NewOrderRepo(pool *pgxpool.Pool, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		pool: pool,
		conv: conv,
	}
}

// Create сохраняет заказ вместе с позициями. Работает только внутри транзакции.
func (o *OrderRepo) Create(ctx context.Context, order *domain.Order) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	m := o.conv.ToModel(order)
	query := `
		INSERT INTO orders (
			id, store_id, status, is_paid, phone, address, shipping_details_id,
			total_amount, currency
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	if err := tx.QueryRow(ctx, query,
		m.ID, m.StoreID, m.Status, m.IsPaid, m.Phone, m.Address, m.ShippingDetailsID,
		m.TotalAmount, m.Currency,
	).Scan(&order.CreatedAt); err != nil {
		if postgresDuplicate(err) {
			return fmt.Errorf("%s: order %s already exists", whereami.WhereAmI(), order.ID)
		}
		if postgresForeignKey(err) {
			return e.Wrap(whereami.WhereAmI(), e.ErrStoreNotFound)
		}

		return e.Wrap(whereami.WhereAmI(), err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range order.Items {
		im := o.conv.ItemToModel(item)
		if _, err := tx.Exec(ctx, itemQuery, im.ID, im.OrderID, im.ProductID, im.Quantity, im.UnitPrice); err != nil {
			if postgresForeignKey(err) {
				return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
			}

			return e.Wrap(whereami.WhereAmI(), err)
		}
	}

	return nil
}

// Get возвращает заказ с позициями.
func (o *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	db := tr.TrOrDB(ctx, o.pool)

	model, err := scanOrder(db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrOrderNotFound)
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	order := o.conv.ToEntity(model)
	if order.Items, err = o.ListItems(ctx, id); err != nil {
		return nil, err
	}

	return order, nil
}

func (o *OrderRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := tr.TrOrDB(ctx, o.pool).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return exists, nil
}

func (o *OrderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := tr.TrOrDB(ctx, o.pool).Query(ctx, query, orderID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var models []converter.OrderItemModel
	for rows.Next() {
		var m converter.OrderItemModel
		if err := rows.Scan(&m.ID, &m.OrderID, &m.ProductID, &m.Quantity, &m.UnitPrice); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		models = append(models, m)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ItemsToEntity(models), nil
}

func (o *OrderRepo) SetAwaitingPayment(ctx context.Context, id uuid.UUID, reference, checkoutURL string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2, payment_reference = $3, checkout_url = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	tag, err := tr.TrOrDB(ctx, o.pool).Exec(ctx, query,
		id, string(domain.OrderStatusAwaitingPayment), reference, checkoutURL, string(domain.OrderStatusPendingLink),
	)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkPaid переводит заказ в paid, только если он ещё не оплачен.
// Пустые address и phone не затирают сохранённые при оформлении значения.
func (o *OrderRepo) MarkPaid(ctx context.Context, id uuid.UUID, address, phone string) (bool, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE orders
		SET status = $2,
		    is_paid = TRUE,
		    address = COALESCE(NULLIF($3, ''), address),
		    phone = COALESCE(NULLIF($4, ''), phone),
		    paid_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND NOT is_paid
	`

	tag, err := tx.Exec(ctx, query, id, string(domain.OrderStatusPaid), address, phone)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (o *OrderRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status IN ($3, $4)
	`

	tag, err := tx.Exec(ctx, query,
		id, string(domain.OrderStatusCancelled), string(domain.OrderStatusPendingLink), string(domain.OrderStatusAwaitingPayment),
	)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

// ListStale возвращает открытые заказы, созданные раньше createdBefore, от старых к новым.
func (o *OrderRepo) ListStale(ctx context.Context, createdBefore time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM orders
		WHERE status IN ($1, $2) AND created_at < $3
		ORDER BY created_at
		LIMIT $4
	`

	rows, err := tr.TrOrDB(ctx, o.pool).Query(ctx, query,
		string(domain.OrderStatusPendingLink), string(domain.OrderStatusAwaitingPayment), createdBefore, limit,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, limit)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return ids, nil
}

func (o *OrderRepo) LockOpen(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1 AND status IN ($2, $3)
		FOR UPDATE SKIP LOCKED
	`

	model, err := scanOrder(tx.QueryRow(ctx, query,
		id, string(domain.OrderStatusPendingLink), string(domain.OrderStatusAwaitingPayment),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(model), nil
}

func scanOrder(row pgx.Row) (*converter.OrderModel, error) {
	var m converter.OrderModel
	err := row.Scan(
		&m.ID, &m.StoreID, &m.Status, &m.IsPaid, &m.IsSent, &m.Phone, &m.Address, &m.ShippingDetailsID,
		&m.TotalAmount, &m.Currency, &m.PaymentReference, &m.CheckoutURL, &m.PaidAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
