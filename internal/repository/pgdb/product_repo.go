package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

// ProductRepo реализует складской учёт поверх PostgreSQL.
// Все изменения остатков выполняются одним условным UPDATE, без чтения перед записью.
type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Reserve списывает quantity единиц товара магазина и возвращает текущую цену.
// Архивные товары считаются отсутствующими.
func (p *ProductRepo) Reserve(ctx context.Context, storeID, productID uuid.UUID, quantity int) (decimal.Decimal, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return decimal.Zero, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE products
		SET in_stock = in_stock - $3, updated_at = NOW()
		WHERE id = $1 AND store_id = $2 AND NOT is_archived AND in_stock >= $3
		RETURNING price
	`

	var price decimal.Decimal
	err = tx.QueryRow(ctx, query, productID, storeID, quantity).Scan(&price)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, e.Wrap(whereami.WhereAmI(), err)
	}

	// UPDATE ничего не затронул: выясняем, нет товара или не хватает остатка
	var available int
	err = tx.QueryRow(ctx, `
		SELECT in_stock FROM products
		WHERE id = $1 AND store_id = $2 AND NOT is_archived
	`, productID, storeID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}

		return decimal.Zero, e.Wrap(whereami.WhereAmI(), err)
	}

	return decimal.Zero, &usecase.InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: available,
	}
}

// Release возвращает товар на склад после отмены заказа.
func (p *ProductRepo) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE products
		SET in_stock = in_stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
	}

	return nil
}

// Consume выполняет списание при подтверждении оплаты.
// Остаток никогда не уходит в минус: при нехватке возвращается *usecase.InsufficientStockError.
func (p *ProductRepo) Consume(ctx context.Context, productID uuid.UUID, quantity int) (int, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	var remaining int
	err = tx.QueryRow(ctx, `
		UPDATE products
		SET in_stock = in_stock - $2, updated_at = NOW()
		WHERE id = $1 AND in_stock >= $2
		RETURNING in_stock
	`, productID, quantity).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	var available int
	err = tx.QueryRow(ctx, `SELECT in_stock FROM products WHERE id = $1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, e.Wrap(whereami.WhereAmI(), e.ErrProductNotFound)
		}

		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return available, &usecase.InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: available,
	}
}

// GetProductsInfo возвращает информацию о товарах магазина, включая название категории и первое изображение.
func (p *ProductRepo) GetProductsInfo(ctx context.Context, storeID uuid.UUID, ids []uuid.UUID) ([]usecase.ProductInfo, error) {
	query := `
		SELECT pr.id, pr.store_id, pr.name, pr.price, pr.in_stock, cat.name,
		       COALESCE((
		           SELECT img.url FROM images img
		           WHERE img.product_id = pr.id
		           ORDER BY img.created_at
		           LIMIT 1
		       ), '')
		FROM products pr
		JOIN categories cat ON pr.category_id = cat.id
		WHERE pr.store_id = $1 AND pr.id = ANY($2::uuid[]) AND NOT pr.is_archived
	`

	rows, err := tr.TrOrDB(ctx, p.pool).Query(ctx, query, storeID, uuidStrings(ids))
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, len(ids))
	for rows.Next() {
		var product usecase.ProductInfo
		if err := rows.Scan(
			&product.ID, &product.StoreID, &product.Name, &product.Price,
			&product.InStock, &product.CategoryName, &product.ImageURL,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, product)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
