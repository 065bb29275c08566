package pgdb

import (
	"context"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ShortfallRepo хранит случаи, когда к моменту оплаты товара на складе не хватило.
type ShortfallRepo struct {
	pool *pgxpool.Pool
}

func NewShortfallRepo(pool *pgxpool.Pool) *ShortfallRepo {
	return &ShortfallRepo{pool: pool}
}

func (s *ShortfallRepo) Create(ctx context.Context, shortfall *domain.StockShortfall) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO stock_shortfalls (order_id, product_id, requested, available)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	if err := tx.QueryRow(ctx, query,
		shortfall.OrderID, shortfall.ProductID, shortfall.Requested, shortfall.Available,
	).Scan(&shortfall.ID, &shortfall.CreatedAt); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
