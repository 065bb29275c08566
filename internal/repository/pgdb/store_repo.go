package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/tr"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type StoreRepo struct {
	pool *pgxpool.Pool
	conv converter.StoreConverter
}

func NewStoreRepo(pool *pgxpool.Pool, conv converter.StoreConverter) *StoreRepo {
	return &StoreRepo{
		pool: pool,
		conv: conv,
	}
}

func (s *StoreRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Store, error) {
	query := `
		SELECT id, name, user_id, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var model converter.StoreModel
	err := tr.TrOrDB(ctx, s.pool).QueryRow(ctx, query, id).
		Scan(&model.ID, &model.Name, &model.UserID, &model.CreatedAt, &model.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, e.Wrap(whereami.WhereAmI(), e.ErrStoreNotFound)
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return s.conv.ToEntity(&model), nil
}
