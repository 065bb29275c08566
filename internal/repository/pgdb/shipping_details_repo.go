package pgdb

import (
	"context"
	"fmt"

	"github.com/DRSN-tech/storefront-backend/internal/domain"
	"github.com/DRSN-tech/storefront-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type ShippingDetailsRepo struct {
	pool *pgxpool.Pool
	conv converter.ShippingDetailsConverter
}

func NewShippingDetailsRepo(pool *pgxpool.Pool, conv converter.ShippingDetailsConverter) *ShippingDetailsRepo {
	return &ShippingDetailsRepo{
		pool: pool,
		conv: conv,
	}
}

func (s *ShippingDetailsRepo) Create(ctx context.Context, details *domain.ShippingDetails) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	m := s.conv.ToModel(details)
	query := `
		INSERT INTO shipping_details (
			id, full_name, email, phone, address_line1, address_line2,
			city, state, postal_code, country
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`

	if err := tx.QueryRow(ctx, query,
		m.ID, m.FullName, m.Email, m.Phone, m.AddressLine1, m.AddressLine2,
		m.City, m.State, m.PostalCode, m.Country,
	).Scan(&details.CreatedAt); err != nil {
		if postgresDuplicate(err) {
			return fmt.Errorf("%s: shipping details %s already exist", whereami.WhereAmI(), details.ID)
		}

		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
