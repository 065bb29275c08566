package pgdb

import (
	"errors"
	"sort"

	"github.com/DRSN-tech/storefront-backend/internal/repository/pgdb/converter"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	return ""
}

func postgresDuplicate(err error) bool {
	return pgErrorCode(err) == uniqueViolation
}

func postgresForeignKey(err error) bool {
	return pgErrorCode(err) == foreignKeyViolation
}

// uuidStrings нужен для передачи массива в запрос как $n::uuid[].
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}

	return out
}

func sortByCreatedAt(models []*converter.OutboxEventModel) {
	sort.SliceStable(models, func(i, j int) bool {
		if models[i].CreatedAt.Equal(models[j].CreatedAt) {
			return models[i].ID < models[j].ID
		}
		return models[i].CreatedAt.Before(models[j].CreatedAt)
	})
}
