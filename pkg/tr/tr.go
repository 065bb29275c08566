package tr

import (
	"context"

	"github.com/DRSN-tech/storefront-backend/pkg/e"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
)

// TxFromCtx извлекает активную транзакцию из контекста.
// Операции со складом допускаются только внутри транзакции, поэтому отсутствие транзакции является ошибкой.
func TxFromCtx(ctx context.Context) (trmpgx.Tr, error) {
	t := trmcontext.DefaultManager.Default(ctx)
	if t == nil || !t.IsActive() {
		return nil, e.ErrTransactionNotFound
	}

	tx, ok := t.Transaction().(trmpgx.Tr)
	if !ok {
		return nil, e.ErrTransactionNotFound
	}

	return tx, nil
}

// TrOrDB возвращает транзакцию из контекста, если она есть, иначе пул.
func TrOrDB(ctx context.Context, db trmpgx.Tr) trmpgx.Tr {
	return trmpgx.DefaultCtxGetter.DefaultTrOrDB(ctx, db)
}
