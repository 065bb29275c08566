package http

import (
	"net/http"
	"strings"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// getProductsInfo
//
//	@Summary		Информация о товарах
//	@Description	Цена и остаток для корзины витрины
//	@Tags			products
//	@Produce		json
//	@Param			storeID	path		string	true	"ID магазина"
//	@Param			ids		query		string	true	"ID товаров через запятую"
//	@Success		200		{object}	ProductsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Router			/{storeID}/products [get]
func (p *ProductHandler) getProductsInfo(w http.ResponseWriter, r *http.Request) {
	storeID, err := uuidParam(r, "storeID")
	if err != nil {
		WriteError(w, err)
		return
	}

	var ids []uuid.UUID
	for _, raw := range strings.Split(r.URL.Query().Get("ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			WriteError(w, e.Wrap(raw, e.ErrInvalidID))
			return
		}
		ids = append(ids, id)
	}

	res, err := p.productUsecase.GetProductsInfo(r.Context(), &usecase.GetProductsReq{StoreID: storeID, IDs: ids})
	if err != nil {
		p.logger.Warnf("get products info: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toProductsResponse(res))
}
