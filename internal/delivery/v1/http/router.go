package http

import (
	"net/http"

	"github.com/DRSN-tech/storefront-backend/docs" // Сгенерированная спецификация
	"github.com/DRSN-tech/storefront-backend/internal/cfg"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	cfg    *cfg.Config
	logger logger.Logger
}

// UseCases — зависимости HTTP-слоя.
type UseCases struct {
	Checkout usecase.CheckoutUC
	Payment  usecase.PaymentUC
	Order    usecase.OrderUC
	Product  usecase.ProductUC
}

func NewRouter(router *chi.Mux, cfg *cfg.Config, logger logger.Logger) *Router {
	return &Router{router: router, cfg: cfg, logger: logger}
}

func (r *Router) Init(uc UseCases, metrics http.Handler) {
	r.router.Use(
		middleware.RequestID,
		middleware.RealIP,
		requestLogger(r.logger),
		middleware.Recoverer,
	)

	if metrics != nil {
		r.router.Method(http.MethodGet, "/metrics", metrics)
	}

	r.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	docs.SwaggerInfo.Host = r.cfg.Http.SwaggerHost
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		// Вебхук вызывается сервером провайдера, CORS ему не нужен
		webhook := NewWebhookHandler(uc.Payment, r.logger)
		v1.Post("/webhook", webhook.handleNotification)

		v1.Group(func(storefront chi.Router) {
			storefront.Use(cors.Handler(cors.Options{
				AllowedOrigins: []string{r.cfg.Cors.StorefrontOrigin},
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
				MaxAge:         300,
			}))

			registerStoreRoutes(storefront,
				NewCheckoutHandler(uc.Checkout, r.logger),
				NewOrderHandler(uc.Order, uc.Payment, r.logger),
				NewProductHandler(uc.Product, r.logger),
			)
		})
	})
}

func registerStoreRoutes(router chi.Router, checkout *CheckoutHandler, orders *OrderHandler, products *ProductHandler) {
	router.Route("/{storeID}", func(store chi.Router) {
		store.Post("/checkout", checkout.createOrder)
		store.Get("/products", products.getProductsInfo)
		store.Route("/orders/{orderID}", func(order chi.Router) {
			order.Get("/", orders.getOrder)
			order.Post("/verify", orders.verifyPayment)
		})
	})
}
