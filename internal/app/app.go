package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/storefront-backend/internal/cfg"
	v1Grpc "github.com/DRSN-tech/storefront-backend/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/storefront-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/storefront-backend/internal/infrastructure/kafka"
	"github.com/DRSN-tech/storefront-backend/internal/infrastructure/metrics"
	"github.com/DRSN-tech/storefront-backend/internal/infrastructure/payment"
	"github.com/DRSN-tech/storefront-backend/internal/infrastructure/worker"
	s3Repo "github.com/DRSN-tech/storefront-backend/internal/repository/minio"
	"github.com/DRSN-tech/storefront-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/storefront-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/storefront-backend/internal/repository/redis"
	redisConv "github.com/DRSN-tech/storefront-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/clients"
	"github.com/DRSN-tech/storefront-backend/pkg/closer"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/DRSN-tech/storefront-backend/pkg/postgres"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	shutdownTimeout   = 15 * time.Second
	initTimeout       = 10 * time.Second
	kafkaTopicTimeout = 10 * time.Second
)

// App владеет всеми долгоживущими компонентами сервиса.
type App struct {
	cfg    *config.Config
	logger logger.Logger
	closer *closer.Closer

	httpSrv    *v1Http.Server
	grpcSrv    *v1Grpc.GRPCServer
	reconciler *worker.Reconciler
	outbox     *kafka.OutboxWorker
}

// NewApp подключает внешние ресурсы и собирает зависимости. Всё открытое регистрируется в closer.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(0),
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if closeErr := a.closer.Close(ctx); closeErr != nil {
			log.Warnf("cleanup after failed init: %v", closeErr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	db, err := initPGDB(ctx, a.logger, a.cfg)
	if err != nil {
		return err
	}
	a.closer.Add("postgres", func(context.Context) error {
		db.Close()
		return nil
	})

	trManager := manager.Must(trmpgx.NewDefaultFactory(db.Pool))

	storeRepo := pgdb.NewStoreRepo(db.Pool, pgdbConv.NewStoreConverter())
	productRepo := pgdb.NewProductRepo(db.Pool)
	orderRepo := pgdb.NewOrderRepo(db.Pool, pgdbConv.NewOrderConverter())
	shippingRepo := pgdb.NewShippingDetailsRepo(db.Pool, pgdbConv.NewShippingDetailsConverter())
	shortfallRepo := pgdb.NewShortfallRepo(db.Pool)
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.NewOutboxEventConverter())

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	if err := redisClient.Ping(ctx); err != nil {
		// Кэш необязателен: без Redis запросы идут в БД
		a.logger.Warnf("redis unavailable, product cache degraded: %v", err)
	}
	a.closer.Add("redis", func(context.Context) error {
		return redisClient.Close()
	})
	cacheRepo := redis.NewCacheRepo(redisClient, redisConv.NewProductInfoConverter(), a.cfg.Redis, a.logger)

	archive, err := a.initArchive(ctx)
	if err != nil {
		return err
	}

	if err := a.initOutbox(outboxRepo, db.Dsn); err != nil {
		return err
	}

	prom := metrics.New()
	processor := payment.NewClient(a.cfg.Payment, a.logger)

	checkoutUC := usecase.NewCheckoutUC(
		trManager,
		storeRepo,
		productRepo,
		orderRepo,
		shippingRepo,
		outboxRepo,
		cacheRepo,
		processor,
		prom,
		a.cfg.Payment,
		a.logger,
	)

	paymentUC := usecase.NewPaymentUC(
		trManager,
		orderRepo,
		productRepo,
		shortfallRepo,
		outboxRepo,
		cacheRepo,
		archive,
		processor,
		prom,
		a.cfg.Payment,
		a.cfg.Reconcile,
		a.logger,
	)

	orderUC := usecase.NewOrderUC(orderRepo)
	productUC := usecase.NewProductUC(productRepo, cacheRepo, a.logger)

	a.reconciler = worker.NewReconciler(paymentUC, a.cfg.Reconcile.Interval, a.logger)

	a.grpcSrv = v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)
	a.grpcSrv.RegisterServices(productUC)

	r := chi.NewRouter()
	v1Http.NewRouter(r, a.cfg, a.logger).Init(v1Http.UseCases{
		Checkout: checkoutUC,
		Payment:  paymentUC,
		Order:    orderUC,
		Product:  productUC,
	}, prom.Handler())
	a.httpSrv = v1Http.NewServer(r, a.cfg.Http)

	return nil
}

// initArchive возвращает nil, если MinIO не настроен: уведомления тогда не архивируются.
func (a *App) initArchive(ctx context.Context) (usecase.NotificationArchive, error) {
	if !a.cfg.Minio.Enabled() {
		a.logger.Infof("MINIO_ENDPOINT not set, payment notifications will not be archived")
		return nil, nil
	}

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if days := a.cfg.Minio.RetentionDays; days > 0 {
		if err := clients.SetExpiration(ctx, minioClient, a.cfg.Minio.BucketName, s3Repo.NotificationsPrefix, days); err != nil {
			// Без правила архив просто не чистится
			a.logger.Warnf("failed to set archive retention: %v", err)
		}
	}

	return s3Repo.NewNotificationRepo(minioClient, a.cfg.Minio), nil
}

// initOutbox включает пересылку событий в Kafka. Без брокеров события копятся в таблице outbox.
func (a *App) initOutbox(repo usecase.OutboxRepository, dsn string) error {
	if !a.cfg.Kafka.Enabled() {
		a.logger.Warnf("KAFKA_BROKERS not set, outbox events will stay pending")
		return nil
	}

	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	if err := producer.EnsureTopic(kafkaTopicTimeout); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	a.outbox = kafka.NewOutboxWorker(repo, a.logger, producer, dsn, pgdb.OutboxChannel, a.cfg.Kafka.BatchSize)
	return nil
}

// Run запускает серверы и фоновые воркеры и блокируется до сигнала или фатальной ошибки.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.outbox != nil {
		a.outbox.Start(ctx)
		a.closer.Add("outbox worker", a.outbox.Stop)
	}

	a.reconciler.Start(ctx)
	a.closer.Add("reconciler", a.reconciler.Stop)

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()
	a.closer.Add("http server", a.httpSrv.Stop)

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// Воркеры видят отмену раньше, чем до них дойдёт closer
	cancel()

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown")
		if appErr == nil {
			appErr = err
		}
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.Ping(ctx); err != nil {
		logger.Errorf(err, "failed to ping database")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
