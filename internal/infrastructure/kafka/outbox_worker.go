package kafka

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/e"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
)

const (
	waitTimeout  = 30 * time.Second
	stuckTimeout = 5 * time.Minute
)

// OutboxWorker пересылает события outbox в Kafka.
// Сигнал о новых событиях приходит через LISTEN/NOTIFY, по таймауту очередь разбирается без сигнала.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	dbConnStr string
	channel   string
	batchSize int
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	dbConnStr string,
	channel string,
	batchSize int,
) *OutboxWorker {
	if batchSize <= 0 {
		batchSize = 10
	}

	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		stop:      make(chan struct{}),
		dbConnStr: dbConnStr,
		channel:   channel,
		batchSize: batchSize,
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Обрабатываем "остатки" при старте
		w.logger.Infof("Draining pending outbox events on startup...")
		w.requeueStuck(ctx)
		w.drain(ctx)

		w.listenOutboxNotifications(ctx)
	}()
}

// Stop дожидается завершения текущего батча.
func (w *OutboxWorker) Stop(context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
	return nil
}

func (w *OutboxWorker) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var conn *pgx.Conn
	connect := func() error {
		c, err := pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err = c.Exec(ctx, "LISTEN "+w.channel); err != nil {
			_ = c.Close(ctx)
			return e.Wrap("failed to LISTEN", err)
		}

		conn = c
		w.logger.Infof("Subscribed to '%s' channel", w.channel)
		return nil
	}

	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for !w.stopped(ctx) {
		if conn == nil {
			if err := connect(); err != nil {
				w.logger.Warnf("Connect failed: %v", err)
				w.sleep(ctx, 5*time.Second)
				continue
			}
		}

		waitCtx, waitCancel := context.WithTimeout(ctx, waitTimeout)
		notif, err := conn.WaitForNotification(waitCtx)
		waitCancel()

		if err != nil {
			if w.stopped(ctx) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				// Тишина в канале: подбираем события, потерянные между переподключениями
				w.requeueStuck(ctx)
				w.drain(ctx)
				continue
			}

			w.logger.Warnf("Connection lost: %v. Reconnecting...", err)
			_ = conn.Close(context.Background())
			conn = nil
			w.sleep(ctx, 2*time.Second)
			continue
		}

		if notif != nil && notif.Channel == w.channel {
			w.logger.Debugf("Received outbox notification, draining outbox events")
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-w.stop:
	case <-time.After(d):
	}
}

func (w *OutboxWorker) requeueStuck(ctx context.Context) {
	n, err := w.repo.RequeueStuck(ctx, stuckTimeout)
	if err != nil {
		w.logger.Warnf("requeue stuck outbox events failed: %v", err)
		return
	}
	if n > 0 {
		w.logger.Warnf("%d outbox events were stuck in processing and returned to pending", n)
	}
}

func (w *OutboxWorker) drain(ctx context.Context) {
	for !w.stopped(ctx) {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			w.logger.Warnf("Batch processing failed: %v", err)
			return
		}
		if !hasMore {
			return
		}
	}
}

// processBatch возвращает true, если стоит сразу запросить следующий батч.
func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.batchSize)
	if err != nil {
		return false, err
	}

	if len(events) == 0 {
		return false, nil
	}

	failed := 0
	for _, event := range events {
		if err := w.processEvent(ctx, event); err != nil {
			failed++
			w.logger.Warnf("outbox event %s (%s) not sent: %v", event.EventID, event.EventType, err)

			// context.WithoutCancel: событие нельзя оставлять в processing при остановке
			if err := w.repo.ReturnToPending(context.WithoutCancel(ctx), event.ID); err != nil {
				w.logger.Warnf("return to pending failed: %v", err)
			}
			continue
		}
		if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
			w.logger.Warnf("mark processed failed: %v", err)
		}
	}

	// Если Kafka недоступна, не крутим цикл вхолостую до следующего сигнала
	return failed == 0 && len(events) == w.batchSize, nil
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) error {
	value, err := EncodeEvent(event)
	if err != nil {
		return e.Wrap("Permanent encoding failure", err)
	}

	req := usecase.NewWriteRawMessageReq(event.AggregateID.String(), string(event.EventType), value)
	if err := w.producer.WriteRawMessage(ctx, req); err != nil {
		if isRetryableError(err) {
			return e.Wrap("Temporary Kafka failure, will retry", err)
		}
		return e.Wrap("Permanent Kafka failure", err)
	}

	return nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"i/o timeout",
		"network is unreachable",
		"broker not available",
		"connection reset",
		"broken pipe",
		"no such host",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(errStr, phrase) {
			return true
		}
	}
	return false
}
