package worker

import (
	"context"
	"sync"
	"time"

	"github.com/DRSN-tech/storefront-backend/internal/usecase"
	"github.com/DRSN-tech/storefront-backend/pkg/jitter"
	"github.com/DRSN-tech/storefront-backend/pkg/logger"
)

// Reconciler периодически запускает сверку зависших заказов.
// Интервал слегка размывается, чтобы экземпляры сервиса не опрашивали провайдера синхронно.
type Reconciler struct {
	uc       usecase.PaymentUC
	interval time.Duration
	logger   logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReconciler(uc usecase.PaymentUC, interval time.Duration, logger logger.Logger) *Reconciler {
	return &Reconciler{
		uc:       uc,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		r.logger.Infof("reconciler started, interval %s", r.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			case <-time.After(jitter.Duration(r.interval, 0.1)):
			}

			r.runOnce(ctx, cancel)
		}
	}()
}

func (r *Reconciler) runOnce(ctx context.Context, cancel context.CancelFunc) {
	// Остановка прерывает текущий проход между заказами
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-r.stop:
			cancel()
		case <-done:
		}
	}()

	if _, err := r.uc.ReconcileStale(ctx); err != nil {
		r.logger.Errorf(err, "reconcile pass failed")
	}
}

// Stop ждёт завершения текущего прохода.
func (r *Reconciler) Stop(context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
	return nil
}
