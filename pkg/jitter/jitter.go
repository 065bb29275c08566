// Package jitter предоставляет утилиты для добавления случайности в интервалы отступления (backoff),
// чтобы повторные запросы к внешним сервисам не приходили одновременно.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — стандартный коэффициент джиттера (50%)
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает продолжительность с применённым джиттером.
// Результат находится в диапазоне [d, d*(1+jitterFactor)].
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	randMutex.Lock()
	jitter := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()
	return d + time.Duration(jitter)
}

// ExponentialBackoff вычисляет экспоненциальное отступление с джиттером.
// attempt нумеруется с нуля, результат не превышает max*(1+jitterFactor).
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}

// Backoff описывает политику повторов.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
	Factor      float64
}

// Retry вызывает fn, пока она не завершится успешно, retryable не вернёт false
// или не закончатся попытки. Возвращает последнюю ошибку.
func (b Backoff) Retry(ctx context.Context, fn func(attempt int) error, retryable func(error) bool) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}

		if retryable != nil && !retryable(err) {
			return err
		}

		if attempt == attempts-1 {
			break
		}

		select {
		case <-time.After(ExponentialBackoff(b.Base, b.Max, attempt, b.Factor)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
