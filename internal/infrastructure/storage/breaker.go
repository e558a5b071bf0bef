package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/metrics"
)

const breakerName = "object_storage"

// BreakerStore guards an ObjectStore with a circuit breaker and a per-call
// timeout, records latency, and turns failures into storage AppErrors.
type BreakerStore struct {
	next    ObjectStore
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
}

func NewBreakerStore(next ObjectStore, cfg config.StorageConfig) *BreakerStore {
	maxFailures := cfg.Breaker.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	cb := circuitbreaker.NewCircuitBreaker(breakerName, circuitbreaker.Config{
		Interval: cfg.Breaker.Interval,
		Timeout:  cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
	})
	cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
		slog.Warn("storage circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		metrics.SetBreakerState(name, float64(to))
	})

	return &BreakerStore{next: next, breaker: cb, timeout: cfg.Timeout}
}

func (b *BreakerStore) Upload(ctx context.Context, key string, r io.Reader, size int64, opts UploadOptions) (string, error) {
	var url string
	err := b.do(ctx, "upload", func(ctx context.Context) error {
		var err error
		url, err = b.next.Upload(ctx, key, r, size, opts)
		return err
	})
	return url, err
}

func (b *BreakerStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	var url string
	err := b.do(ctx, "presign", func(ctx context.Context) error {
		var err error
		url, err = b.next.SignedURL(ctx, key, expiry)
		return err
	})
	return url, err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) error {
	return b.do(ctx, "delete", func(ctx context.Context) error {
		return b.next.Delete(ctx, key)
	})
}

// State exposes the breaker state for health reporting.
func (b *BreakerStore) State() circuitbreaker.State {
	return b.breaker.State()
}

func (b *BreakerStore) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	err := b.breaker.Execute(func() error { return fn(ctx) })
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.ObserveStorage(op, "success", elapsed)
		metrics.RecordBreakerRequest(breakerName, "success")
		return nil
	case errors.Is(err, circuitbreaker.ErrOpenState):
		metrics.RecordBreakerRequest(breakerName, "rejected")
		return apperrors.ErrStorageUnavailable.WithCause(err)
	default:
		metrics.ObserveStorage(op, "failure", elapsed)
		metrics.RecordBreakerRequest(breakerName, "failure")
		return apperrors.ErrStorage.WithCause(err)
	}
}
