package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/pkg/domain"
	"github.com/educonnect/service-booking/pkg/metrics"
)

const maxStoreRetries = 3

var tracer = otel.Tracer("github.com/educonnect/service-booking/internal/application")

// retryUnavailable runs op again only for failures the store marked as safe to retry,
// i.e. transient errors raised before the transaction wrote anything.
func retryUnavailable(ctx context.Context, m *metrics.Collector, log *zap.Logger, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil || domain.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(b, maxStoreRetries), ctx),
		func(err error, wait time.Duration) {
			if m != nil {
				m.StoreRetriesTotal.Inc()
			}
			log.Warn("retrying after transient store failure",
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		})
}

// errorCode is the metrics label for err.
func errorCode(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "CANCELED"
	}
	return "INTERNAL"
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorCode(err))
	}
	span.End()
}
