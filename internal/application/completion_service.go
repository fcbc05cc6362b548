package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/metrics"
)

const defaultSweepLimit = 500

// CompletionService marks confirmed bookings whose session has ended as completed. The
// slot stays held as a record of the session.
type CompletionService struct {
	uow     schedule.UnitOfWork
	clock   timerange.Clock
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCompletionService creates a CompletionService.
func NewCompletionService(uow schedule.UnitOfWork, clock timerange.Clock, m *metrics.Collector, logger *zap.Logger) *CompletionService {
	return &CompletionService{uow: uow, clock: clock, metrics: m, logger: logger}
}

// CompleteElapsed transitions up to limit elapsed bookings, one transaction each. Bookings
// cancelled concurrently are skipped.
func (s *CompletionService) CompleteElapsed(ctx context.Context, limit int) (*SweepResultDTO, error) {
	if limit <= 0 {
		limit = defaultSweepLimit
	}
	now := s.clock.Now()

	var due []*booking.Booking
	err := s.uow.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
		var err error
		due, err = repos.Bookings.ListConfirmedEndedBefore(ctx, now, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list elapsed bookings: %w", err)
	}

	result := &SweepResultDTO{RanAt: now}
	for _, b := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		err := s.uow.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
			_, err := repos.Bookings.TryTransitionStatus(ctx, b.ID(),
				booking.StatusConfirmed, booking.StatusCompleted, booking.TransitionMeta{}, now)
			return err
		})
		switch {
		case err == nil:
			result.Completed++
		case errors.Is(err, booking.ErrUnexpectedStatus):
			result.Skipped++
		default:
			s.logger.Error("failed to complete booking",
				zap.String("booking_id", b.ID().String()),
				zap.Error(err),
			)
			result.Skipped++
		}
	}

	if s.metrics != nil {
		s.metrics.CompletionsTotal.Add(float64(result.Completed))
	}
	if result.Completed > 0 || result.Skipped > 0 {
		s.logger.Info("completion sweep finished",
			zap.Int("completed", result.Completed),
			zap.Int("skipped", result.Skipped),
		)
	}
	return result, nil
}
