package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
	"github.com/educonnect/service-booking/pkg/metrics"
)

// SlotService publishes, lists and withdraws availability slots.
type SlotService struct {
	slots   slot.Repository
	clock   timerange.Clock
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewSlotService creates a SlotService. metrics may be nil.
func NewSlotService(slots slot.Repository, clock timerange.Clock, m *metrics.Collector, logger *zap.Logger) *SlotService {
	return &SlotService{slots: slots, clock: clock, metrics: m, logger: logger}
}

// CreateSlots stores every requested range for the provider, or none of them.
func (s *SlotService) CreateSlots(ctx context.Context, providerID uuid.UUID, req CreateSlotsRequest) (_ []SlotDTO, err error) {
	ctx, span := tracer.Start(ctx, "SlotService.CreateSlots", trace.WithAttributes(
		attribute.String("provider.id", providerID.String()),
		attribute.Int("slots.count", len(req.Ranges)),
	))
	defer func() { endSpan(span, err) }()

	ranges := make([]timerange.TimeRange, len(req.Ranges))
	for i, r := range req.Ranges {
		rng, err := r.toRange()
		if err != nil {
			return nil, err
		}
		ranges[i] = rng
	}

	batch, err := slot.NewBatch(providerID, ranges, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.slots.InsertBatch(ctx, batch); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SlotsCreatedTotal.Add(float64(len(batch)))
	}
	s.logger.Info("availability published",
		zap.String("provider_id", providerID.String()),
		zap.Int("count", len(batch)),
	)
	return toSlotDTOs(batch, providerID), nil
}

// ListProviderSlots returns the provider's slots starting in [from, to). With onlyFree
// held slots are left out, which is the view requesters browse.
func (s *SlotService) ListProviderSlots(ctx context.Context, viewerID, providerID uuid.UUID, from, to time.Time, onlyFree bool) ([]SlotDTO, error) {
	if !from.Before(to) {
		return nil, domain.NewValidationError("from must be before to")
	}
	slots, err := s.slots.ListByProviderAndWindow(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	if onlyFree {
		free := slots[:0]
		for _, sl := range slots {
			if sl.IsFree() {
				free = append(free, sl)
			}
		}
		slots = free
	}
	return toSlotDTOs(slots, viewerID), nil
}

// AvailableOnDate returns the provider's free slots starting on the UTC calendar day of date.
func (s *SlotService) AvailableOnDate(ctx context.Context, viewerID, providerID uuid.UUID, date time.Time) ([]SlotDTO, error) {
	from, to := timerange.DayWindow(date)
	return s.ListProviderSlots(ctx, viewerID, providerID, from, to, true)
}

// GetSlot returns a single slot.
func (s *SlotService) GetSlot(ctx context.Context, viewerID, slotID uuid.UUID) (*SlotDTO, error) {
	sl, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	dto := toSlotDTO(sl, viewerID)
	return &dto, nil
}

// DeleteSlot withdraws a free slot owned by the acting provider.
func (s *SlotService) DeleteSlot(ctx context.Context, providerID, slotID uuid.UUID) error {
	sl, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return err
	}
	if !sl.IsOwnedBy(providerID) {
		return slot.ErrNotAuthorized
	}
	if err := s.slots.Delete(ctx, slotID); err != nil {
		return err
	}

	s.logger.Info("slot deleted",
		zap.String("slot_id", slotID.String()),
		zap.String("provider_id", providerID.String()),
	)
	return nil
}
