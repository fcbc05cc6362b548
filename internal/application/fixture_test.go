package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/internal/repository/memory"
	"github.com/educonnect/service-booking/pkg/metrics"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []booking.Notification
}

func (d *recordingDispatcher) Dispatch(ns ...booking.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, ns...)
}

func (d *recordingDispatcher) kinds() map[booking.NotificationKind][]participant.Role {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[booking.NotificationKind][]participant.Role)
	for _, n := range d.sent {
		out[n.Kind] = append(out[n.Kind], n.RecipientRole)
	}
	return out
}

type recordingReminders struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]time.Time
	cancelled []uuid.UUID
}

func (r *recordingReminders) ScheduleReminder(_ context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduled == nil {
		r.scheduled = make(map[uuid.UUID]time.Time)
	}
	r.scheduled[b.ID()] = b.Range().Start()
	return nil
}

func (r *recordingReminders) CancelReminder(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, id)
	return nil
}

type fixedMeetings struct{}

func (fixedMeetings) Generate() (string, error) { return "https://meet.test/abc-defg-hij", nil }

// fixture wires every service against one in-memory store.
type fixture struct {
	store      *memory.Store
	clock      *timerange.ManualClock
	dispatcher *recordingDispatcher
	reminders  *recordingReminders
	background *Background
	metrics    *metrics.Collector

	slots        *SlotService
	reservations *ReservationService
	cancels      *CancellationService
	queries      *BookingQueryService
	completions  *CompletionService
	participants *ParticipantService

	provider  participant.Snapshot
	requester participant.Snapshot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	f := &fixture{
		store:      memory.NewStore(),
		clock:      timerange.NewManualClock(monday.Add(-24 * time.Hour)),
		dispatcher: &recordingDispatcher{},
		reminders:  &recordingReminders{},
		background: NewBackground(),
		metrics:    metrics.NewCollector("test"),
		provider:   participant.Snapshot{ID: uuid.New(), Name: "Dr. Ada", Contact: "ada@example.com"},
		requester:  participant.Snapshot{ID: uuid.New(), Name: "Sam", Contact: "sam@example.com"},
	}
	after := PostCommit{Dispatcher: f.dispatcher, Reminders: f.reminders, Background: f.background}

	f.slots = NewSlotService(f.store.Slots(), f.clock, f.metrics, log)
	f.reservations = NewReservationService(f.store, fixedMeetings{}, after, f.clock, f.metrics, log)
	f.cancels = NewCancellationService(f.store,
		booking.NewProviderPolicy(), booking.NewRequesterPolicy(2*time.Hour),
		after, f.clock, f.metrics, log)
	f.queries = NewBookingQueryService(f.store.Bookings(), f.clock, log)
	f.completions = NewCompletionService(f.store, f.clock, f.metrics, log)
	f.participants = NewParticipantService(f.store.Participants(), f.clock, log)

	_, err := f.participants.EnsureProfile(context.Background(), f.provider.ID, participant.RoleProvider,
		EnsureProfileRequest{DisplayName: f.provider.Name, Contact: f.provider.Contact})
	require.NoError(t, err)
	return f
}

func hours(from, to int) TimeRangeRequest {
	return TimeRangeRequest{Start: monday.Add(time.Duration(from) * time.Hour), End: monday.Add(time.Duration(to) * time.Hour)}
}

func (f *fixture) publish(t *testing.T, ranges ...TimeRangeRequest) []SlotDTO {
	t.Helper()
	slots, err := f.slots.CreateSlots(context.Background(), f.provider.ID, CreateSlotsRequest{Ranges: ranges})
	require.NoError(t, err)
	return slots
}

func reserveFor(s SlotDTO) ReserveRequest {
	return ReserveRequest{ExpectedStart: s.Range.Start, ExpectedEnd: s.Range.End}
}

func (f *fixture) book(t *testing.T, s SlotDTO) *BookingDTO {
	t.Helper()
	b, err := f.reservations.Reserve(context.Background(), f.requester, s.ID, reserveFor(s))
	require.NoError(t, err)
	return b
}
