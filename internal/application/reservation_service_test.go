package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	"github.com/educonnect/service-booking/pkg/domain"
)

func TestReserve_ConfirmsBookingAndHoldsSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.publish(t, hours(9, 10))[0]

	b, err := f.reservations.Reserve(ctx, f.requester, s.ID, reserveFor(s))
	require.NoError(t, err)

	assert.Equal(t, string(booking.StatusConfirmed), b.Status)
	assert.Equal(t, s.ID, b.SlotID)
	assert.Equal(t, s.Range, b.Range)
	assert.Equal(t, f.requester, b.Requester)
	assert.Equal(t, f.provider, b.Provider, "provider snapshot comes from the directory")
	assert.NotEmpty(t, b.MeetingReference)

	held, err := f.slots.GetSlot(ctx, f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(slot.StateHeld), held.State)
	require.NotNil(t, held.Holder)
	assert.Equal(t, f.requester.ID, held.Holder.ID)

	asRequester, err := f.slots.GetSlot(ctx, f.requester.ID, s.ID)
	require.NoError(t, err)
	assert.Nil(t, asRequester.Holder, "only the owning provider sees who holds a slot")

	assert.Equal(t, []participant.Role{participant.RoleRequester, participant.RoleProvider},
		f.dispatcher.kinds()[booking.NotifyBooked])
	f.background.Wait()
	assert.Contains(t, f.reminders.scheduled, b.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReservationsTotal.WithLabelValues("ok")))
}

func TestReserve_ConcurrentRequestersExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	const n = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losers  int
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			requester := participant.Snapshot{ID: uuid.New(), Name: "r", Contact: "r@example.com"}
			_, err := f.reservations.Reserve(context.Background(), requester, s.ID, reserveFor(s))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				winners = append(winners, requester.ID)
				return
			}
			if errors.Is(err, slot.ErrSlotAlreadyBooked) {
				losers++
			}
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.Equal(t, n-1, losers)

	held, err := f.slots.GetSlot(context.Background(), f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, winners[0], held.Holder.ID)

	page, err := f.queries.ListForParticipant(context.Background(), f.provider.ID, participant.RoleProvider, ListBookingsQuery{Scope: ScopeAll})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestReserve_StaleRangeIsSlotChanged(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	req := reserveFor(s)
	req.ExpectedEnd = req.ExpectedEnd.Add(30 * time.Minute)
	_, err := f.reservations.Reserve(context.Background(), f.requester, s.ID, req)
	assert.ErrorIs(t, err, slot.ErrSlotChanged)

	got, err := f.slots.GetSlot(context.Background(), f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(slot.StateFree), got.State)
}

func TestReserve_ExpectedProviderMismatch(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	other := uuid.New()
	req := reserveFor(s)
	req.ExpectedProviderID = &other
	_, err := f.reservations.Reserve(context.Background(), f.requester, s.ID, req)
	assert.ErrorIs(t, err, slot.ErrSlotChanged)

	req.ExpectedProviderID = &f.provider.ID
	_, err = f.reservations.Reserve(context.Background(), f.requester, s.ID, req)
	assert.NoError(t, err)
}

func TestReserve_RejectsBadInputBeforeTouchingTheStore(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]
	ctx := context.Background()

	_, err := f.reservations.Reserve(ctx, f.requester, s.ID, ReserveRequest{ExpectedStart: s.Range.End, ExpectedEnd: s.Range.Start})
	assert.ErrorIs(t, err, timerange.ErrInvalidTimeRange)

	_, err = f.reservations.Reserve(ctx, participant.Snapshot{}, s.ID, reserveFor(s))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.reservations.Reserve(ctx, f.requester, uuid.New(), reserveFor(s))
	assert.ErrorIs(t, err, slot.ErrSlotNotFound)
}

func TestReserve_FillsRequesterSnapshotFromDirectory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.publish(t, hours(9, 10))[0]

	id := uuid.New()
	_, err := f.participants.EnsureProfile(ctx, id, participant.RoleRequester,
		EnsureProfileRequest{DisplayName: "Kim", Contact: "kim@example.com"})
	require.NoError(t, err)

	b, err := f.reservations.Reserve(ctx, participant.Snapshot{ID: id}, s.ID, reserveFor(s))
	require.NoError(t, err)
	assert.Equal(t, participant.Snapshot{ID: id, Name: "Kim", Contact: "kim@example.com"}, b.Requester)
}

func TestReserve_RetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	f.store.InjectFailures(2, errors.New("connection reset"))
	b, err := f.reservations.Reserve(context.Background(), f.requester, s.ID, reserveFor(s))
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusConfirmed), b.Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.StoreRetriesTotal))
}

func TestReserve_GivesUpWhenStoreStaysUnavailable(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	f.store.InjectFailures(maxStoreRetries+1, errors.New("connection refused"))
	_, err := f.reservations.Reserve(context.Background(), f.requester, s.ID, reserveFor(s))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	got, err := f.slots.GetSlot(context.Background(), f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(slot.StateFree), got.State)
	assert.Empty(t, f.dispatcher.kinds())
}

type blockingReminders struct {
	release   chan struct{}
	mu        sync.Mutex
	scheduled []uuid.UUID
}

func (r *blockingReminders) ScheduleReminder(ctx context.Context, b *booking.Booking) error {
	select {
	case <-r.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled = append(r.scheduled, b.ID())
	return nil
}

func (r *blockingReminders) CancelReminder(context.Context, uuid.UUID) error { return nil }

func TestReserve_DoesNotWaitForReminderScheduling(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]

	reminders := &blockingReminders{release: make(chan struct{})}
	background := NewBackground()
	svc := NewReservationService(f.store, fixedMeetings{},
		PostCommit{Dispatcher: f.dispatcher, Reminders: reminders, Background: background},
		f.clock, f.metrics, zap.NewNop())

	done := make(chan struct{})
	var (
		b   *BookingDTO
		err error
	)
	go func() {
		defer close(done)
		b, err = svc.Reserve(context.Background(), f.requester, s.ID, reserveFor(s))
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Reserve blocked on reminder scheduling")
	}
	require.NoError(t, err)

	close(reminders.release)
	background.Wait()
	assert.Equal(t, []uuid.UUID{b.ID}, reminders.scheduled)
}

func TestReserve_MeetingLinkIsNotDerivedFromBookingID(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10), hours(10, 11))
	svc := NewReservationService(f.store, booking.NewLinkGenerator("https://meet.test"),
		PostCommit{}, f.clock, f.metrics, zap.NewNop())

	first, err := svc.Reserve(context.Background(), f.requester, s[0].ID, reserveFor(s[0]))
	require.NoError(t, err)
	second, err := svc.Reserve(context.Background(), f.requester, s[1].ID, reserveFor(s[1]))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(first.MeetingReference, "https://meet.test/"))
	assert.NotContains(t, first.MeetingReference, first.ID.String())
	assert.NotContains(t, first.MeetingReference, first.SlotID.String())
	assert.NotEqual(t, first.MeetingReference, second.MeetingReference)
}
