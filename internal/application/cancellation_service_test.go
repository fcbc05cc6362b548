package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnect/service-booking/internal/domain/booking"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/internal/domain/slot"
)

func TestCancelByProvider_FreesSlotForAnotherRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.publish(t, hours(9, 10))[0]
	b := f.book(t, s)

	cancelled, err := f.cancels.CancelByProvider(ctx, f.provider.ID, b.ID, "family emergency")
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusCancelledByProvider), cancelled.Status)
	assert.Equal(t, "family emergency", cancelled.CancellationReason)
	assert.Equal(t, string(participant.RoleProvider), cancelled.CancelledBy)

	free, err := f.slots.GetSlot(ctx, f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(slot.StateFree), free.State)
	assert.Nil(t, free.Holder)

	assert.Equal(t, []participant.Role{participant.RoleRequester, participant.RoleProvider},
		f.dispatcher.kinds()[booking.NotifyCancelledByProvider])
	f.background.Wait()
	assert.Contains(t, f.reminders.cancelled, b.ID)

	other := participant.Snapshot{ID: uuid.New(), Name: "Lee", Contact: "lee@example.com"}
	rebooked, err := f.reservations.Reserve(ctx, other, s.ID, reserveFor(s))
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, rebooked.ID)

	original, err := f.queries.GetBooking(ctx, f.requester.ID, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusCancelledByProvider), original.Status, "cancelled bookings are kept")
}

func TestCancelByProvider_RequiresReason(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, f.publish(t, hours(9, 10))[0])

	_, err := f.cancels.CancelByProvider(context.Background(), f.provider.ID, b.ID, "   ")
	assert.ErrorIs(t, err, booking.ErrReasonRequired)

	got, err := f.queries.GetBooking(context.Background(), f.provider.ID, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusConfirmed), got.Status)
}

func TestCancel_Twice(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, f.publish(t, hours(9, 10))[0])
	ctx := context.Background()

	_, err := f.cancels.CancelByRequester(ctx, f.requester.ID, b.ID, "")
	require.NoError(t, err)

	_, err = f.cancels.CancelByRequester(ctx, f.requester.ID, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrNotCancellable)
	_, err = f.cancels.CancelByProvider(ctx, f.provider.ID, b.ID, "too late")
	assert.ErrorIs(t, err, booking.ErrNotCancellable)

	assert.Equal(t, []participant.Role{participant.RoleProvider},
		f.dispatcher.kinds()[booking.NotifyCancelledByRequester], "requester cancellations only notify the provider")
}

func TestCancel_WrongActor(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, f.publish(t, hours(9, 10))[0])
	ctx := context.Background()

	_, err := f.cancels.CancelByProvider(ctx, uuid.New(), b.ID, "not mine")
	assert.ErrorIs(t, err, booking.ErrNotAuthorized)

	_, err = f.cancels.CancelByProvider(ctx, f.requester.ID, b.ID, "wrong side")
	assert.ErrorIs(t, err, booking.ErrNotAuthorized)

	_, err = f.cancels.CancelByRequester(ctx, f.provider.ID, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrNotAuthorized)

	_, err = f.cancels.CancelByRequester(ctx, f.requester.ID, uuid.New(), "")
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestCancel_TooLate(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]
	b := f.book(t, s)
	ctx := context.Background()

	// Requesters need two hours of notice.
	f.clock.Set(s.Range.Start.Add(-time.Hour))
	_, err := f.cancels.CancelByRequester(ctx, f.requester.ID, b.ID, "")
	assert.ErrorIs(t, err, booking.ErrTooLateToCancel)

	_, err = f.cancels.CancelByProvider(ctx, f.provider.ID, b.ID, "still allowed")
	require.NoError(t, err)
}

func TestCancelByProvider_SessionAlreadyStarted(t *testing.T) {
	f := newFixture(t)
	s := f.publish(t, hours(9, 10))[0]
	b := f.book(t, s)

	f.clock.Set(s.Range.Start)
	_, err := f.cancels.CancelByProvider(context.Background(), f.provider.ID, b.ID, "sick")
	assert.ErrorIs(t, err, booking.ErrTooLateToCancel)

	held, err := f.slots.GetSlot(context.Background(), f.provider.ID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(slot.StateHeld), held.State)
}

func TestCancel_ConcurrentSidesExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, f.publish(t, hours(9, 10))[0])

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.cancels.CancelByProvider(context.Background(), f.provider.ID, b.ID, "conflict")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.cancels.CancelByRequester(context.Background(), f.requester.ID, b.ID, "")
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, booking.ErrNotCancellable), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestDeleteSlot_HeldThenFreed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.publish(t, hours(9, 10))[0]
	b := f.book(t, s)

	assert.ErrorIs(t, f.slots.DeleteSlot(ctx, f.provider.ID, s.ID), slot.ErrSlotHeld)

	_, err := f.cancels.CancelByProvider(ctx, f.provider.ID, b.ID, "rescheduling")
	require.NoError(t, err)
	require.NoError(t, f.slots.DeleteSlot(ctx, f.provider.ID, s.ID))

	_, err = f.slots.GetSlot(ctx, f.provider.ID, s.ID)
	assert.ErrorIs(t, err, slot.ErrSlotNotFound)

	got, err := f.queries.GetBooking(ctx, f.requester.ID, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.SlotID, "bookings keep their slot reference after the slot is gone")
}

func TestCancelByProvider_SlotRemovedOutOfBand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.publish(t, hours(9, 10))[0]
	b := f.book(t, s)

	require.NoError(t, f.store.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
		if _, err := repos.Slots.TryTransitionToFree(ctx, s.ID, f.clock.Now()); err != nil {
			return err
		}
		return repos.Slots.Delete(ctx, s.ID)
	}))

	cancelled, err := f.cancels.CancelByProvider(ctx, f.provider.ID, b.ID, "clinic closed")
	require.NoError(t, err)
	assert.Equal(t, string(booking.StatusCancelledByProvider), cancelled.Status)
	assert.Equal(t, "clinic closed", cancelled.CancellationReason)

	_, err = f.slots.GetSlot(ctx, f.provider.ID, s.ID)
	assert.ErrorIs(t, err, slot.ErrSlotNotFound, "cancelling does not resurrect the slot")
}
