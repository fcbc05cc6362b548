//go:build integration

package main_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnect/service-booking/internal/application"
	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/internal/domain/slot"
	"github.com/educonnect/service-booking/internal/domain/timerange"
	bookingEvents "github.com/educonnect/service-booking/internal/events"
	"github.com/educonnect/service-booking/internal/repository"
	"github.com/educonnect/service-booking/pkg/domain"
)

// TestPostgres_ConcurrentReserve_OneWinner races many requesters for one slot through
// real row locks and checks that exactly one booking is stored.
func TestPostgres_ConcurrentReserve_OneWinner(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.Cleanup()

	ctx := context.Background()
	providerID := uuid.New()
	window := futureHour(0)
	created, err := stack.Slots.CreateSlots(ctx, providerID, application.CreateSlotsRequest{
		Ranges: []application.TimeRangeRequest{window},
	})
	require.NoError(t, err)
	slotID := created[0].ID

	const requesters = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []uuid.UUID
		losers  []error
	)
	start := make(chan struct{})
	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			requester := participant.Snapshot{ID: uuid.New(), Name: "requester"}
			<-start
			got, err := stack.Reservations.Reserve(ctx, requester, slotID, application.ReserveRequest{
				ExpectedStart: window.Start,
				ExpectedEnd:   window.End,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				losers = append(losers, err)
				return
			}
			winners = append(winners, got.Requester.ID)
		}()
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, losers, requesters-1)
	for _, err := range losers {
		assert.True(t, errors.Is(err, slot.ErrSlotAlreadyBooked), "unexpected loser error: %v", err)
	}

	var bookings int64
	require.NoError(t, infra.DB.Model(&repository.BookingModel{}).Where("slot_id = ?", slotID).Count(&bookings).Error)
	assert.EqualValues(t, 1, bookings)

	var model repository.SlotModel
	require.NoError(t, infra.DB.Where("id = ?", slotID).First(&model).Error)
	assert.Equal(t, "held", model.State)
	require.NotNil(t, model.HolderID)
	assert.Equal(t, winners[0], *model.HolderID)
}

// holdSlotLock locks the slot row in its own transaction until release is closed, then
// finishes with finish's result.
func holdSlotLock(t *testing.T, uow schedule.UnitOfWork, slotID uuid.UUID, release <-chan struct{}, finish func(*slot.Slot) error) <-chan error {
	t.Helper()
	locked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- uow.Execute(context.Background(), func(ctx context.Context, repos schedule.Repositories) error {
			sl, err := repos.Slots.FindByID(ctx, slotID)
			if err != nil {
				return err
			}
			close(locked)
			<-release
			return finish(sl)
		})
	}()

	select {
	case <-locked:
	case err := <-done:
		t.Fatalf("lock holder finished early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("lock holder never took the row lock")
	}
	return done
}

// TestPostgres_StaleReserveDoesNotBlockValidReserve checks that a reservation carrying an
// outdated range, while it holds the row lock, does not turn a concurrent valid reservation
// into SLOT_ALREADY_BOOKED.
func TestPostgres_StaleReserveDoesNotBlockValidReserve(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.Cleanup()

	ctx := context.Background()
	window := futureHour(4)
	created, err := stack.Slots.CreateSlots(ctx, uuid.New(), application.CreateSlotsRequest{
		Ranges: []application.TimeRangeRequest{window},
	})
	require.NoError(t, err)
	slotID := created[0].ID

	moved := timerange.MustNew(window.Start.Add(30*time.Minute), window.End.Add(30*time.Minute))
	release := make(chan struct{})
	staleDone := holdSlotLock(t, stack.Store.UnitOfWork, slotID, release, func(sl *slot.Slot) error {
		return sl.CheckReservable(moved)
	})
	time.AfterFunc(300*time.Millisecond, func() { close(release) })

	booked, err := stack.Reservations.Reserve(ctx, participant.Snapshot{ID: uuid.New(), Name: "carol"}, slotID,
		application.ReserveRequest{ExpectedStart: window.Start, ExpectedEnd: window.End})
	require.NoError(t, err, "the valid reservation waits for the stale one instead of failing")
	assert.Equal(t, "confirmed", booked.Status)
	assert.ErrorIs(t, <-staleDone, slot.ErrSlotChanged)

	var model repository.SlotModel
	require.NoError(t, infra.DB.Where("id = ?", slotID).First(&model).Error)
	assert.Equal(t, "held", model.State)
}

// TestPostgres_LockTimeout reports a lock wait that runs out as retryable while the slot
// is free and as SLOT_ALREADY_BOOKED once it is held.
func TestPostgres_LockTimeout(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.Cleanup()

	ctx := context.Background()
	window := futureHour(6)
	created, err := stack.Slots.CreateSlots(ctx, uuid.New(), application.CreateSlotsRequest{
		Ranges: []application.TimeRangeRequest{window},
	})
	require.NoError(t, err)
	slotID := created[0].ID

	impatient := repository.NewGormUnitOfWork(infra.DB).WithLockTimeout(200 * time.Millisecond)
	lockSlot := func() error {
		return impatient.Execute(ctx, func(ctx context.Context, repos schedule.Repositories) error {
			_, err := repos.Slots.FindByID(ctx, slotID)
			return err
		})
	}
	done := func(*slot.Slot) error { return nil }

	release := make(chan struct{})
	holder := holdSlotLock(t, stack.Store.UnitOfWork, slotID, release, done)
	err = lockSlot()
	close(release)
	require.NoError(t, <-holder)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err), "unexpected error: %v", err)
	assert.True(t, domain.IsRetryable(err))

	_, err = stack.Reservations.Reserve(ctx, participant.Snapshot{ID: uuid.New(), Name: "dave"}, slotID,
		application.ReserveRequest{ExpectedStart: window.Start, ExpectedEnd: window.End})
	require.NoError(t, err)

	release = make(chan struct{})
	holder = holdSlotLock(t, stack.Store.UnitOfWork, slotID, release, done)
	err = lockSlot()
	close(release)
	require.NoError(t, <-holder)
	assert.ErrorIs(t, err, slot.ErrSlotAlreadyBooked)
}

// TestPostgres_ProviderCancel_FreesSlotAndPublishes checks the slot is bookable again
// after a provider cancellation and that both sides are notified on booking.events.
func TestPostgres_ProviderCancel_FreesSlotAndPublishes(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.Cleanup()

	ctx := context.Background()
	providerID := uuid.New()
	window := futureHour(2)
	created, err := stack.Slots.CreateSlots(ctx, providerID, application.CreateSlotsRequest{
		Ranges: []application.TimeRangeRequest{window},
	})
	require.NoError(t, err)
	slotID := created[0].ID

	reserve := application.ReserveRequest{ExpectedStart: window.Start, ExpectedEnd: window.End}
	booked, err := stack.Reservations.Reserve(ctx, participant.Snapshot{ID: uuid.New(), Name: "alice"}, slotID, reserve)
	require.NoError(t, err)

	cancelled, err := stack.Cancels.CancelByProvider(ctx, providerID, booked.ID, "ill")
	require.NoError(t, err)
	assert.Equal(t, "cancelled_by_provider", cancelled.Status)

	var model repository.SlotModel
	require.NoError(t, infra.DB.Where("id = ?", slotID).First(&model).Error)
	assert.Equal(t, "free", model.State)
	assert.Nil(t, model.HolderID)

	_, err = stack.Reservations.Reserve(ctx, participant.Snapshot{ID: uuid.New(), Name: "bob"}, slotID, reserve)
	require.NoError(t, err, "a freed slot must be bookable again")

	events := consumeEvents(t, infra.KafkaBrokers, bookingEvents.TopicBookingEvents,
		bookingEvents.BookingCancelledByProvider, booked.ID.String(), 2, 20*time.Second)

	roles := map[string]bool{}
	for _, ce := range events {
		var evt bookingEvents.BookingEvent
		require.NoError(t, ce.ParseData(&evt))
		assert.Equal(t, "ill", evt.CancellationReason)
		roles[evt.RecipientRole] = true
	}
	assert.True(t, roles["provider"])
	assert.True(t, roles["requester"])
}

// TestProfileUpdated_SyncsDirectory verifies that a participant.profile_updated event
// lands in the participant directory.
func TestProfileUpdated_SyncsDirectory(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.Cleanup()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	providerID := uuid.New()
	publishTestEvent(t, infra.KafkaBrokers, bookingEvents.TopicParticipantEvents,
		"service-identity", bookingEvents.ParticipantProfileUpdated, bookingEvents.ProfileUpdatedEvent{
			ParticipantID: providerID,
			Role:          "provider",
			DisplayName:   "Dr. Ada",
			Contact:       "ada@example.com",
		})

	require.Eventually(t, func() bool {
		p, err := stack.Participants.GetProfile(context.Background(), providerID)
		return err == nil && p.DisplayName == "Dr. Ada"
	}, 15*time.Second, 200*time.Millisecond, "profile was not synced")

	providers, err := stack.Participants.ListProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, providerID, providers[0].ID)
}
