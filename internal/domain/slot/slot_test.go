package slot

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnect/service-booking/internal/domain/timerange"
)

var (
	day  = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	nine = timerange.MustNew(day.Add(9*time.Hour), day.Add(10*time.Hour))
	ten  = timerange.MustNew(day.Add(10*time.Hour), day.Add(11*time.Hour))
)

func TestNewBatch(t *testing.T) {
	provider := uuid.New()

	slots, err := NewBatch(provider, []timerange.TimeRange{nine, ten}, day)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	for _, s := range slots {
		assert.Equal(t, StateFree, s.State())
		assert.Nil(t, s.Holder())
		assert.Equal(t, provider, s.ProviderID())
	}
	assert.NotEqual(t, slots[0].ID(), slots[1].ID())

	_, err = NewBatch(provider, nil, day)
	assert.Error(t, err)

	_, err = NewBatch(provider, []timerange.TimeRange{nine, ten, nine}, day)
	assert.ErrorIs(t, err, ErrDuplicateSlot)

	_, err = NewBatch(uuid.Nil, []timerange.TimeRange{nine}, day)
	assert.Error(t, err)

	_, err = NewBatch(provider, []timerange.TimeRange{nine, {}}, day)
	assert.ErrorIs(t, err, timerange.ErrInvalidTimeRange)
}

func TestHoldAndRelease(t *testing.T) {
	s, err := NewSlot(uuid.New(), nine, day)
	require.NoError(t, err)
	holder := Holder{ID: uuid.New(), Name: "Sam", Contact: "sam@example.com"}

	assert.ErrorIs(t, s.Hold(ten, holder, day), ErrSlotChanged)
	assert.Equal(t, StateFree, s.State())

	require.NoError(t, s.Hold(nine, holder, day.Add(time.Minute)))
	assert.Equal(t, StateHeld, s.State())
	assert.Equal(t, holder, *s.Holder())
	assert.Equal(t, int64(2), s.Version())
	assert.ErrorIs(t, s.CheckDeletable(), ErrSlotHeld)

	assert.ErrorIs(t, s.Hold(nine, holder, day), ErrSlotAlreadyBooked)

	assert.True(t, s.Release(day.Add(2*time.Minute)))
	assert.Equal(t, StateFree, s.State())
	assert.Nil(t, s.Holder())
	assert.NoError(t, s.CheckDeletable())
	assert.False(t, s.Release(day), "releasing a free slot is a no-op")
}

func TestHolderIsCopied(t *testing.T) {
	s, err := NewSlot(uuid.New(), nine, day)
	require.NoError(t, err)
	require.NoError(t, s.Hold(nine, Holder{ID: uuid.New(), Name: "Sam"}, day))

	h := s.Holder()
	h.Name = "changed"
	assert.Equal(t, "Sam", s.Holder().Name)
}
