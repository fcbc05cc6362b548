// Package memory is an in-process implementation of the schedule stores. A unit of work
// holds the store's write lock for its whole duration and applies its changes by swapping
// in a private copy of the state on success, so readers only ever observe committed data.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/educonnect/service-booking/internal/domain/participant"
	"github.com/educonnect/service-booking/internal/domain/schedule"
	"github.com/educonnect/service-booking/pkg/domain"
)

type slotKey struct {
	providerID uuid.UUID
	start      int64
	end        int64
}

type slotRow struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Start      time.Time
	End        time.Time
	State      string
	Holder     *participant.Snapshot
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r slotRow) key() slotKey {
	return slotKey{providerID: r.ProviderID, start: r.Start.UnixMicro(), end: r.End.UnixMicro()}
}

type bookingRow struct {
	ID                 uuid.UUID
	Requester          participant.Snapshot
	Provider           participant.Snapshot
	SlotID             uuid.UUID
	Start              time.Time
	End                time.Time
	Status             string
	MeetingReference   string
	CancellationReason string
	CancelledBy        string
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type participantRow struct {
	ID          uuid.UUID
	Role        string
	DisplayName string
	Contact     string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type state struct {
	slots        map[uuid.UUID]slotRow
	slotKeys     map[slotKey]uuid.UUID
	bookings     map[uuid.UUID]bookingRow
	participants map[uuid.UUID]participantRow
}

func newState() *state {
	return &state{
		slots:        make(map[uuid.UUID]slotRow),
		slotKeys:     make(map[slotKey]uuid.UUID),
		bookings:     make(map[uuid.UUID]bookingRow),
		participants: make(map[uuid.UUID]participantRow),
	}
}

// clone copies the maps. Rows are values and holder snapshots are replaced rather than
// mutated, so a shallow copy per row is enough.
func (s *state) clone() *state {
	cp := &state{
		slots:        make(map[uuid.UUID]slotRow, len(s.slots)),
		slotKeys:     make(map[slotKey]uuid.UUID, len(s.slotKeys)),
		bookings:     make(map[uuid.UUID]bookingRow, len(s.bookings)),
		participants: make(map[uuid.UUID]participantRow, len(s.participants)),
	}
	for k, v := range s.slots {
		cp.slots[k] = v
	}
	for k, v := range s.slotKeys {
		cp.slotKeys[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	for k, v := range s.participants {
		cp.participants[k] = v
	}
	return cp
}

// Store is the shared in-memory database.
type Store struct {
	mu sync.RWMutex
	st *state

	faultMu sync.Mutex
	faults  []error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Slots returns the non-transactional slot repository.
func (s *Store) Slots() *SlotRepository { return &SlotRepository{access{store: s}} }

// Bookings returns the non-transactional booking repository.
func (s *Store) Bookings() *BookingRepository { return &BookingRepository{access{store: s}} }

// Participants returns the participant repository.
func (s *Store) Participants() *ParticipantRepository {
	return &ParticipantRepository{access{store: s}}
}

// InjectFailures makes the next n units of work fail with a retryable unavailable error
// before fn runs, simulating a store that cannot be reached.
func (s *Store) InjectFailures(n int, cause error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	for i := 0; i < n; i++ {
		s.faults = append(s.faults, cause)
	}
}

func (s *Store) nextFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if len(s.faults) == 0 {
		return nil
	}
	err := s.faults[0]
	s.faults = s.faults[1:]
	return err
}

// Execute implements schedule.UnitOfWork.
func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos schedule.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return domain.NewUnavailableError(err, false)
	}
	if cause := s.nextFault(); cause != nil {
		return domain.NewUnavailableError(cause, true)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.st.clone()
	a := access{store: s, tx: tx}
	if err := fn(ctx, schedule.Repositories{
		Slots:        &SlotRepository{a},
		Bookings:     &BookingRepository{a},
		Participants: &ParticipantRepository{a},
	}); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// access routes reads and writes either to a transaction's private state or to the shared
// state under the store lock.
type access struct {
	store *Store
	tx    *state
}

func (a access) read(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.RLock()
	defer a.store.mu.RUnlock()
	return fn(a.store.st)
}

// write applies fn to a copy and publishes it only on success, so a failed multi-row
// write outside a unit of work leaves nothing behind.
func (a access) write(fn func(st *state) error) error {
	if a.tx != nil {
		return fn(a.tx)
	}
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	cp := a.store.st.clone()
	if err := fn(cp); err != nil {
		return err
	}
	a.store.st = cp
	return nil
}

var _ schedule.UnitOfWork = (*Store)(nil)
