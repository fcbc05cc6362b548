package booking

import (
	"fmt"

	"github.com/educonnect/service-booking/pkg/domain"
)

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusConfirmed            BookingStatus = "confirmed"
	StatusCancelledByRequester BookingStatus = "cancelled_by_requester"
	StatusCancelledByProvider  BookingStatus = "cancelled_by_provider"
	StatusCompleted            BookingStatus = "completed"
)

// validTransitions defines the booking state machine. Every transition leaves confirmed
// and every other state is terminal.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusConfirmed:            {StatusCancelledByRequester, StatusCancelledByProvider, StatusCompleted},
	StatusCancelledByRequester: {},
	StatusCancelledByProvider:  {},
	StatusCompleted:            {},
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// IsCancelled returns true for either cancellation status.
func (s BookingStatus) IsCancelled() bool {
	return s == StatusCancelledByProvider || s == StatusCancelledByRequester
}

// String returns the string representation of the status.
func (s BookingStatus) String() string {
	return string(s)
}

// ParseBookingStatus converts a string to a BookingStatus, returning a validation error if invalid.
func ParseBookingStatus(s string) (BookingStatus, error) {
	status := BookingStatus(s)
	if !status.IsValid() {
		return "", domain.NewValidationError(fmt.Sprintf("invalid booking status: %s", s))
	}
	return status, nil
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []BookingStatus {
	return []BookingStatus{StatusConfirmed, StatusCancelledByRequester, StatusCancelledByProvider, StatusCompleted}
}
