package booking

import "github.com/educonnect/service-booking/pkg/domain"

var (
	ErrBookingNotFound  = domain.NewError(domain.KindNotFound, "BOOKING_NOT_FOUND", "booking not found")
	ErrNotAuthorized    = domain.NewError(domain.KindForbidden, "NOT_AUTHORIZED", "you are not allowed to act on this booking")
	ErrNotCancellable   = domain.NewError(domain.KindConflict, "NOT_CANCELLABLE", "this booking can no longer be cancelled")
	ErrTooLateToCancel  = domain.NewError(domain.KindConflict, "TOO_LATE_TO_CANCEL", "this session has already started or is in the past")
	ErrUnexpectedStatus = domain.NewError(domain.KindConflict, "UNEXPECTED_STATUS", "unexpected status")
	ErrReasonRequired   = domain.NewError(domain.KindValidation, "REASON_REQUIRED", "a cancellation reason is required")
)
