package slot

import "github.com/educonnect/service-booking/pkg/domain"

var (
	ErrSlotNotFound      = domain.NewError(domain.KindNotFound, "SLOT_NOT_FOUND", "this time slot no longer exists")
	ErrSlotAlreadyBooked = domain.NewError(domain.KindConflict, "SLOT_ALREADY_BOOKED", "this time is no longer available, please pick another")
	ErrSlotChanged       = domain.NewError(domain.KindConflict, "SLOT_CHANGED", "this slot changed since you loaded it, please refresh and try again")
	ErrDuplicateSlot     = domain.NewError(domain.KindConflict, "DUPLICATE_SLOT", "a slot with this time range already exists")
	ErrSlotHeld          = domain.NewError(domain.KindConflict, "SLOT_HELD", "slot is held")
	ErrNotAuthorized     = domain.NewError(domain.KindForbidden, "NOT_AUTHORIZED", "you are not allowed to act on this slot")
)
