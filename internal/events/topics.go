package events

// Kafka topics and CloudEvent types produced and consumed by the booking service.
const (
	EventSource = "service-booking"

	TopicBookingEvents     = "booking.events"
	TopicParticipantEvents = "participant.events"

	BookingBooked               = "booking.booked"
	BookingCancelledByProvider  = "booking.cancelled_by_provider"
	BookingCancelledByRequester = "booking.cancelled_by_requester"
	BookingReminder             = "booking.reminder"

	ParticipantProfileUpdated = "participant.profile_updated"
)
