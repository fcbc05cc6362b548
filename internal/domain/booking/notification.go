package booking

import "github.com/educonnect/service-booking/internal/domain/participant"

// NotificationKind names the event a notification reports.
type NotificationKind string

const (
	NotifyBooked               NotificationKind = "booked"
	NotifyCancelledByProvider  NotificationKind = "cancelled_by_provider"
	NotifyCancelledByRequester NotificationKind = "cancelled_by_requester"
	NotifyReminder             NotificationKind = "reminder"
)

// Notification is the post-commit payload handed to the dispatcher. Booking is a
// committed snapshot and must not be mutated by receivers.
type Notification struct {
	Kind          NotificationKind
	Booking       *Booking
	Recipient     participant.Snapshot
	RecipientRole participant.Role
}

// NotificationsFor fans an event out to its recipients: both parties on booking, the
// requester plus a provider copy on provider cancellation, the provider on requester
// cancellation, and both parties on reminders.
func NotificationsFor(kind NotificationKind, b *Booking) []Notification {
	toRequester := Notification{Kind: kind, Booking: b, Recipient: b.Requester(), RecipientRole: participant.RoleRequester}
	toProvider := Notification{Kind: kind, Booking: b, Recipient: b.Provider(), RecipientRole: participant.RoleProvider}

	switch kind {
	case NotifyBooked, NotifyReminder, NotifyCancelledByProvider:
		return []Notification{toRequester, toProvider}
	case NotifyCancelledByRequester:
		return []Notification{toProvider}
	default:
		return nil
	}
}

// CancellationKind returns the notification kind for a cancellation by actor.
func CancellationKind(actor participant.Role) NotificationKind {
	if actor == participant.RoleProvider {
		return NotifyCancelledByProvider
	}
	return NotifyCancelledByRequester
}
