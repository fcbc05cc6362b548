package booking

import (
	"strings"
	"time"
)

// CancellationPolicy decides whether one side may cancel a booking at a given instant.
type CancellationPolicy interface {
	// Check validates the reason and the notice period for b at now.
	Check(b *Booking, reason string, now time.Time) error
	// ValidateReason runs the input-only part of Check so it can fail before any store
	// access.
	ValidateReason(reason string) error
}

// NoticePolicy requires a minimum notice before the session starts and optionally a
// reason.
type NoticePolicy struct {
	MinNotice     time.Duration
	RequireReason bool
}

// NewProviderPolicy is the provider rule: a reason is required and the session must not
// have started.
func NewProviderPolicy() NoticePolicy {
	return NoticePolicy{MinNotice: 0, RequireReason: true}
}

// NewRequesterPolicy is the requester rule with a configurable notice period.
func NewRequesterPolicy(minNotice time.Duration) NoticePolicy {
	return NoticePolicy{MinNotice: minNotice, RequireReason: false}
}

func (p NoticePolicy) ValidateReason(reason string) error {
	if p.RequireReason && strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// Check rejects cancellation once start <= now + MinNotice.
func (p NoticePolicy) Check(b *Booking, reason string, now time.Time) error {
	if err := p.ValidateReason(reason); err != nil {
		return err
	}
	if b.Range().HasStarted(now.Add(p.MinNotice)) {
		return ErrTooLateToCancel
	}
	return nil
}
