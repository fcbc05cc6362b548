package timerange

import (
	"fmt"
	"time"

	"github.com/educonnect/service-booking/pkg/domain"
)

// ErrInvalidTimeRange is returned when start is not strictly before end.
var ErrInvalidTimeRange = domain.NewError(domain.KindValidation, "INVALID_TIME_RANGE", "start must be before end")

// TimeRange is a half-open interval [start, end). It is immutable once constructed.
type TimeRange struct {
	start time.Time
	end   time.Time
}

// New validates and builds a TimeRange. Instants are normalized to UTC at microsecond
// precision, which is what the database stores, so ranges survive a round trip unchanged.
func New(start, end time.Time) (TimeRange, error) {
	start = normalize(start)
	end = normalize(end)
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange.WithMessage("start and end are required")
	}
	if !start.Before(end) {
		return TimeRange{}, ErrInvalidTimeRange
	}
	return TimeRange{start: start, end: end}, nil
}

// MustNew is New for tests and constants; it panics on an invalid range.
func MustNew(start, end time.Time) TimeRange {
	r, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

func normalize(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC().Truncate(time.Microsecond)
}

func (r TimeRange) Start() time.Time { return r.start }

func (r TimeRange) End() time.Time { return r.end }

func (r TimeRange) Duration() time.Duration { return r.end.Sub(r.start) }

// IsZero reports whether r was never constructed.
func (r TimeRange) IsZero() bool { return r.start.IsZero() && r.end.IsZero() }

// Equal reports whether both bounds denote the same instants.
func (r TimeRange) Equal(o TimeRange) bool {
	return r.start.Equal(o.start) && r.end.Equal(o.end)
}

// Overlaps reports whether the two half-open intervals share any instant.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.start.Before(o.end) && o.start.Before(r.end)
}

// StartsWithin reports whether r.start lies in [from, to).
func (r TimeRange) StartsWithin(from, to time.Time) bool {
	return !r.start.Before(from) && r.start.Before(to)
}

// HasStarted reports whether the range has started at now. A range starting exactly at
// now counts as started.
func (r TimeRange) HasStarted(now time.Time) bool {
	return !r.start.After(now)
}

// HasEnded reports whether the range is over at now.
func (r TimeRange) HasEnded(now time.Time) bool {
	return !r.end.After(now)
}

func (r TimeRange) String() string {
	return fmt.Sprintf("[%s, %s)", r.start.Format(time.RFC3339), r.end.Format(time.RFC3339))
}

// Key is a comparable value suitable for map keys and duplicate detection.
type Key struct {
	Start int64
	End   int64
}

// Key returns the comparable form of r.
func (r TimeRange) Key() Key {
	return Key{Start: r.start.UnixMicro(), End: r.end.UnixMicro()}
}

// DayWindow returns [00:00, 24:00) UTC of the day containing t.
func DayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
