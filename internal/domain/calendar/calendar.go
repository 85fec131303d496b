package calendar

import (
	"context"
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two intervals share any time under
// closed-start/open-end semantics: an event ending exactly when another
// starts does not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Validate rejects malformed intervals where the end precedes the start.
func (iv Interval) Validate() error {
	if iv.End.Before(iv.Start) {
		return fmt.Errorf("interval end %s before start %s", iv.End, iv.Start)
	}
	return nil
}

// WorkingHours bounds each calendar day, as offsets from local midnight.
type WorkingHours struct {
	Start time.Duration
	End   time.Duration
}

func (wh WorkingHours) Validate() error {
	if wh.Start < 0 || wh.End > 24*time.Hour || wh.Start >= wh.End {
		return fmt.Errorf("invalid working hours %v-%v", wh.Start, wh.End)
	}
	return nil
}

// Event is a calendar entry owned by the calendar provider.
type Event struct {
	ID        string
	Summary   string
	Start     time.Time
	End       time.Time
	Location  string
	Attendees []string
	IsAllDay  bool
	HTMLLink  string
}

// NewEvent carries the fields for creating an event after human confirmation.
type NewEvent struct {
	Summary     string
	Description string
	Interval    Interval
	Attendees   []string
	Location    string
}

type CalendarRepo interface {
	// BusyIntervals lists timed events within the range as busy intervals,
	// skipping all-day entries.
	BusyIntervals(ctx context.Context, from, to time.Time) ([]Interval, error)
	CreateEvent(ctx context.Context, ev *NewEvent) (*Event, error)
}
