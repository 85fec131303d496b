package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
)

// FindSlots computes every maximal free sub-interval of at least duration
// that lies inside the search window and inside working hours on each day,
// in chronological order. maxSlots limits the output; 0 means unlimited.
//
// Busy intervals are merged first, so overlapping and unsorted input is fine.
// Free time is clipped per calendar day, so a gap spanning midnight never
// produces a slot that crosses the working-hour boundary.
//
// Invalid input (non-positive duration, an interval with end before start,
// malformed working hours) is rejected, not silently corrected.
func FindSlots(busy []calendar.Interval, duration time.Duration, window calendar.Interval, hours calendar.WorkingHours, maxSlots int) ([]calendar.Interval, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %v", duration)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("invalid search window: %w", err)
	}
	if !window.Start.Before(window.End) {
		return nil, fmt.Errorf("empty search window at %s", window.Start)
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	for _, b := range busy {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid busy interval: %w", err)
		}
	}

	merged := mergeIntervals(busy)

	var slots []calendar.Interval
	for _, gap := range freeGaps(merged, window) {
		for _, clipped := range clipToWorkingHours(gap, hours) {
			if clipped.Duration() < duration {
				continue
			}
			slots = append(slots, clipped)
			if maxSlots > 0 && len(slots) == maxSlots {
				return slots, nil
			}
		}
	}

	return slots, nil
}

// Conflicts returns the busy intervals the proposal overlaps, using
// closed-start/open-end semantics: an event ending exactly when another
// starts does not conflict.
func Conflicts(proposed calendar.Interval, busy []calendar.Interval) ([]calendar.Interval, error) {
	if err := proposed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid proposed interval: %w", err)
	}
	var conflicts []calendar.Interval
	for _, b := range busy {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid busy interval: %w", err)
		}
		if proposed.Overlaps(b) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts, nil
}

// mergeIntervals sorts by start and coalesces overlapping or touching
// intervals. Zero-length intervals are dropped.
func mergeIntervals(intervals []calendar.Interval) []calendar.Interval {
	filtered := make([]calendar.Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start.Before(iv.End) {
			filtered = append(filtered, iv)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Start.Before(filtered[j].Start)
	})

	merged := []calendar.Interval{filtered[0]}
	for _, iv := range filtered[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// freeGaps walks the merged busy list and accumulates the gaps inside window.
func freeGaps(merged []calendar.Interval, window calendar.Interval) []calendar.Interval {
	var gaps []calendar.Interval
	cursor := window.Start

	for _, b := range merged {
		if !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(window.End) {
			break
		}
		if b.Start.After(cursor) {
			end := b.Start
			if end.After(window.End) {
				end = window.End
			}
			gaps = append(gaps, calendar.Interval{Start: cursor, End: end})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
	}

	if cursor.Before(window.End) {
		gaps = append(gaps, calendar.Interval{Start: cursor, End: window.End})
	}
	return gaps
}

// clipToWorkingHours intersects a gap with the working hours of every
// calendar day it touches, in the gap's own location.
func clipToWorkingHours(gap calendar.Interval, hours calendar.WorkingHours) []calendar.Interval {
	var clipped []calendar.Interval

	day := startOfDay(gap.Start)
	for day.Before(gap.End) {
		dayStart := day.Add(hours.Start)
		dayEnd := day.Add(hours.End)

		start := gap.Start
		if dayStart.After(start) {
			start = dayStart
		}
		end := gap.End
		if dayEnd.Before(end) {
			end = dayEnd
		}
		if start.Before(end) {
			clipped = append(clipped, calendar.Interval{Start: start, End: end})
		}

		day = nextDay(day)
	}
	return clipped
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, day.Location())
}
