package scheduler

import (
	"testing"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
)

func at(t *testing.T, day int, hour, min int) time.Time {
	t.Helper()
	return time.Date(2026, time.March, day, hour, min, 0, 0, time.UTC)
}

func iv(t *testing.T, day, startHour, endHour int) calendar.Interval {
	t.Helper()
	return calendar.Interval{Start: at(t, day, startHour, 0), End: at(t, day, endHour, 0)}
}

var nineToFive = calendar.WorkingHours{Start: 9 * time.Hour, End: 17 * time.Hour}

func TestFindSlotsBetweenBusyBlocks(t *testing.T) {
	busy := []calendar.Interval{
		iv(t, 2, 9, 10),
		iv(t, 2, 11, 12),
	}
	window := iv(t, 2, 9, 17)

	slots, err := FindSlots(busy, time.Hour, window, nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []calendar.Interval{
		iv(t, 2, 10, 11),
		iv(t, 2, 12, 17),
	}
	assertIntervals(t, slots, want)

	for _, s := range slots {
		for _, b := range busy {
			if s.Overlaps(b) {
				t.Errorf("slot %v overlaps busy %v", s, b)
			}
		}
	}
}

func TestFindSlotsNoBusyIntervals(t *testing.T) {
	// The entire window is free, clipped to working hours each day.
	window := calendar.Interval{Start: at(t, 2, 0, 0), End: at(t, 4, 0, 0)}

	slots, err := FindSlots(nil, time.Hour, window, nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []calendar.Interval{
		iv(t, 2, 9, 17),
		iv(t, 3, 9, 17),
	}
	assertIntervals(t, slots, want)
}

func TestFindSlotsFullyBusy(t *testing.T) {
	// Overlapping busy blocks covering the whole window leave nothing.
	busy := []calendar.Interval{
		iv(t, 2, 9, 13),
		iv(t, 2, 12, 17),
		iv(t, 2, 10, 14),
	}
	slots, err := FindSlots(busy, time.Hour, iv(t, 2, 9, 17), nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("slots = %v; want none", slots)
	}
}

func TestFindSlotsBusyAtWorkingHoursBoundary(t *testing.T) {
	// Busy until exactly 17:00 on day 2: the evening gap must not merge
	// with day 3's morning across the day boundary.
	busy := []calendar.Interval{
		{Start: at(t, 2, 13, 0), End: at(t, 2, 17, 0)},
	}
	window := calendar.Interval{Start: at(t, 2, 9, 0), End: at(t, 3, 17, 0)}

	slots, err := FindSlots(busy, time.Hour, window, nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}

	want := []calendar.Interval{
		iv(t, 2, 9, 13),
		iv(t, 3, 9, 17),
	}
	assertIntervals(t, slots, want)
}

func TestFindSlotsDiscardsShortGaps(t *testing.T) {
	busy := []calendar.Interval{
		iv(t, 2, 9, 10),
		{Start: at(t, 2, 10, 30), End: at(t, 2, 17, 0)},
	}
	slots, err := FindSlots(busy, time.Hour, iv(t, 2, 9, 17), nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Errorf("30-minute gap must be discarded for 60-minute duration, got %v", slots)
	}
}

func TestFindSlotsMaxCount(t *testing.T) {
	window := calendar.Interval{Start: at(t, 2, 0, 0), End: at(t, 6, 0, 0)}
	slots, err := FindSlots(nil, time.Hour, window, nineToFive, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 2 {
		t.Fatalf("len = %d; want 2", len(slots))
	}
	// earliest-start candidates come first
	if !slots[0].Start.Equal(at(t, 2, 9, 0)) {
		t.Errorf("first slot = %v", slots[0])
	}
}

func TestFindSlotsIdempotent(t *testing.T) {
	busy := []calendar.Interval{iv(t, 2, 11, 12)}
	window := iv(t, 2, 9, 17)

	first, err := FindSlots(busy, time.Hour, window, nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := FindSlots(busy, time.Hour, window, nineToFive, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertIntervals(t, first, second)
}

func TestFindSlotsRejectsInvalidInput(t *testing.T) {
	window := iv(t, 2, 9, 17)

	if _, err := FindSlots(nil, -time.Hour, window, nineToFive, 0); err == nil {
		t.Error("negative duration must be rejected")
	}
	if _, err := FindSlots(nil, 0, window, nineToFive, 0); err == nil {
		t.Error("zero duration must be rejected")
	}

	backwards := []calendar.Interval{{Start: at(t, 2, 12, 0), End: at(t, 2, 11, 0)}}
	if _, err := FindSlots(backwards, time.Hour, window, nineToFive, 0); err == nil {
		t.Error("busy interval with end before start must be rejected")
	}

	badHours := calendar.WorkingHours{Start: 17 * time.Hour, End: 9 * time.Hour}
	if _, err := FindSlots(nil, time.Hour, window, badHours, 0); err == nil {
		t.Error("inverted working hours must be rejected")
	}
}

func TestConflictsClosedStartOpenEnd(t *testing.T) {
	busy := []calendar.Interval{iv(t, 2, 10, 11)}

	// ends exactly when the busy block starts: no conflict
	adjacent := iv(t, 2, 9, 10)
	got, err := Conflicts(adjacent, busy)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("back-to-back intervals must not conflict, got %v", got)
	}

	// starts exactly when the busy block ends: no conflict
	after := iv(t, 2, 11, 12)
	got, err = Conflicts(after, busy)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("interval starting at busy end must not conflict, got %v", got)
	}

	overlapping := calendar.Interval{Start: at(t, 2, 10, 30), End: at(t, 2, 11, 30)}
	got, err = Conflicts(overlapping, busy)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("overlapping interval must conflict, got %v", got)
	}
}

func assertIntervals(t *testing.T, got, want []calendar.Interval) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("intervals = %v; want %v", got, want)
	}
	for i := range want {
		if !got[i].Start.Equal(want[i].Start) || !got[i].End.Equal(want[i].End) {
			t.Errorf("intervals[%d] = %v-%v; want %v-%v",
				i, got[i].Start, got[i].End, want[i].Start, want[i].End)
		}
	}
}
