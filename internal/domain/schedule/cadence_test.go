package schedule

import (
	"testing"
	"time"
)

func TestCadenceDailyNextSameDayWhenTimeStillAhead(t *testing.T) {
	c := Cadence{Kind: CadenceDaily, HourUTC: 14, MinUTC: 0}
	after := time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceDailyNextRollsOverWhenTimeHasPassed(t *testing.T) {
	c := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	after := time.Date(2026, 7, 31, 14, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceWeeklyNextFindsNextMatchingWeekday(t *testing.T) {
	// 2026-07-31 is a Friday. Next occurrence targeting Monday.
	c := Cadence{Kind: CadenceWeekly, Weekday: time.Monday, HourUTC: 10, MinUTC: 30}
	after := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2026, 8, 3, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
	if got.Weekday() != time.Monday {
		t.Fatalf("Next() weekday = %v, want Monday", got.Weekday())
	}
}

func TestCadenceWeeklyNextSkipsAheadFullWeekWhenAlreadyPast(t *testing.T) {
	c := Cadence{Kind: CadenceWeekly, Weekday: time.Friday, HourUTC: 8, MinUTC: 0}
	// 2026-07-31 is itself a Friday, but after the target hour.
	after := time.Date(2026, 7, 31, 20, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2026, 8, 7, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceMonthlyClampsDay31InFebruary(t *testing.T) {
	c := Cadence{Kind: CadenceMonthly, DayOfMonth: 31, HourUTC: 12, MinUTC: 0}
	after := time.Date(2027, 1, 31, 13, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2027, 2, 28, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceMonthlyClampsDay29InLeapYearFebruary(t *testing.T) {
	c := Cadence{Kind: CadenceMonthly, DayOfMonth: 31, HourUTC: 12, MinUTC: 0}
	after := time.Date(2028, 1, 31, 13, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2028, 2, 29, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceMonthlyRollsToNextMonth(t *testing.T) {
	c := Cadence{Kind: CadenceMonthly, DayOfMonth: 15, HourUTC: 9, MinUTC: 0}
	after := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}

func TestCadenceMonthlyRollsFromDecemberIntoNextYear(t *testing.T) {
	c := Cadence{Kind: CadenceMonthly, DayOfMonth: 1, HourUTC: 0, MinUTC: 0}
	after := time.Date(2026, 12, 1, 1, 0, 0, 0, time.UTC)

	got := c.Next(after)

	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("Next() = %v, want %v", got, want)
	}
}
