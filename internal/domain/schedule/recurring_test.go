package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/videocast/scheduler/internal/platformcore"
)

func sampleTargets() []PlatformCaption {
	return []PlatformCaption{{Platform: platformcore.PlatformTikTok, Caption: "base caption"}}
}

func TestNewRecurringScheduleRejectsNonFutureFirstOccurrence(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}

	_, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, now, now)

	if err != ErrInvalidCadence {
		t.Fatalf("err = %v, want ErrInvalidCadence", err)
	}
}

func TestRecurringScheduleAdvanceWrapsCursorModuloVariantCount(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	variants := []string{"v0", "v1", "v2"}
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, variants, now.Add(24*time.Hour), now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	if got := r.CurrentVariant(); got != "v0" {
		t.Fatalf("CurrentVariant() = %q, want v0", got)
	}

	firedAt := r.NextOccurrence()
	r.Advance(firedAt, now)
	if got := r.CurrentVariant(); got != "v1" {
		t.Fatalf("after 1st advance CurrentVariant() = %q, want v1", got)
	}

	r.Advance(r.NextOccurrence(), now)
	if got := r.CurrentVariant(); got != "v2" {
		t.Fatalf("after 2nd advance CurrentVariant() = %q, want v2", got)
	}

	r.Advance(r.NextOccurrence(), now)
	if got := r.CurrentVariant(); got != "v0" {
		t.Fatalf("after 3rd advance CurrentVariant() = %q, want v0 (wrapped)", got)
	}
}

func TestRecurringScheduleAdvanceWithNoVariantsLeavesCursorAtZero(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, now.Add(24*time.Hour), now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	r.Advance(r.NextOccurrence(), now)

	if r.Cursor() != 0 {
		t.Fatalf("Cursor() = %d, want 0", r.Cursor())
	}
	if got := r.CurrentVariant(); got != "" {
		t.Fatalf("CurrentVariant() = %q, want empty (caller falls back to base caption)", got)
	}
}

func TestRecurringScheduleAdvanceRollsNextOccurrenceFromFiredAtNotNow(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	first := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, first, now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	// Simulate a long catch-up: "now" has drifted far past the missed
	// occurrence, but Advance must roll forward from firedAt so a
	// backlog of missed ticks advances one day at a time.
	farNow := first.Add(10 * 24 * time.Hour)
	r.Advance(first, farNow)

	want := time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC)
	if !r.NextOccurrence().Equal(want) {
		t.Fatalf("NextOccurrence() = %v, want %v", r.NextOccurrence(), want)
	}
}

func TestRecurringScheduleIsDueRespectsHalfTickWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	firstOccurrence := now.Add(15 * time.Second)
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, firstOccurrence, now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	if !r.IsDue(now, 15*time.Second) {
		t.Fatalf("IsDue() = false at exact horizon, want true")
	}
	if r.IsDue(now, 5*time.Second) {
		t.Fatalf("IsDue() = true before horizon reaches occurrence, want false")
	}
}

func TestRecurringSchedulePauseThenCheckBeforeFireRejected(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	if err := r.Pause(now); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if r.IsDue(now.Add(2*time.Hour), 0) {
		t.Fatalf("IsDue() = true while paused, want false")
	}
	if err := r.Pause(now); err != ErrInvalidTransition {
		t.Fatalf("double Pause() err = %v, want ErrInvalidTransition", err)
	}
}

func TestRecurringScheduleResumeRecomputesNextOccurrenceFromNow(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}
	if err := r.Pause(now); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}

	// Pretend a week passed before resuming.
	resumedAt := now.Add(7 * 24 * time.Hour)
	if err := r.Resume(resumedAt); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	// Resume must not fire the backlog accrued while paused: the next
	// occurrence is computed from resumedAt, not from the stale
	// pre-pause nextOccurrence.
	want := time.Date(2026, 8, 8, 9, 0, 0, 0, time.UTC)
	if !r.NextOccurrence().Equal(want) {
		t.Fatalf("NextOccurrence() after resume = %v, want %v", r.NextOccurrence(), want)
	}
	if r.State() != RecurringActive {
		t.Fatalf("State() = %v, want ACTIVE", r.State())
	}
}

func TestRecurringScheduleCancelIsTerminal(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cadence := Cadence{Kind: CadenceDaily, HourUTC: 9, MinUTC: 0}
	r, err := NewRecurringSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), cadence, nil, now.Add(time.Hour), now)
	if err != nil {
		t.Fatalf("NewRecurringSchedule() error = %v", err)
	}

	if err := r.Cancel(now); err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if err := r.Cancel(now); err != ErrInvalidTransition {
		t.Fatalf("double Cancel() err = %v, want ErrInvalidTransition", err)
	}
}
