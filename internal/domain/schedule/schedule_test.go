package schedule

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewScheduleAcceptsExactMinLeadTimeBoundary(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), now.Add(MinLeadTime), now)

	if err != nil {
		t.Fatalf("NewSchedule() error = %v, want nil at exact lead-time boundary", err)
	}
}

func TestNewScheduleRejectsBelowMinLeadTime(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), now.Add(MinLeadTime-time.Second), now)

	if err != ErrLeadTimeTooShort {
		t.Fatalf("err = %v, want ErrLeadTimeTooShort", err)
	}
}

func TestNewScheduleRejectsMissingOwner(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Nil, uuid.Must(uuid.NewV7()), sampleTargets(), now.Add(MinLeadTime), now)

	if err != ErrInvalidOwner {
		t.Fatalf("err = %v, want ErrInvalidOwner", err)
	}
}

func TestNewScheduleRejectsEmptyTargets(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	_, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), nil, now.Add(MinLeadTime), now)

	if err != ErrNoPlatforms {
		t.Fatalf("err = %v, want ErrNoPlatforms", err)
	}
}

func TestScheduleFireThenCancelRejected(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	s, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), now.Add(MinLeadTime), now)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}

	if err := s.Fire(now.Add(MinLeadTime)); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}
	if err := s.Cancel(now); err != ErrInvalidTransition {
		t.Fatalf("Cancel() after Fire() err = %v, want ErrInvalidTransition", err)
	}
}

func TestScheduleIsDueRespectsHalfTickWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	scheduledInstant := now.Add(MinLeadTime)
	s, err := NewSchedule(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()), sampleTargets(), scheduledInstant, now)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}

	checkAt := scheduledInstant.Add(-15 * time.Second)
	if !s.IsDue(checkAt, 15*time.Second) {
		t.Fatalf("IsDue() = false at exact horizon, want true")
	}
	if s.IsDue(checkAt, 5*time.Second) {
		t.Fatalf("IsDue() = true before horizon reaches scheduled instant, want false")
	}
}
