package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunOnceSkipsWeekdays(t *testing.T) {
	calls := 0
	s := New("0 11 * * *", time.UTC, []time.Weekday{time.Friday}, func(ctx context.Context) error {
		calls++
		return nil
	})

	// 2026-10-16 is a Friday.
	s.now = func() time.Time { return time.Date(2026, 10, 16, 11, 0, 0, 0, time.UTC) }
	if s.RunOnce(context.Background()) {
		t.Error("Expected Friday run to be skipped")
	}

	s.now = func() time.Time { return time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC) }
	if !s.RunOnce(context.Background()) {
		t.Error("Expected Thursday run to execute")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestRunOnceUsesScheduleTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	calls := 0
	s := New("0 11 * * *", tokyo, []time.Weekday{time.Friday}, func(ctx context.Context) error {
		calls++
		return nil
	})
	// Thursday 20:00 UTC is already Friday in Tokyo.
	s.now = func() time.Time { return time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC) }
	if s.RunOnce(context.Background()) || calls != 0 {
		t.Error("Expected the run to be skipped in the schedule's timezone")
	}
}

func TestRunOnceSwallowsJobErrors(t *testing.T) {
	s := New("0 11 * * *", time.UTC, nil, func(ctx context.Context) error {
		return errors.New("smtp down")
	})
	if !s.RunOnce(context.Background()) {
		t.Error("Expected the job to have run")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New("every day at noon", time.UTC, nil, func(ctx context.Context) error { return nil })
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Error("Expected an invalid cron spec to be rejected")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New("0 11 * * *", time.UTC, nil, func(ctx context.Context) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
