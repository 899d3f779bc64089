package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"stoicbot/pipeline"
)

func TestSpecForClock(t *testing.T) {
	cases := []struct {
		slot string
		want string
	}{
		{"07:00", "0 7 * * *"},
		{"12:30", "30 12 * * *"},
		{"22:05", "5 22 * * *"},
		{"00:00", "0 0 * * *"},
	}

	for _, c := range cases {
		got, err := specForClock(c.slot)
		if err != nil {
			t.Fatalf("specForClock(%q): %v", c.slot, err)
		}
		if got != c.want {
			t.Errorf("specForClock(%q) = %q; want %q", c.slot, got, c.want)
		}
	}
}

func TestSpecForClockRejectsGarbage(t *testing.T) {
	for _, slot := range []string{"25:00", "12:61", "noon", "7", ""} {
		if _, err := specForClock(slot); err == nil {
			t.Errorf("specForClock(%q) accepted invalid input", slot)
		}
	}
}

func TestJitterDelayStaysInBounds(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 10*time.Minute)
	s.rng = rand.New(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		d := s.jitterDelay()
		if d < 0 || d >= 10*time.Minute {
			t.Fatalf("jitter %s out of [0, 10m)", d)
		}
	}
}

func TestJitterDisabled(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 0)
	if d := s.jitterDelay(); d != 0 {
		t.Fatalf("jitter = %s with jitter disabled; want 0", d)
	}
}

func TestFireRunsAfterJitter(t *testing.T) {
	ran := 0
	var slept time.Duration
	s := New(func(context.Context) error {
		ran++
		return nil
	}, 5*time.Minute)
	s.sleep = func(d time.Duration) { slept = d }

	s.fire(context.Background(), "07:00")
	if ran != 1 {
		t.Fatalf("run fired %d times; want 1", ran)
	}
	if slept < 0 || slept >= 5*time.Minute {
		t.Fatalf("slept %s; want within [0, 5m)", slept)
	}
}

func TestFireSwallowsBusySkip(t *testing.T) {
	s := New(func(context.Context) error {
		return pipeline.ErrRunInProgress
	}, 0)
	s.sleep = func(time.Duration) {}

	// Must not panic or retry.
	s.fire(context.Background(), "12:00")
}

func TestFireSwallowsRunFailure(t *testing.T) {
	s := New(func(context.Context) error {
		return errors.New("render: ffmpeg exited 1")
	}, 0)
	s.sleep = func(time.Duration) {}

	s.fire(context.Background(), "17:00")
}

func TestStartRejectsInvalidSlot(t *testing.T) {
	s := New(func(context.Context) error { return nil }, 0)
	if err := s.Start(context.Background(), []string{"07:00", "bogus"}); err == nil {
		t.Fatal("Start accepted an invalid slot")
	}
}
