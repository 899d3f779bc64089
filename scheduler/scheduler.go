// Package scheduler fires pipeline runs at the configured daily posting
// slots, with a random jitter so posts never land at robotic exact times.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"stoicbot/config"
	"stoicbot/pipeline"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Scheduler registers one cron entry per posting slot.
type Scheduler struct {
	cron   *cron.Cron
	run    RunFunc
	jitter time.Duration

	// injectable for tests
	sleep func(time.Duration)
	rng   *rand.Rand
}

func New(run RunFunc, jitter time.Duration) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		run:    run,
		jitter: jitter,
		sleep:  time.Sleep,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start registers the posting slots and starts the cron loop. Times are
// "HH:MM" in the process's local time zone.
func (s *Scheduler) Start(ctx context.Context, times []string) error {
	for _, slot := range times {
		spec, err := specForClock(slot)
		if err != nil {
			return err
		}
		slot := slot
		if _, err := s.cron.AddFunc(spec, func() { s.fire(ctx, slot) }); err != nil {
			return fmt.Errorf("register slot %s: %w", slot, err)
		}
	}

	s.cron.Start()
	log.Printf("scheduler started with %d posting slots, jitter up to %s", len(times), s.jitter)
	return nil
}

// fire delays by the jitter then runs the pipeline. A run already in
// progress skips the slot instead of queueing behind it.
func (s *Scheduler) fire(ctx context.Context, slot string) {
	delay := s.jitterDelay()
	log.Printf("slot %s fired, posting in %s", slot, delay.Round(time.Second))
	s.sleep(delay)

	if err := s.run(ctx); err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			log.Printf("slot %s skipped: previous run still in progress", slot)
			return
		}
		log.Printf("slot %s run failed: %v", slot, err)
	}
}

func (s *Scheduler) jitterDelay() time.Duration {
	if s.jitter <= 0 {
		return 0
	}
	return time.Duration(s.rng.Int63n(int64(s.jitter)))
}

// Stop halts the cron loop and waits for a running job to return.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	log.Println("scheduler stopped")
}

// specForClock converts "HH:MM" into a daily cron spec.
func specForClock(slot string) (string, error) {
	hour, minute, err := config.ParseClock(slot)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
