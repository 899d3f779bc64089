// Package poll implements a bounded status-polling loop, decoupled from any
// transport so callers can unit test against fakes without real sleeps.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrBudgetExhausted is returned when the attempt budget runs out before a
// terminal decision is reached.
var ErrBudgetExhausted = errors.New("polling attempt budget exhausted")

// Decision tells the loop what to do after one check.
type Decision int

const (
	// Continue waits one interval and checks again.
	Continue Decision = iota
	// Done stops the loop successfully.
	Done
	// Fatal stops the loop with the classifier's error; no further attempts.
	Fatal
)

// Policy bounds a polling loop: at most MaxAttempts checks, Interval apart.
// Sleep is injectable for tests; nil means time.Sleep.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	Sleep       func(time.Duration)
}

// Run invokes check up to MaxAttempts times. A check returning Continue with
// a non-nil error counts as a transient failure: it is tolerated within the
// budget and only surfaces if the budget runs out.
func (p Policy) Run(ctx context.Context, check func(attempt int) (Decision, error)) error {
	if p.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts %d", ErrBudgetExhausted, p.MaxAttempts)
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		decision, err := check(attempt)
		switch decision {
		case Done:
			return nil
		case Fatal:
			return err
		case Continue:
			lastErr = err
		}

		if attempt < p.MaxAttempts {
			sleep(p.Interval)
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %v", ErrBudgetExhausted, p.MaxAttempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts", ErrBudgetExhausted, p.MaxAttempts)
}
