package extract

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sleeper waits between attempts. Tests substitute a recording Sleeper to
// simulate time.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// ClockSleeper waits on a timer, returning early with ctx.Err() when ctx
// is done.
var ClockSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// Policy configures Attempt.
type Policy struct {
	// MaxAttempts is the total number of calls per page (default 3).
	MaxAttempts int

	// RetryPause is the wait after a failed attempt that will be retried.
	RetryPause time.Duration

	// TemperatureStep is added to the sampling temperature on every retry;
	// attempt n runs at (n-1)*TemperatureStep.
	TemperatureStep float64

	// Sleeper defaults to ClockSleeper.
	Sleeper Sleeper

	// OnFailure, when set, is called after every failed attempt.
	OnFailure func(attempt int, err error)
}

// DefaultPolicy is three attempts two seconds apart with the temperature
// rising by 0.2 per retry.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		RetryPause:      2 * time.Second,
		TemperatureStep: 0.2,
	}
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p Policy) sleeper() Sleeper {
	if p.Sleeper == nil {
		return ClockSleeper
	}
	return p.Sleeper
}

func (p Policy) backoff() retry.Backoff {
	pause := p.RetryPause
	if pause <= 0 {
		pause = time.Nanosecond
	}
	return retry.WithMaxRetries(uint64(p.attempts()-1), retry.NewConstant(pause))
}

// Outcome is the result of Attempt: Text on success, or the last error
// once the attempts are exhausted.
type Outcome struct {
	Text     string
	Err      error
	Attempts int
}

// OK reports whether an attempt succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Attempt calls ext until it succeeds or the policy's attempts are used
// up. Calls are strictly sequential; each failed call except the last is
// followed by a RetryPause wait. The temperature escalates per attempt.
// A done context ends the loop with ctx.Err().
func Attempt(ctx context.Context, ext Extractor, req Request, p Policy) Outcome {
	b := p.backoff()
	sleeper := p.sleeper()

	for attempt := 1; ; attempt++ {
		req.Temperature = float64(attempt-1) * p.TemperatureStep
		text, err := ext.Extract(ctx, req)
		if err == nil {
			return Outcome{Text: text, Attempts: attempt}
		}
		if p.OnFailure != nil {
			p.OnFailure(attempt, err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{Err: ctxErr, Attempts: attempt}
		}

		pause, stop := b.Next()
		if stop {
			return Outcome{Err: err, Attempts: attempt}
		}
		if serr := sleeper.Sleep(ctx, pause); serr != nil {
			return Outcome{Err: serr, Attempts: attempt}
		}
	}
}
