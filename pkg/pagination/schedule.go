package pagination

import (
	"context"
	"time"
)

// Schedule is the pacing policy for upstream calls.
type Schedule struct {
	// PageSize is sent as the `first` variable.
	PageSize int

	// PageDelay is the wait between consecutive pages.
	PageDelay time.Duration

	// ItemDelay is the wait between per-item detail calls.
	ItemDelay time.Duration

	// ThrottleBackoff is the wait before retrying a throttled page.
	// It should be longer than PageDelay.
	ThrottleBackoff time.Duration

	// MaxThrottleRetries bounds consecutive retries of one page.
	MaxThrottleRetries int

	// MaxPages bounds the number of pages fetched (0 = unbounded).
	MaxPages int
}

// DefaultSchedule returns the production pacing policy.
func DefaultSchedule() Schedule {
	return Schedule{
		PageSize:           50,
		PageDelay:          500 * time.Millisecond,
		ItemDelay:          250 * time.Millisecond,
		ThrottleBackoff:    2 * time.Second,
		MaxThrottleRetries: 10,
		MaxPages:           1000,
	}
}

// Immediate returns a schedule without delays (for tests).
func Immediate() Schedule {
	s := DefaultSchedule()
	s.PageDelay = 0
	s.ItemDelay = 0
	s.ThrottleBackoff = 0
	return s
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
