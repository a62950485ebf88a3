// Package clock provides the monotonic session clock.
package clock

import (
	"context"
	"time"
)

// System measures time from its creation using the monotonic clock.
type System struct {
	epoch time.Time
}

// New returns a clock whose epoch is now.
func New() *System {
	return &System{epoch: time.Now()}
}

// Now returns the time elapsed since the epoch.
func (s *System) Now() time.Duration {
	return time.Since(s.epoch)
}

// Sleep blocks for d or until ctx is done.
func (s *System) Sleep(ctx context.Context, d time.Duration) error {
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
}
