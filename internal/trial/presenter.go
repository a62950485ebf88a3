package trial

import (
	"context"
	"time"
)

// EventKind classifies participant input.
type EventKind int

const (
	// KeyDown is a key press; Key names the key.
	KeyDown EventKind = iota + 1
	// Quit asks to end the session immediately.
	Quit
)

// InputEvent is one item from the presenter's input stream.
type InputEvent struct {
	Kind EventKind
	Key  string
}

// Presenter renders screens, plays audio and delivers participant input.
// Every blocking call must return promptly once ctx is done.
type Presenter interface {
	// ShowText replaces the screen with text.
	ShowText(ctx context.Context, text string) error

	// Clear blanks the screen.
	Clear(ctx context.Context) error

	// Play plays the asset and returns after playback has completed.
	Play(ctx context.Context, asset string) error

	// NextEvent blocks until the next input event arrives.
	NextEvent(ctx context.Context) (InputEvent, error)

	// FlushInput drops queued key presses. Pending quit requests are kept.
	FlushInput()
}

// Clock measures elapsed time and blocks for fixed durations.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed epoch.
	Now() time.Duration

	// Sleep blocks for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}
