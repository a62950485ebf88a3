// Package presenter implements trial.Presenter on a text terminal. Screens
// are drawn with ANSI escapes, keys are read in raw mode and audio is played
// through an external player command.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mitchellh/go-wordwrap"

	"statlearn/internal/trial"
)

const (
	clearScreen = "\x1b[2J\x1b[H"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"

	defaultWidth = 80
	margin       = 4
)

// ErrNoPlayer is returned by Play when no audio player is configured.
var ErrNoPlayer = errors.New("no audio player configured")

// Options configure a Terminal.
type Options struct {
	In  io.Reader
	Out io.Writer

	// Player is the audio command; the asset path is appended to PlayerArgs.
	Player     string
	PlayerArgs []string

	// Width overrides the detected terminal width used for wrapping.
	Width int

	// QuitKeys are key names delivered as quit requests instead of key
	// presses. Ctrl-C always is one.
	QuitKeys []string

	// OnInterrupt runs when a quit request is read, so playback can be
	// cancelled while the controller is not reading input.
	OnInterrupt func()

	Logger *slog.Logger
}

// Terminal is a raw-mode terminal presenter.
type Terminal struct {
	out        io.Writer
	player     string
	playerArgs []string
	width      int
	quitKeys   []string
	onInt      func()
	log        *slog.Logger

	events      chan trial.InputEvent
	pendingQuit atomic.Bool
	restore     func() error

	outMu     sync.Mutex
	closeOnce sync.Once
}

// NewTerminal puts In into raw mode when it is a terminal and starts reading
// keys from it. Close restores the terminal.
func NewTerminal(opts Options) (*Terminal, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	t := &Terminal{
		out:        opts.Out,
		player:     opts.Player,
		playerArgs: opts.PlayerArgs,
		width:      opts.Width,
		quitKeys:   slices.Clone(opts.QuitKeys),
		onInt:      opts.OnInterrupt,
		log:        opts.Logger.With(slog.String("component", "presenter")),
		events:     make(chan trial.InputEvent, 64),
		restore:    func() error { return nil },
	}

	if f, ok := opts.In.(*os.File); ok && isTerminal(int(f.Fd())) {
		restore, err := makeRaw(int(f.Fd()))
		if err != nil {
			return nil, fmt.Errorf("enter raw mode: %w", err)
		}
		t.restore = restore
	}
	if t.width <= 0 {
		t.width = defaultWidth
		if f, ok := opts.Out.(*os.File); ok {
			if w, err := terminalWidth(int(f.Fd())); err == nil && w > 0 {
				t.width = w
			}
		}
	}

	t.write(hideCursor)
	go t.readLoop(opts.In)
	return t, nil
}

// readLoop runs until In returns an error. It blocks in Read, so it may
// outlive Close; the process exits shortly after a session anyway.
func (t *Terminal) readLoop(in io.Reader) {
	buf := make([]byte, 32)
	for {
		n, err := in.Read(buf)
		for _, ev := range decodeKeys(buf[:n]) {
			if ev.Kind == trial.KeyDown && slices.Contains(t.quitKeys, ev.Key) {
				ev = trial.InputEvent{Kind: trial.Quit, Key: ev.Key}
			}
			t.push(ev)
			if ev.Kind == trial.Quit && t.onInt != nil {
				t.onInt()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.log.Warn("input read failed", slog.Any("error", err))
			}
			// Without input the session cannot continue.
			t.push(trial.InputEvent{Kind: trial.Quit})
			return
		}
	}
}

func (t *Terminal) push(ev trial.InputEvent) {
	select {
	case t.events <- ev:
	default:
		if ev.Kind == trial.Quit {
			t.pendingQuit.Store(true)
			return
		}
		t.log.Warn("input queue full, dropping key", slog.String("key", ev.Key))
	}
}

// ShowText clears the screen and draws text wrapped to the terminal width.
func (t *Terminal) ShowText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	width := uint(t.width - 2*margin)
	if t.width-2*margin < 20 {
		width = uint(t.width)
	}

	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString("\r\n")
	pad := strings.Repeat(" ", margin)
	for _, line := range strings.Split(wordwrap.WrapString(text, width), "\n") {
		b.WriteString(pad)
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return t.write(b.String())
}

// Clear blanks the screen.
func (t *Terminal) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.write(clearScreen)
}

// Play runs the player command on asset and waits for it to exit.
func (t *Terminal) Play(ctx context.Context, asset string) error {
	if t.player == "" {
		return ErrNoPlayer
	}
	args := append(append([]string{}, t.playerArgs...), asset)
	cmd := exec.CommandContext(ctx, t.player, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w: %s", t.player, asset, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// NextEvent blocks until a key is read or ctx is done.
func (t *Terminal) NextEvent(ctx context.Context) (trial.InputEvent, error) {
	if t.pendingQuit.Swap(false) {
		return trial.InputEvent{Kind: trial.Quit}, nil
	}
	select {
	case <-ctx.Done():
		return trial.InputEvent{}, ctx.Err()
	case ev := <-t.events:
		return ev, nil
	}
}

// FlushInput drops queued key presses. A quit request survives.
func (t *Terminal) FlushInput() {
	for {
		select {
		case ev := <-t.events:
			if ev.Kind == trial.Quit {
				t.pendingQuit.Store(true)
			}
		default:
			return
		}
	}
}

// Close restores the terminal state.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.write(clearScreen + showCursor)
		err = t.restore()
	})
	return err
}

func (t *Terminal) write(s string) error {
	t.outMu.Lock()
	defer t.outMu.Unlock()
	_, err := io.WriteString(t.out, s)
	return err
}
