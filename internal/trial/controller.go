// Package trial runs a listening session: instructions, optional training,
// then a fixed sequence of pause, playback and timed forced-choice response
// for every test item.
//
// The Controller is strictly sequential. It suspends only inside Presenter
// and Clock calls, and every suspension honours context cancellation, which
// is how a quit request or a signal ends the session. Trials recorded before
// an abort remain available from Recorder so the caller can decide whether
// to persist them.
package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"statlearn/internal/catalog"
	"statlearn/internal/experiment"
	"statlearn/internal/recorder"
)

var errQuit = errors.New("quit requested")

// Outcome describes how far a session got.
type Outcome struct {
	State     State
	Planned   int
	Completed int
}

// Controller drives one session. It owns its Recorder exclusively.
type Controller struct {
	cfg   Config
	cat   *catalog.Catalog
	pres  Presenter
	clock Clock
	rec   *recorder.Recorder
	log   *slog.Logger

	state   State
	history []State
}

// New creates a Controller for cat.
func New(cat *catalog.Catalog, pres Presenter, clock Clock, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	return &Controller{
		cfg:     cfg,
		cat:     cat,
		pres:    pres,
		clock:   clock,
		rec:     recorder.New(),
		log:     logger.With(slog.String("component", "trial")),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// Recorder returns the session's trial records.
func (c *Controller) Recorder() *recorder.Recorder {
	return c.rec
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// History returns every state entered so far, starting with StateIdle.
func (c *Controller) History() []State {
	return slices.Clone(c.history)
}

// Planned returns the number of trials this session will run.
func (c *Controller) Planned() int {
	n := len(c.cat.Items)
	if c.cfg.Debug && c.cfg.DebugTrials < n {
		n = c.cfg.DebugTrials
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Run executes the session. A quit request or cancellation of ctx leaves the
// controller in StateAborted and returns an error matching
// experiment.ErrAborted.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	if c.state != StateIdle {
		return c.outcome(), fmt.Errorf("session already started (state %s)", c.state)
	}

	err := c.run(ctx)
	if err == nil {
		return c.outcome(), nil
	}

	from := c.state
	if !IsTerminal(c.state) {
		c.state = StateAborted
		c.history = append(c.history, StateAborted)
	}
	out := c.outcome()
	c.log.Warn("session aborted",
		slog.String("during", from.String()),
		slog.Int("completed", out.Completed),
		slog.Int("planned", out.Planned),
		slog.Any("error", err))

	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return out, experiment.Wrap(experiment.ErrAborted, err,
			"during %s after %d of %d trials", from, out.Completed, out.Planned)
	}
	return out, err
}

func (c *Controller) run(ctx context.Context) error {
	if err := c.transition(StateInstructions); err != nil {
		return err
	}
	if err := c.prompt(ctx, c.cat.Instructions); err != nil {
		return fmt.Errorf("instructions: %w", err)
	}

	if !c.cfg.Debug {
		if err := c.transition(StateTraining); err != nil {
			return err
		}
		if err := c.pres.ShowText(ctx, c.cfg.Text.Training); err != nil {
			return fmt.Errorf("show training screen: %w", err)
		}
		if err := c.pres.Play(ctx, c.cat.Training); err != nil {
			return fmt.Errorf("play training: %w", err)
		}
	}

	if err := c.transition(StateReadyPrompt); err != nil {
		return err
	}
	if err := c.prompt(ctx, c.cfg.Text.Ready); err != nil {
		return fmt.Errorf("ready prompt: %w", err)
	}

	planned := c.Planned()
	if planned == 0 {
		c.log.Info("no test items, skipping trials")
	}
	for i := 0; i < planned; i++ {
		if err := c.runTrial(ctx, i+1, c.cat.Items[i]); err != nil {
			return err
		}
	}

	if err := c.transition(StateComplete); err != nil {
		return err
	}
	c.log.Info("session complete", slog.Int("trials", c.rec.Len()))
	return nil
}

func (c *Controller) runTrial(ctx context.Context, n int, item experiment.Item) error {
	if err := c.transition(StatePause); err != nil {
		return err
	}
	if err := c.pres.Clear(ctx); err != nil {
		return fmt.Errorf("trial %d: clear screen: %w", n, err)
	}
	if err := c.clock.Sleep(ctx, c.cfg.InterStimulus); err != nil {
		return fmt.Errorf("trial %d: pause: %w", n, err)
	}

	if err := c.transition(StatePlayback); err != nil {
		return err
	}
	if err := c.pres.ShowText(ctx, fmt.Sprintf(c.cfg.Text.TrialLabel, n)); err != nil {
		return fmt.Errorf("trial %d: show label: %w", n, err)
	}
	if err := c.pres.Play(ctx, item.Asset); err != nil {
		return fmt.Errorf("trial %d: play %s: %w", n, item.ID, err)
	}

	if err := c.transition(StateResponseWait); err != nil {
		return err
	}
	choice, rt, err := c.awaitResponse(ctx)
	if err != nil {
		return fmt.Errorf("trial %d: %w", n, err)
	}

	if err := c.rec.Record(n, item.ID, choice, rt.Milliseconds()); err != nil {
		return err
	}
	if err := c.transition(StateRecorded); err != nil {
		return err
	}
	c.log.Info("trial recorded",
		slog.Int("trial", n),
		slog.String("stimulus", item.ID),
		slog.String("choice", choice.String()),
		slog.Int64("rt_ms", rt.Milliseconds()))
	return nil
}

// awaitResponse opens the response window and returns the first designated
// answer with its reaction time. An expired bounded window yields OptionNone
// with the window length as reaction time.
func (c *Controller) awaitResponse(ctx context.Context) (experiment.Option, time.Duration, error) {
	if err := c.pres.ShowText(ctx, c.cfg.Text.Prompt); err != nil {
		return experiment.OptionNone, 0, fmt.Errorf("show response prompt: %w", err)
	}
	c.pres.FlushInput()

	waitCtx := ctx
	if c.cfg.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.ResponseTimeout)
		defer cancel()
	}

	opened := c.clock.Now()
	for {
		ev, err := c.pres.NextEvent(waitCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				// The deadline runs on wall time, not on c.clock.
				rt := c.cfg.ResponseTimeout
				c.log.Info("response window expired", slog.Int64("rt_ms", rt.Milliseconds()))
				return experiment.OptionNone, rt, nil
			}
			return experiment.OptionNone, 0, err
		}
		if c.isQuit(ev) {
			return experiment.OptionNone, 0, errQuit
		}
		switch ev.Key {
		case c.cfg.Keys.Option1:
			return experiment.Option1, c.elapsedSince(opened), nil
		case c.cfg.Keys.Option2:
			return experiment.Option2, c.elapsedSince(opened), nil
		default:
			c.log.Debug("ignoring key during response window", slog.String("key", ev.Key))
		}
	}
}

// prompt shows text, holds it for the minimum dwell and waits for the
// continue key. Presses made during the dwell are discarded.
func (c *Controller) prompt(ctx context.Context, text string) error {
	if err := c.pres.ShowText(ctx, text); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, c.cfg.PromptDwell); err != nil {
		return err
	}
	c.pres.FlushInput()

	for {
		ev, err := c.pres.NextEvent(ctx)
		if err != nil {
			return err
		}
		if c.isQuit(ev) {
			return errQuit
		}
		if ev.Key == c.cfg.Keys.Continue {
			return nil
		}
	}
}

// Farewell shows the closing summary until any key is pressed or
// SummaryDuration elapses.
func (c *Controller) Farewell(ctx context.Context, text string) error {
	if err := c.pres.ShowText(ctx, text); err != nil {
		return err
	}
	if c.cfg.SummaryDuration <= 0 {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.SummaryDuration)
	defer cancel()

	_, err := c.pres.NextEvent(waitCtx)
	if err != nil && ctx.Err() == nil {
		// Timed out without input.
		return nil
	}
	return err
}

func (c *Controller) isQuit(ev InputEvent) bool {
	return ev.Kind == Quit || slices.Contains(c.cfg.Keys.Quit, ev.Key)
}

func (c *Controller) elapsedSince(opened time.Duration) time.Duration {
	d := c.clock.Now() - opened
	if d < 0 {
		return 0
	}
	return d
}

func (c *Controller) transition(to State) error {
	if !isAllowedTransition(c.state, to) {
		return fmt.Errorf("invalid state transition %s -> %s", c.state, to)
	}
	c.log.Debug("state transition", slog.String("from", c.state.String()), slog.String("to", to.String()))
	c.state = to
	c.history = append(c.history, to)
	return nil
}

func (c *Controller) outcome() *Outcome {
	return &Outcome{
		State:     c.state,
		Planned:   c.Planned(),
		Completed: c.rec.Len(),
	}
}
