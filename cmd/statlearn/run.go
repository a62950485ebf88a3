package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statlearn/internal/catalog"
	"statlearn/internal/clock"
	"statlearn/internal/config"
	"statlearn/internal/experiment"
	"statlearn/internal/notify"
	"statlearn/internal/presenter"
	"statlearn/internal/results"
	"statlearn/internal/scoring"
	"statlearn/internal/trial"
)

// persistTimeout bounds result writing after the session has ended, when the
// session context may already be cancelled.
const persistTimeout = 30 * time.Second

func cmdRun() int {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	logger, err := setupLogger(cfg, true)
	if err != nil {
		return fail("setup logging: %v", err)
	}
	defer logger.Close()
	log := logger.Logger

	for _, w := range config.Check(cfg).Warnings() {
		log.Warn("config warning", slog.String("field", w.Field), slog.String("message", w.Message))
	}

	key, err := cfg.ResolveAnswerKey()
	if err != nil {
		return fail("%v", err)
	}
	cat, err := catalog.Build(
		catalog.DirSource{Root: cfg.Assets.AudioDir},
		catalog.DirSource{Root: cfg.InstructionsDir()},
		key,
		cfg.CatalogOptions(),
	)
	if err != nil {
		return fail("%v", err)
	}
	log.Info("catalog ready",
		slog.Int("items", len(cat.Items)),
		slog.Bool("debug", cfg.Experiment.Debug),
		slog.Bool("randomize", cfg.Experiment.Randomize))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	term, err := presenter.NewTerminal(presenter.Options{
		Player:      cfg.Audio.Player,
		PlayerArgs:  cfg.Audio.Args,
		QuitKeys:    cfg.Keys.Quit,
		OnInterrupt: cancel,
		Logger:      log,
	})
	if err != nil {
		return fail("open terminal: %v", err)
	}

	ctrl := trial.New(cat, term, clock.New(), cfg.TrialConfig(), log)
	outcome, runErr := ctrl.Run(ctx)

	partial := runErr != nil
	if partial {
		if !errors.Is(runErr, experiment.ErrAborted) {
			term.Close()
			return fail("session failed: %v", runErr)
		}
		if !cfg.Experiment.PersistPartial {
			term.Close()
			log.Info("aborted session not persisted",
				slog.Int("completed", outcome.Completed),
				slog.Int("planned", outcome.Planned))
			fmt.Fprintf(os.Stderr, "Session aborted after %d of %d trials; nothing saved.\n",
				outcome.Completed, outcome.Planned)
			return 1
		}
	}

	records := ctrl.Recorder().Snapshot()
	marks, err := scoring.Score(records, cat.Key)
	if err != nil {
		term.Close()
		return fail("score session: %v", err)
	}

	pctx, pcancel := context.WithTimeout(context.Background(), persistTimeout)
	defer pcancel()
	receipt, err := persistSession(pctx, cfg, results.Session{
		Records:     records,
		Correctness: marks,
		Partial:     partial,
	}, log)
	if err != nil {
		term.Close()
		for _, r := range records {
			log.Error("unsaved trial",
				slog.Int("trial", r.Trial),
				slog.String("stimulus", r.StimulusID),
				slog.String("choice", r.Choice.String()),
				slog.Int64("rt_ms", r.RTMillis))
		}
		return fail("%v", err)
	}

	announce(pctx, cfg, receipt, partial, log)

	if !partial {
		if err := ctrl.Farewell(ctx, receipt.Summary.Message()); err != nil {
			log.Debug("summary screen interrupted", slog.Any("error", err))
		}
	}
	term.Close()

	fmt.Printf("Participant %d: %s saved to %s\n", receipt.PID, receipt.Summary, receipt.Path)
	if partial {
		return 1
	}
	return 0
}

// persistSession writes to the configured results directory and falls back
// to Results.FallbackDir if that fails with a write error.
func persistSession(ctx context.Context, cfg *config.Config, session results.Session, log *slog.Logger) (*results.Receipt, error) {
	receipt, err := persistTo(ctx, cfg.Results.Dir, cfg, session, log)
	if err == nil {
		return receipt, nil
	}
	if !errors.Is(err, experiment.ErrWrite) || cfg.Results.FallbackDir == "" || cfg.Results.FallbackDir == cfg.Results.Dir {
		return nil, err
	}

	log.Error("persist failed, trying fallback directory",
		slog.String("dir", cfg.Results.Dir),
		slog.String("fallback", cfg.Results.FallbackDir),
		slog.Any("error", err))
	receipt, ferr := persistTo(ctx, cfg.Results.FallbackDir, cfg, session, log)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return receipt, nil
}

func persistTo(ctx context.Context, dir string, cfg *config.Config, session results.Session, log *slog.Logger) (*results.Receipt, error) {
	store, err := openStore(dir, cfg, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Persist(ctx, session)
}

func openStore(dir string, cfg *config.Config, log *slog.Logger) (*results.Store, error) {
	retries := cfg.Results.Retries
	if retries == 0 {
		retries = -1
	}
	return results.Open(dir, results.Options{
		Prefix:     cfg.Results.Prefix,
		Retries:    retries,
		RetryDelay: time.Duration(cfg.Results.RetryDelayMs) * time.Millisecond,
		Logger:     log,
	})
}

// announce sends the desktop notification. Failures are logged only.
func announce(ctx context.Context, cfg *config.Config, receipt *results.Receipt, partial bool, log *slog.Logger) {
	var n notify.Notifier = notify.Noop{}
	if cfg.Notify.Enabled {
		d, err := notify.NewDBus(cfg.Notify.AppName, int32(cfg.Notify.TimeoutMs))
		if err != nil {
			log.Warn("desktop notifications unavailable", slog.Any("error", err))
		} else {
			n = d
		}
	}

	title := "Session saved"
	if partial {
		title = "Partial session saved"
	}
	body := fmt.Sprintf("Participant %d scored %s", receipt.PID, receipt.Summary)
	if err := n.Notify(ctx, title, body); err != nil {
		log.Warn("notification failed", slog.Any("error", err))
	}
}
