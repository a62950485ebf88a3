package main

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"statlearn/internal/config"
	"statlearn/internal/results"
	"statlearn/internal/watcher"
)

const monitorDebounce = time.Second

func cmdMonitor() int {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	logger, err := setupLogger(cfg, false)
	if err != nil {
		return fail("setup logging: %v", err)
	}
	defer logger.Close()
	log := logger.WithComponent("monitor").Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Follow edits to the config file so the monitor can be pointed at a
	// different results directory without a restart.
	changes := make(chan *config.Config, 1)
	if path := configFile(); path != "" {
		loader := config.NewLoader(path)
		if _, err := loader.Load(); err != nil {
			return fail("%v", err)
		}
		loader.OnChange(func(c *config.Config) {
			select {
			case changes <- c:
			default:
			}
		})
		if err := loader.Watch(); err != nil {
			log.Warn("config changes will not be followed", slog.Any("error", err))
		}
		defer loader.Close()
		go func() {
			for err := range loader.Errors() {
				log.Warn("config reload rejected", slog.Any("error", err))
			}
		}()
	}

	for {
		next, err := monitorDir(ctx, cfg, changes, log)
		if err != nil {
			return fail("%v", err)
		}
		if next == nil {
			return 0
		}
		if next.Results.Dir != cfg.Results.Dir {
			log.Info("results directory changed",
				slog.String("from", cfg.Results.Dir),
				slog.String("to", next.Results.Dir))
		}
		cfg = next
	}
}

func configFile() string {
	if *configPath != "" {
		return *configPath
	}
	return config.FindConfigFile()
}

// monitorDir reports sessions landing in cfg.Results.Dir until ctx ends
// (returns nil) or a new configuration arrives (returns it).
func monitorDir(ctx context.Context, cfg *config.Config, changes <-chan *config.Config, log *slog.Logger) (*config.Config, error) {
	store, err := openStore(cfg.Results.Dir, cfg, log)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	w, err := watcher.New(store.Dir(), watcher.Options{
		Match:    store.IsResultFile,
		Debounce: monitorDebounce,
	})
	if err != nil {
		return nil, err
	}
	if err := w.Start(); err != nil {
		return nil, err
	}
	defer w.Stop()

	if pid, err := store.NextParticipantID(ctx); err == nil {
		log.Info("monitoring results", slog.String("dir", w.Dir()), slog.Int("next_pid", pid))
	}

	for {
		select {
		case <-ctx.Done():
			return nil, nil
		case next := <-changes:
			return next, nil
		case ev := <-w.Events():
			reportSession(ctx, store, ev, log)
		case err := <-w.Errors():
			log.Warn("watch error", slog.Any("error", err))
		}
	}
}

func reportSession(ctx context.Context, store *results.Store, ev watcher.Event, log *slog.Logger) {
	file := filepath.Base(ev.Path)
	digest := hex.EncodeToString(ev.Hash[:])

	entry, err := store.Lookup(ctx, file)
	if errors.Is(err, results.ErrNotFound) {
		log.Warn("result file not in ledger", slog.String("file", file), slog.String("digest", digest))
		return
	}
	if err != nil {
		log.Warn("ledger lookup failed", slog.String("file", file), slog.Any("error", err))
		return
	}

	attrs := []any{
		slog.Int("pid", entry.PID),
		slog.String("file", file),
		slog.Int("trials", entry.Trials),
		slog.Int("correct", entry.Correct),
		slog.Bool("partial", entry.Partial),
	}
	if entry.Digest != digest {
		log.Warn("session file differs from ledger", append(attrs, slog.String("digest", digest))...)
		return
	}
	log.Info("session landed", attrs...)
}
