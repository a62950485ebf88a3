// Package results persists finished sessions as one CSV file per participant
// and keeps a sqlite ledger of what was written.
//
// Participant ids are reserved under an exclusive lock on the results
// directory: the id is the number of existing result files plus one, and the
// file is created with O_EXCL so an id is never handed out twice.
package results

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"statlearn/internal/experiment"
	"statlearn/internal/scoring"
)

const (
	ledgerName = ".ledger.db"
	lockName   = ".statlearn.lock"

	defaultPrefix     = "results"
	defaultRetries    = 3
	defaultRetryDelay = 50 * time.Millisecond
)

// Options configure a Store.
type Options struct {
	// Prefix is the file name prefix; files are named <Prefix><PID>.csv.
	Prefix string

	// Retries bounds how often a failed file creation is attempted again.
	// Zero uses the default; a negative value disables retries.
	Retries    int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Session is everything needed to persist one run.
type Session struct {
	Records     []experiment.TrialRecord
	Correctness []experiment.Correctness
	// Partial marks a session that was aborted before completion.
	Partial bool
}

// Receipt describes a persisted session.
type Receipt struct {
	PID     int
	Path    string
	Digest  string
	Summary scoring.Summary
}

// Store is a results directory.
type Store struct {
	dir    string
	opts   Options
	ledger *ledger
	log    *slog.Logger
}

// Open creates dir if needed and opens its ledger.
func Open(dir string, opts Options) (*Store, error) {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	} else if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, experiment.Wrap(experiment.ErrWrite, err, "create results directory %s", dir)
	}
	l, err := openLedger(filepath.Join(dir, ledgerName))
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrWrite, err, "open ledger in %s", dir)
	}

	return &Store{
		dir:    dir,
		opts:   opts,
		ledger: l,
		log:    opts.Logger.With(slog.String("component", "results")),
	}, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close closes the ledger.
func (s *Store) Close() error {
	return s.ledger.Close()
}

// FileName returns the result file name for pid.
func (s *Store) FileName(pid int) string {
	return s.opts.Prefix + strconv.Itoa(pid) + ".csv"
}

// IsResultFile reports whether name looks like a file written by this store.
func (s *Store) IsResultFile(name string) bool {
	name = filepath.Base(name)
	if !strings.HasPrefix(name, s.opts.Prefix) || !strings.HasSuffix(name, ".csv") {
		return false
	}
	_, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, s.opts.Prefix), ".csv"))
	return err == nil
}

// NextParticipantID returns the id the next session would receive. It does
// not reserve it.
func (s *Store) NextParticipantID(ctx context.Context) (int, error) {
	unlock, err := lockDir(ctx, filepath.Join(s.dir, lockName))
	if err != nil {
		return 0, err
	}
	defer unlock()
	return s.nextID(ctx)
}

// nextID is one past the larger of the result file count and the highest
// id in the ledger, so ids of removed files are not handed out again.
func (s *Store) nextID(ctx context.Context) (int, error) {
	n, err := s.countFiles()
	if err != nil {
		return 0, err
	}
	last, err := s.ledger.maxPID(ctx)
	if err != nil {
		return 0, err
	}
	return max(n, last) + 1, nil
}

func (s *Store) countFiles() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list results: %w", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && s.IsResultFile(e.Name()) {
			n++
		}
	}
	return n, nil
}

// Persist assigns the next participant id and writes session under it. On
// failure nothing is left behind and the returned error matches
// experiment.ErrWrite; session is not modified, so the caller can try
// another Store.
func (s *Store) Persist(ctx context.Context, session Session) (*Receipt, error) {
	unlock, err := lockDir(ctx, filepath.Join(s.dir, lockName))
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrWrite, err, "lock %s", s.dir)
	}
	defer unlock()

	pid, err := s.nextID(ctx)
	if err != nil {
		return nil, experiment.Wrap(experiment.ErrWrite, err, "assign participant id")
	}
	f, pid, err := s.create(ctx, pid)
	if err != nil {
		return nil, err
	}
	path := f.Name()

	digest, err := writeSession(f, pid, session)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, experiment.Wrap(experiment.ErrWrite, err, "write %s", path)
	}

	receipt := &Receipt{
		PID:     pid,
		Path:    path,
		Digest:  digest,
		Summary: scoring.Summarize(session.Correctness),
	}
	entry := Entry{
		PID:       pid,
		File:      filepath.Base(path),
		CreatedAt: time.Now().UTC(),
		Trials:    len(session.Records),
		Correct:   receipt.Summary.Correct,
		Digest:    digest,
		Partial:   session.Partial,
	}
	if err := s.ledger.insert(ctx, entry); err != nil {
		// The CSV is authoritative; a missing ledger row only weakens verify.
		s.log.Warn("ledger insert failed", slog.Int("pid", pid), slog.Any("error", err))
	}

	s.log.Info("session persisted",
		slog.Int("pid", pid),
		slog.String("path", path),
		slog.String("score", receipt.Summary.String()),
		slog.Bool("partial", session.Partial))
	return receipt, nil
}

// create opens a new result file for pid, advancing past names that already
// exist. Other failures are retried a bounded number of times.
func (s *Store) create(ctx context.Context, pid int) (*os.File, int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			s.log.Warn("retrying result file creation",
				slog.Int("attempt", attempt),
				slog.Any("error", lastErr))
			select {
			case <-ctx.Done():
				return nil, 0, experiment.Wrap(experiment.ErrWrite, ctx.Err(), "create result file")
			case <-time.After(s.opts.RetryDelay):
			}
		}

		for {
			path := filepath.Join(s.dir, s.FileName(pid))
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err == nil {
				return f, pid, nil
			}
			if errors.Is(err, fs.ErrExist) {
				s.log.Debug("result file exists, advancing id", slog.Int("pid", pid))
				pid++
				continue
			}
			lastErr = err
			break
		}
	}
	return nil, 0, experiment.Wrap(experiment.ErrWrite, lastErr, "create result file after %d attempts", s.opts.Retries+1)
}
