package results

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Problem kinds reported by Verify.
const (
	ProblemMissing   = "missing"
	ProblemModified  = "modified"
	ProblemUntracked = "untracked"
)

// Problem is a result file that does not match the ledger.
type Problem struct {
	File   string `json:"file"`
	PID    int    `json:"pid,omitempty"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// History returns the ledger in participant id order.
func (s *Store) History(ctx context.Context) ([]Entry, error) {
	return s.ledger.list(ctx)
}

// Lookup returns the ledger entry for a result file. path may be a bare name
// or a path inside the results directory.
func (s *Store) Lookup(ctx context.Context, path string) (Entry, error) {
	return s.ledger.byFile(ctx, filepath.Base(path))
}

// Verify recomputes the digest of every ledgered file and reports files that
// are missing, changed since they were written, or unknown to the ledger.
func (s *Store) Verify(ctx context.Context) ([]Problem, error) {
	entries, err := s.ledger.list(ctx)
	if err != nil {
		return nil, err
	}

	var problems []Problem
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.File] = true
		got, err := Digest(filepath.Join(s.dir, e.File))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			problems = append(problems, Problem{File: e.File, PID: e.PID, Kind: ProblemMissing})
		case err != nil:
			return nil, err
		case got != e.Digest:
			problems = append(problems, Problem{
				File:   e.File,
				PID:    e.PID,
				Kind:   ProblemModified,
				Detail: "digest " + got + ", ledger " + e.Digest,
			})
		}
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	for _, d := range dirEntries {
		if d.IsDir() || !s.IsResultFile(d.Name()) || known[d.Name()] {
			continue
		}
		problems = append(problems, Problem{File: d.Name(), Kind: ProblemUntracked})
	}
	return problems, nil
}
