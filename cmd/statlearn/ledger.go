package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"statlearn/internal/results"
)

func cmdHistory() int {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	logger, err := setupLogger(cfg, false)
	if err != nil {
		return fail("setup logging: %v", err)
	}
	defer logger.Close()

	store, err := openStore(cfg.Results.Dir, cfg, logger.Logger)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()

	entries, err := store.History(context.Background())
	if err != nil {
		return fail("read ledger: %v", err)
	}
	if err := printHistory(os.Stdout, entries, *jsonOutput); err != nil {
		return fail("%v", err)
	}
	return 0
}

func printHistory(w io.Writer, entries []results.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if entries == nil {
			entries = []results.Entry{}
		}
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	fmt.Fprintf(w, "%-5s %-20s %-8s %-8s %-8s %s\n", "PID", "FILE", "TRIALS", "SCORE", "PARTIAL", "SAVED")
	for _, e := range entries {
		partial := ""
		if e.Partial {
			partial = "yes"
		}
		fmt.Fprintf(w, "%-5d %-20s %-8d %-8s %-8s %s\n",
			e.PID, e.File, e.Trials,
			fmt.Sprintf("%d/%d", e.Correct, e.Trials),
			partial,
			e.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func cmdVerify() int {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	logger, err := setupLogger(cfg, false)
	if err != nil {
		return fail("setup logging: %v", err)
	}
	defer logger.Close()

	store, err := openStore(cfg.Results.Dir, cfg, logger.Logger)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()

	problems, err := store.Verify(context.Background())
	if err != nil {
		return fail("verify: %v", err)
	}
	if err := printProblems(os.Stdout, problems, *jsonOutput); err != nil {
		return fail("%v", err)
	}
	if len(problems) > 0 {
		return 2
	}
	return 0
}

func printProblems(w io.Writer, problems []results.Problem, asJSON bool) error {
	if asJSON {
		if problems == nil {
			problems = []results.Problem{}
		}
		return json.NewEncoder(w).Encode(problems)
	}
	if len(problems) == 0 {
		fmt.Fprintln(w, "All result files match the ledger.")
		return nil
	}
	for _, p := range problems {
		line := fmt.Sprintf("%-20s %s", p.File, p.Kind)
		if p.Detail != "" {
			line += " (" + p.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func cmdNextID() int {
	cfg, err := loadConfig()
	if err != nil {
		return fail("%v", err)
	}
	logger, err := setupLogger(cfg, false)
	if err != nil {
		return fail("setup logging: %v", err)
	}
	defer logger.Close()

	store, err := openStore(cfg.Results.Dir, cfg, logger.Logger)
	if err != nil {
		return fail("%v", err)
	}
	defer store.Close()

	pid, err := store.NextParticipantID(context.Background())
	if err != nil {
		return fail("%v", err)
	}
	fmt.Println(pid)
	return 0
}
