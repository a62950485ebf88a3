// statlearn runs forced-choice listening sessions and manages their results.
package main

import (
	"flag"
	"fmt"
	"os"

	"statlearn/internal/config"
	"statlearn/internal/logging"
)

var (
	configPath = flag.String("config", "", "path to config file")
	debugMode  = flag.Bool("debug", false, "skip training and run the abbreviated session")
	noShuffle  = flag.Bool("no-shuffle", false, "present test items in sorted order")
	jsonOutput = flag.Bool("json", false, "print history and verify output as JSON")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	var code int
	switch cmd := flag.Arg(0); cmd {
	case "run":
		code = cmdRun()
	case "history":
		code = cmdHistory()
	case "verify":
		code = cmdVerify()
	case "monitor":
		code = cmdMonitor()
	case "next-id":
		code = cmdNextID()
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		code = 1
	}
	os.Exit(code)
}

func usage() {
	fmt.Fprintln(os.Stderr, `statlearn - forced-choice listening experiment

Usage: statlearn [options] <command>

Commands:
  run        Run one participant session
  history    Print the results ledger
  verify     Check result files against the ledger
  monitor    Watch the results directory and report new sessions
  next-id    Print the participant id the next session will receive
  help       Show this help message

Options:
  -config <path>  Path to config file (default: ./statlearn.toml)
  -debug          Skip training and run the abbreviated session
  -no-shuffle     Present test items in sorted order
  -json           JSON output for history and verify`)
}

// loadConfig loads, applies command-line overrides and validates. Any
// problem is fatal before a participant sees anything.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *debugMode {
		cfg.Experiment.Debug = true
	}
	if *noShuffle {
		cfg.Experiment.Randomize = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogger builds the process logger. Outside a session the screen is
// free, so file-only logging is mirrored to stderr.
func setupLogger(cfg *config.Config, session bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	output := cfg.Logging.Output
	if !session && output == "file" {
		output = "both"
	}
	if session && (output == "stdout" || output == "stderr" || output == "both") {
		// The terminal presenter owns the screen.
		output = "file"
	}

	return logging.New(&logging.Config{
		Level:      level,
		Format:     format,
		Output:     output,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    int64(cfg.Logging.MaxSizeMB),
		MaxBackups: cfg.Logging.MaxBackups,
		Component:  "statlearn",
	})
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return 1
}
