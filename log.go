package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// setupLog routes logging before anything else runs: to a file when
// VOXREAD_LOGFILE is set (needed when the TUI owns the terminal),
// otherwise discarded until --debug raises the level.
func setupLog() (func() error, error) {
	log.SetOutput(io.Discard)

	if path := os.Getenv("VOXREAD_LOGFILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		log.SetLevel(log.DebugLevel)
		log.SetReportTimestamp(true)
		return f.Close, nil
	}

	return func() error { return nil }, nil
}

// enableDebugLog is called once flags are parsed and --debug is set.
func enableDebugLog() {
	if os.Getenv("VOXREAD_LOGFILE") != "" {
		return
	}
	log.SetOutput(os.Stderr)
	log.SetLevel(log.DebugLevel)
}
