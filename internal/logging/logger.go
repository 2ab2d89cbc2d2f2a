package logging

import (
	"log/slog"
	"os"
)

// NewLogger builds the *slog.Logger both binaries log through, writing to
// stderr.
// debug raises the level to slog.LevelDebug and turns on source locations;
// otherwise the daemon logs at Info and the CLI at Warn.
func NewLogger(debug bool, cliMode bool) *slog.Logger {
	opts := DefaultOptions()
	opts.ShowSource = debug
	if debug {
		opts.Level = slog.LevelDebug
	} else if cliMode {
		opts.Level = slog.LevelWarn
	}
	return slog.New(New(os.Stderr, opts))
}
