// Package logging configures log/slog for the spawn command.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
)

// Options selects the handler installed by Setup.
type Options struct {
	Debug bool
	// Journal sends records to journald instead of Output.
	Journal bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Setup builds the logger described by opts and installs it as the slog
// default. Asking for the journal when journald is not reachable is an error.
func Setup(opts Options) (*slog.Logger, error) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var h slog.Handler
	if opts.Journal {
		if !journal.Enabled() {
			return nil, fmt.Errorf("journald socket not available")
		}
		h = NewJournalHandler(level)
	} else {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		h = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger, nil
}
