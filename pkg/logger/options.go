package logger

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// CLIOption configures a logger created with NewCLILogger.
type CLIOption func(*log.Options)

// WithPrefix prints prefix before every message.
func WithPrefix(prefix string) CLIOption {
	return func(o *log.Options) {
		o.Prefix = prefix
	}
}

// WithTimestamp includes a short time stamp on every line.
func WithTimestamp(on bool) CLIOption {
	return func(o *log.Options) {
		o.ReportTimestamp = on
		o.TimeFormat = time.Kitchen
	}
}

// WithCaller includes source file:line in log output.
func WithCaller(on bool) CLIOption {
	return func(o *log.Options) {
		o.ReportCaller = on
	}
}

// NewCLILogger creates the human facing logger used by client commands.
// It writes to os.Stderr when w is nil.
func NewCLILogger(w io.Writer, debug bool, opts ...CLIOption) *log.Logger {
	if w == nil {
		w = os.Stderr
	}

	o := log.Options{Level: log.InfoLevel}
	if debug {
		o.Level = log.DebugLevel
	}
	for _, opt := range opts {
		opt(&o)
	}

	return log.NewWithOptions(w, o)
}
