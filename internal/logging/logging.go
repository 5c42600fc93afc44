// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options selects the handler, level and sinks.
type Options struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string
	// Format is text, json or auto. Auto picks text on a terminal.
	Format string
	// File, when set, receives a copy of every record.
	File      string
	MaxSizeMB int
	MaxFiles  int
}

// ParseLevel converts a level name to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to stderr and, optionally, a rotating file.
// The returned closer releases the file and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	return newLogger(opts, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newLogger(opts Options, stderr io.Writer, tty bool) (*slog.Logger, io.Closer, error) {
	var w io.Writer = stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		f, err := OpenRotatingFile(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(stderr, f)
		closer = f
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		if tty {
			handler = slog.NewTextHandler(w, handlerOpts)
		} else {
			handler = slog.NewJSONHandler(w, handlerOpts)
		}
	}
	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
