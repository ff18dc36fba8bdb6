// Package logging builds the per-run slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/qepting91/misinfo-collector/internal/domain"
)

// StampLayout names per-run files: data_2023_01_02-15_04_05.json.
const StampLayout = "2006_01_02-15_04_05"

type Options struct {
	Level  string
	Format string
	// Dir receives <Name>_<stamp>.log. Empty disables the file.
	Dir  string
	Name string
	// Stdout also writes to standard output.
	Stdout bool
	Now    time.Time
}

// Logger is a run logger and the file behind it.
type Logger struct {
	*slog.Logger
	Path string
	file *os.File
}

// New opens the run's log file and returns a logger writing to it, and to
// stdout when asked. With neither, logs go to stderr.
func New(opts Options) (*Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	l := &Logger{}
	var writers []io.Writer
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		l.Path = filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", opts.Name, now.Format(StampLayout)))
		f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l.file = f
		writers = append(writers, f)
	}
	if opts.Stdout {
		writers = append(writers, os.Stdout)
	}

	var w io.Writer
	color := false
	switch len(writers) {
	case 0:
		w, color = os.Stderr, true
	case 1:
		w, color = writers[0], opts.Stdout
	default:
		w = io.MultiWriter(writers...)
	}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    !color,
		})
	}
	l.Logger = slog.New(handler).With("cmd", opts.Name)
	return l, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, domain.Configf("unknown log level %q", s)
}
