package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the process logs.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	// Dir, when set, receives a JSON copy of every log line in run_<timestamp>.log.
	Dir string
	// Out defaults to stderr.
	Out io.Writer
}

// RunLog is the per-invocation log destination.
type RunLog struct {
	file *os.File
	path string
}

// Path returns the run log file path, empty when no file is written.
func (r *RunLog) Path() string {
	if r == nil {
		return ""
	}
	return r.path
}

// Close flushes and closes the run log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Setup configures the global zerolog logger and returns the run log handle.
func Setup(opts Options) (*RunLog, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var console io.Writer = out
	if strings.ToLower(opts.Format) != "json" {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	run := &RunLog{}
	writers := []io.Writer{console}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		name := fmt.Sprintf("run_%s.log", time.Now().Format("20060102_150405"))
		run.path = filepath.Join(opts.Dir, name)
		f, err := os.Create(run.path)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		run.file = f
		writers = append(writers, f)
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return run, nil
}

// ParseLevel accepts the level names used in configuration. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// WithRunID attaches the run id to the global logger.
func WithRunID(runID string) {
	log.Logger = log.Logger.With().Str("run_id", runID).Logger()
}
