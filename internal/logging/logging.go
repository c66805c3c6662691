package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	setupOnce sync.Once
	logger    zerolog.Logger
	setupErr  error
)

// Setup configures the process-wide logger once: a console writer on stdout,
// plus a file sink when path is set. Later calls return the first logger.
//
// A file sink that cannot be opened is reported through the error, but the
// returned logger is still usable and writes to the console only.
func Setup(debug bool, path string) (zerolog.Logger, error) {
	setupOnce.Do(func() {
		logger, setupErr = build(os.Stdout, debug, path)
		log.Logger = logger
		zerolog.SetGlobalLevel(levelFor(debug))
	})
	return logger, setupErr
}

// New creates a console logger at info level, for use before Setup has run
func New() zerolog.Logger {
	l, _ := build(os.Stderr, false, "")
	return l
}

func build(console io.Writer, debug bool, path string) (zerolog.Logger, error) {
	writers := []io.Writer{
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
	}

	var err error
	if path != "" {
		var f *os.File
		f, err = openLogFile(path)
		if err == nil {
			writers = append(writers, f)
		}
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(levelFor(debug)).
		With().Timestamp().Logger()
	if debug {
		l = l.With().Caller().Logger()
	}

	return l, err
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

func levelFor(debug bool) zerolog.Level {
	if debug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
