// Package logging sets up the process wide slog logger. Output can be held
// back in memory until a display (the bus monitor) attaches, and can be
// copied to a file at the same time.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"lautenbacher.net/gospi/config"
)

// sink writes either to a live target or to a backlog, and always to the
// optional file.
type sink struct {
	mu      sync.Mutex
	backlog bytes.Buffer
	target  io.Writer
	file    *os.File
	holding bool
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	switch {
	case s.holding:
		s.backlog.Write(p)
	case s.target != nil:
		if _, err := s.target.Write(p); err != nil {
			firstErr = err
		}
	}
	if s.file != nil {
		if _, err := s.file.Write(p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(p), firstErr
}

var current *sink

// ParseLevel maps DEBUG, INFO, WARN and ERROR to slog levels; anything else
// is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init installs the default logger. With hold set, records are kept in
// memory until Attach; otherwise they go to stderr.
func Init(conf config.LoggingConfig, hold bool) error {
	s := &sink{holding: hold}
	if !hold {
		s.target = os.Stderr
	}
	if conf.File != "" {
		file, err := os.OpenFile(conf.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		s.file = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(conf.Level)}
	var handler slog.Handler
	if strings.ToLower(conf.Format) == "json" {
		handler = slog.NewJSONHandler(s, opts)
	} else {
		handler = slog.NewTextHandler(s, opts)
	}
	current = s
	slog.SetDefault(slog.New(handler))
	return nil
}

// Attach flushes the backlog to w and makes w the live target.
func Attach(w io.Writer) error {
	current.mu.Lock()
	defer current.mu.Unlock()

	if current.backlog.Len() > 0 {
		if _, err := w.Write(current.backlog.Bytes()); err != nil {
			return err
		}
		current.backlog.Reset()
	}
	current.target = w
	current.holding = false
	return nil
}

// Detach drops the live target and holds records again.
func Detach() {
	current.mu.Lock()
	defer current.mu.Unlock()
	current.target = nil
	current.holding = true
}

// Close writes any backlog to the log file, or to stderr if there is no file
// and no live target, and closes the file.
func Close() error {
	current.mu.Lock()
	defer current.mu.Unlock()

	var firstErr error
	switch {
	case current.file != nil:
		if err := current.file.Close(); err != nil {
			firstErr = err
		}
		current.file = nil
	case current.target == nil && current.backlog.Len() > 0:
		if _, err := os.Stderr.Write(current.backlog.Bytes()); err != nil {
			firstErr = err
		}
	}
	current.backlog.Reset()
	return firstErr
}
