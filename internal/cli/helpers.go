// Package cli holds the plumbing behind the arbor commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// Settings is what every command starts from.
type Settings struct {
	Config config.Config
	Logger *slog.Logger
}

// LoadSettings reads the configuration file, applies ARBOR_* overrides and builds
// the logger. Debug forces the debug level.
func LoadSettings(path string, debug bool) (Settings, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return Settings{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Settings{}, err
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return Settings{Config: cfg, Logger: createLogger(cfg, debug)}, nil
}

// createLogger configures the application logger.
// Outside debug mode only warnings and errors reach Stderr, so that diagram output
// on Stdout stays clean.
func createLogger(cfg config.Config, debug bool) *slog.Logger {
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return logging.NewNop()
	}
	if debug {
		return logging.NewWithWriter(os.Stderr, slog.LevelDebug, format)
	}
	level, err := cfg.Level()
	if err != nil {
		return logging.NewNop()
	}
	return logging.NewWithWriter(os.Stderr, max(level, slog.LevelWarn), format)
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
