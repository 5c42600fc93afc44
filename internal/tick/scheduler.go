// Package tick drives module updates at a fixed rate.
package tick

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/deskmod/internal/platform"
)

// DefaultRate is the tick frequency in Hz.
const DefaultRate = 20

// Target is one tickable module.
type Target interface {
	TickName() string
	TickActive() bool
	Tick() error
	RequestFrame() error
}

// Source returns the current set of targets. It is called once per pass.
type Source interface {
	TickTargets() []Target
}

// SourceFunc adapts a function to Source.
type SourceFunc func() []Target

func (f SourceFunc) TickTargets() []Target { return f() }

// Config holds scheduler settings.
type Config struct {
	// Rate is the tick frequency in Hz. Zero means DefaultRate.
	Rate   int
	Logger *slog.Logger
}

// TickError reports a failed tick or frame request.
type TickError struct {
	Target string
	Phase  string
	Err    error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Target, e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }

// Scheduler calls Tick and then RequestFrame on every active target each
// interval. A failing target is logged and does not affect the others.
type Scheduler struct {
	interval time.Duration
	source   Source
	logger   *slog.Logger

	mu      sync.Mutex
	failing map[string]int
	passes  uint64
}

// NewScheduler creates a scheduler over source.
func NewScheduler(cfg Config, source Source) *Scheduler {
	rate := cfg.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval: time.Second / time.Duration(rate),
		source:   source,
		logger:   logger,
		failing:  make(map[string]int),
	}
}

// Interval returns the time between passes.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Passes returns how many passes have completed.
func (s *Scheduler) Passes() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passes
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("tick scheduler started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("tick scheduler stopped")
			return
		case <-ticker.C:
			s.Pass()
		}
	}
}

// Pass runs a single tick pass and returns the errors it logged.
func (s *Scheduler) Pass() []error {
	var errs []error
	for _, t := range s.source.TickTargets() {
		if !t.TickActive() {
			continue
		}
		err := s.run(t, "tick", t.Tick)
		if err == nil {
			err = s.run(t, "frame", t.RequestFrame)
		}
		s.record(t.TickName(), err)
		if err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.passes++
	s.mu.Unlock()
	return errs
}

func (s *Scheduler) run(t Target, phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TickError{Target: t.TickName(), Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if e := fn(); e != nil {
		// A module disabled mid-pass loses its surface; that is not a failure.
		if errors.Is(e, platform.ErrSurfaceDestroyed) {
			return nil
		}
		return &TickError{Target: t.TickName(), Phase: phase, Err: e}
	}
	return nil
}

// record logs the first failure of a streak at error level and repeats at
// debug, so a module failing every tick does not flood the log.
func (s *Scheduler) record(name string, err error) {
	s.mu.Lock()
	streak := s.failing[name]
	if err != nil {
		s.failing[name] = streak + 1
	} else {
		delete(s.failing, name)
	}
	s.mu.Unlock()

	switch {
	case err != nil && streak == 0:
		s.logger.Error("module tick failed", "module", name, "error", err)
	case err != nil:
		s.logger.Debug("module tick failed", "module", name, "error", err, "streak", streak+1)
	case streak > 0:
		s.logger.Info("module tick recovered", "module", name, "failures", streak)
	}
}
