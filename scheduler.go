package sra

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// RunCallback executes one run. ctx is cancelled when the scheduler stops.
type RunCallback func(ctx context.Context) error

// TestScheduler is responsible for scheduling periodic runs.
type TestScheduler interface {
	Start(ctx context.Context) error
	Stop() error
	RegisterCallback(RunCallback)
	WaitForShutdown(ctx context.Context) error
	Stopped() bool
}

// DefaultTestScheduler runs the callback once on Start and then, unless in
// run-once mode, every interval until stopped. Runs never overlap.
type DefaultTestScheduler struct {
	interval time.Duration
	runOnce  bool
	logger   log.Logger
	callback RunCallback

	running atomic.Bool
	done    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewDefaultTestScheduler creates a new DefaultTestScheduler.
func NewDefaultTestScheduler(interval time.Duration, runOnce bool, logger log.Logger) *DefaultTestScheduler {
	return &DefaultTestScheduler{
		interval: interval,
		runOnce:  runOnce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// RegisterCallback registers the callback to be called when a run is due.
func (s *DefaultTestScheduler) RegisterCallback(callback RunCallback) {
	s.callback = callback
}

// Start runs the callback immediately and, in continuous mode, starts the
// periodic runner. The error of the first run is returned.
func (s *DefaultTestScheduler) Start(ctx context.Context) error {
	if s.callback == nil {
		return errors.New("callback must be registered before starting scheduler")
	}
	if !s.runOnce && s.interval <= 0 {
		return errors.New("run interval must be positive in continuous mode")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	if s.runOnce {
		s.logger.Info("Starting scheduler in run-once mode")
		return s.callback(runCtx)
	}

	s.logger.Info("Starting scheduler in continuous mode", "interval", s.interval)
	if err := s.callback(runCtx); err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Debug("Starting periodic runner goroutine", "interval", s.interval)

		for {
			select {
			case <-time.After(s.interval):
				if !s.running.Load() {
					s.logger.Debug("Service stopped, exiting periodic runner")
					return
				}

				s.logger.Info("Running periodic screen reader tests")
				if err := s.callback(runCtx); err != nil {
					s.logger.Error("Error running periodic tests", "error", err)
				}
				s.logger.Info("Next run scheduled", "interval", s.interval)

			case <-s.done:
				s.logger.Debug("Done signal received, stopping periodic runner")
				return

			case <-runCtx.Done():
				s.logger.Debug("Context canceled, stopping periodic runner")
				s.running.Store(false)
				return
			}
		}
	}()

	return nil
}

// Stop stops the scheduler and interrupts a run in progress.
func (s *DefaultTestScheduler) Stop() error {
	if !s.running.Load() {
		s.logger.Debug("Scheduler already stopped, nothing to do")
		return nil
	}

	// prevent new runs before interrupting the current one
	s.running.Store(false)
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Stopped returns true if the scheduler is stopped.
func (s *DefaultTestScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (s *DefaultTestScheduler) WaitForShutdown(ctx context.Context) error {
	s.logger.Debug("Waiting for all goroutines to terminate")

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("All goroutines terminated successfully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
