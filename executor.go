package sra

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/runner"
)

// TestRunner is the part of runner.MasterTestRunner the service uses
type TestRunner interface {
	Run(ctx context.Context) (*runner.RunResult, error)
}

var _ TestRunner = (*runner.MasterTestRunner)(nil)

// TestExecutor is responsible for running tests.
type TestExecutor interface {
	RunTests(ctx context.Context) (*runner.RunResult, error)
}

// DefaultTestExecutor implements the TestExecutor interface.
type DefaultTestExecutor struct {
	runner TestRunner
	logger log.Logger
}

// NewDefaultTestExecutor creates a new DefaultTestExecutor.
func NewDefaultTestExecutor(runner TestRunner, logger log.Logger) *DefaultTestExecutor {
	return &DefaultTestExecutor{
		runner: runner,
		logger: logger,
	}
}

// RunTests runs the whole schedule once and returns its results.
func (e *DefaultTestExecutor) RunTests(ctx context.Context) (*runner.RunResult, error) {
	e.logger.Info("Running screen reader tests...")
	result, err := e.runner.Run(ctx)
	if err != nil {
		e.logger.Error("Error running tests", "error", err)
		return nil, err
	}
	e.logger.Info("Test run completed", "run_id", result.RunID, "passed", result.Report.PassedTests,
		"failed", result.Report.FailedTests, "halted", result.Halted)
	return result, nil
}
