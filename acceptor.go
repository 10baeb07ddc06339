package sra

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/kbasefaqs/sr-acceptor/exitcodes"
	"github.com/kbasefaqs/sr-acceptor/logging"
	"github.com/kbasefaqs/sr-acceptor/probe"
	"github.com/kbasefaqs/sr-acceptor/registry"
	"github.com/kbasefaqs/sr-acceptor/reporting"
	"github.com/kbasefaqs/sr-acceptor/runner"
	"github.com/kbasefaqs/sr-acceptor/screenreader"
	"github.com/kbasefaqs/sr-acceptor/service"
	"github.com/kbasefaqs/sr-acceptor/types"
)

// acceptor implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &acceptor{}

// ReportSink receives the finished report of every run
type ReportSink interface {
	Complete(data *reporting.ReportData) error
}

// acceptor runs the screen reader schedule once or periodically.
type acceptor struct {
	config    *Config
	version   string
	executor  TestExecutor
	formatter ResultFormatter
	reporter  MetricsReporter
	scheduler TestScheduler
	sink      ReportSink
	progress  runner.ProgressIndicator
	service   *service.Service

	mu     sync.Mutex
	result *runner.RunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*acceptor, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
	}

	config.Log.Debug("Creating acceptor with config",
		"screenReaders", config.RunConfig.EnabledScreenReaders,
		"suites", config.RunConfig.TestSuites,
		"catalog", config.CatalogFile,
		"outputDir", config.OutputDir,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce,
		"minSuccessRate", config.MinSuccessRate)

	reg, err := registry.NewRegistry(registry.Config{
		Log:         config.Log,
		CatalogFile: config.CatalogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	var availability probe.AvailabilityProbe = probe.NewHostProbe(config.Log)
	if config.Platform != "" {
		config.Log.Info("Using platform override", "platform", config.Platform)
		availability = probe.NewStaticProbe(config.Platform)
	}

	adapters, err := newAdapters(config, availability.Probe())
	if err != nil {
		return nil, err
	}

	fileLogger, err := logging.NewFileLogger(config.OutputDir, logging.Options{
		ComparisonReport:  config.RunConfig.GenerateComparisonReport,
		IndividualReports: config.RunConfig.SaveIndividualReports,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}

	progress := runner.NewNoOpProgressIndicator()
	if config.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(config.Log, config.ProgressInterval)
	}

	testRunner, err := runner.NewMasterTestRunner(runner.Config{
		Registry:     reg,
		Adapters:     adapters,
		Probe:        availability,
		RunConfig:    config.RunConfig,
		Log:          config.Log,
		Progress:     progress,
		ResultLogger: fileLogger,
	})
	if err != nil {
		progress.Stop()
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	config.Log.Info("acceptor.New: created registry and test runner",
		"enabled", testRunner.EnabledScreenReaders(), "excluded", testRunner.ExcludedScreenReaders())

	return &acceptor{
		config:           config,
		version:          version,
		executor:         NewDefaultTestExecutor(testRunner, config.Log),
		formatter:        NewConsoleResultFormatter(config.Log),
		reporter:         NewDefaultMetricsReporter(),
		scheduler:        NewDefaultTestScheduler(config.RunInterval, config.RunOnce, config.Log),
		sink:             fileLogger,
		progress:         progress,
		service:          service.New(config.Service, config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// newAdapters creates one command driven adapter per requested screen reader
// that can run on this host. Drivers of excluded screen readers are not read.
func newAdapters(config *Config, available []types.ScreenReaderKind) ([]screenreader.Adapter, error) {
	enabled, _ := probe.Intersect(config.RunConfig.EnabledScreenReaders, available)
	adapters := make([]screenreader.Adapter, 0, len(enabled))
	for _, kind := range enabled {
		driver, err := screenreader.NewCommandDriver(config.Drivers[kind])
		if err != nil {
			return nil, fmt.Errorf("invalid driver for %s: %w", kind, err)
		}
		adapter, err := screenreader.New(kind, driver, config.Log)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

// Start runs the schedule immediately and, in continuous mode, periodically.
// Start implements the cliapp.Lifecycle interface.
func (a *acceptor) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			a.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	if a.service != nil {
		a.service.Start(ctx)
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting sr-acceptor in run-once mode", "version", a.version)
	} else {
		a.config.Log.Info("Starting sr-acceptor in continuous mode", "version", a.version, "interval", a.config.RunInterval)
	}

	a.scheduler.RegisterCallback(func(ctx context.Context) error {
		err := a.runTests(ctx)
		if !a.config.RunOnce && IsTestFailureError(err) {
			// failing runs are reported but never stop continuous mode
			a.config.Log.Warn("Run completed with failures", "error", err)
			return nil
		}
		return err
	})

	if err := a.scheduler.Start(ctx); err != nil {
		if IsTestFailureError(err) {
			a.config.Log.Warn("Run-once test run completed with failures, returning exit code 1", "error", err)
			return err
		}
		a.config.Log.Error("Runtime error running tests", "error", err)
		if !IsRuntimeError(err) {
			err = NewRuntimeError(err)
		}
		return err
	}

	if a.config.RunOnce {
		a.config.Log.Info("Tests completed, exiting (run-once mode)")
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil
	}

	a.config.Log.Debug("sr-acceptor started successfully")
	return nil
}

// runTests executes one run, writes its reports and evaluates the outcome
func (a *acceptor) runTests(ctx context.Context) error {
	result, err := a.executor.RunTests(ctx)
	if err != nil {
		return NewRuntimeError(err)
	}

	data, err := reporting.NewReportData(result.RunID, result.Report, result.Duration)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to build report: %w", err))
	}
	if a.sink != nil {
		if err := a.sink.Complete(data); err != nil {
			return NewRuntimeError(fmt.Errorf("failed to write reports: %w", err))
		}
	}
	if err := a.formatter.FormatResults(data); err != nil {
		a.config.Log.Error("Failed to print results", "error", err)
	}
	a.reporter.ReportResults(result)

	a.mu.Lock()
	a.result = result
	a.mu.Unlock()

	a.config.Log.Info("Test run completed", "run_id", result.RunID, "successRate", result.Report.SuccessRate,
		"digest", data.Digest, "outputDir", reporting.RunDirectory(a.config.OutputDir, result.RunID))
	return a.evaluate(result)
}

// evaluate maps a finished run to its outcome. Without a quality gate any
// failed case fails the run; with one, tolerated failures only fail the run
// when the success rate drops below the gate.
func (a *acceptor) evaluate(result *runner.RunResult) error {
	report := result.Report
	switch {
	case result.Interrupted():
		return NewTestFailureError(fmt.Sprintf("run %s was interrupted after %d cases", result.RunID, report.TotalTests))
	case result.Halted:
		return NewTestFailureError(fmt.Sprintf("run %s halted on the first failure (%s)", result.RunID, result.HaltedBy))
	case report.TotalTests == 0:
		return NewTestFailureError(fmt.Sprintf("run %s executed no cases", result.RunID))
	case a.config.MinSuccessRate > 0:
		if report.SuccessRate < a.config.MinSuccessRate {
			return NewTestFailureError(fmt.Sprintf("success rate %.1f%% is below the required %.1f%% (%d of %d cases failed)",
				report.SuccessRate, a.config.MinSuccessRate, report.FailedTests, report.TotalTests))
		}
		return nil
	case report.FailedTests > 0:
		return NewTestFailureError(fmt.Sprintf("%d of %d cases failed", report.FailedTests, report.TotalTests))
	}
	return nil
}

// LastResult returns the result of the most recent run
func (a *acceptor) LastResult() *runner.RunResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Stop stops the sr-acceptor service.
// Stop implements the cliapp.Lifecycle interface.
func (a *acceptor) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping sr-acceptor")

	// the scheduler may already be stopped by a cancelled context; the
	// progress indicator and servers still need to be released
	err := a.scheduler.Stop()
	if a.progress != nil {
		a.progress.Stop()
	}
	if a.service != nil {
		a.service.Shutdown()
	}

	a.config.Log.Info("sr-acceptor stopped successfully")
	return err
}

// Stopped returns true if the sr-acceptor service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (a *acceptor) Stopped() bool {
	return a.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
func (a *acceptor) WaitForShutdown(ctx context.Context) error {
	return a.scheduler.WaitForShutdown(ctx)
}
