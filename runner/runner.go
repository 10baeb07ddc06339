package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kbasefaqs/sr-acceptor/metrics"
	"github.com/kbasefaqs/sr-acceptor/probe"
	"github.com/kbasefaqs/sr-acceptor/registry"
	"github.com/kbasefaqs/sr-acceptor/reporting"
	"github.com/kbasefaqs/sr-acceptor/screenreader"
	"github.com/kbasefaqs/sr-acceptor/types"
)

var (
	// ErrRunInProgress is returned when Run is called while another Run of
	// the same runner has not returned yet
	ErrRunInProgress = errors.New("a run is already in progress")

	errLaneWedged = errors.New("screen reader did not return from a timed out call; remaining cases were not run")
	errNilResult  = errors.New("adapter returned no result")
)

// ResultLogger receives every result as soon as it settles
type ResultLogger interface {
	LogTestResult(result *types.TestResult, runID string) error
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry     *registry.Registry
	Adapters     []screenreader.Adapter
	Probe        probe.AvailabilityProbe // defaults to the host probe
	RunConfig    types.RunConfiguration
	Log          log.Logger
	Progress     ProgressIndicator
	ResultLogger ResultLogger
	GracePeriod  time.Duration // defaults to DefaultGracePeriod
}

// RunResult captures the outcome of one Run
type RunResult struct {
	RunID    string
	Results  []types.TestResult // in settle order
	Report   *types.ComparisonReport
	Halted   bool
	HaltedBy string
	Duration time.Duration
	// LogErr is the first failure to hand a result to the result logger.
	// The results and report are complete regardless.
	LogErr error

	EnabledScreenReaders  []types.ScreenReaderKind
	ExcludedScreenReaders []types.ScreenReaderKind
}

// Interrupted reports whether the run was stopped by its caller
func (r *RunResult) Interrupted() bool {
	return r.HaltedBy == HaltReasonInterrupted
}

// Invocation is one scheduled (screen reader, suite, case) triple
type Invocation struct {
	ScreenReader types.ScreenReaderKind
	Suite        string
	TestName     string
}

type scheduledCase struct {
	suite string
	tc    types.TestCase
}

// lane is one screen reader's ordered slice of the schedule
type lane struct {
	adapter screenreader.Adapter
	cases   []scheduledCase
}

// MasterTestRunner executes a fixed schedule of cases against a set of
// screen reader adapters. The schedule is resolved by NewMasterTestRunner and
// never changes afterwards; no state is kept between runs.
type MasterTestRunner struct {
	config       types.RunConfiguration
	lanes        []lane
	enabled      []types.ScreenReaderKind
	excluded     []types.ScreenReaderKind
	log          log.Logger
	progress     ProgressIndicator
	resultLogger ResultLogger
	gracePeriod  time.Duration
	tracer       trace.Tracer

	running atomic.Bool
}

// NewMasterTestRunner validates the configuration, removes screen readers
// the host cannot run and resolves the schedule. Every problem is reported as
// a *ConfigurationError.
func NewMasterTestRunner(cfg Config) (*MasterTestRunner, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Registry == nil {
		return nil, configErrorf(nil, "registry is required")
	}

	runCfg := cfg.RunConfig.Clone()
	if err := runCfg.Validate(); err != nil {
		return nil, configErrorf(err, "invalid run configuration")
	}

	availability := cfg.Probe
	if availability == nil {
		availability = probe.NewHostProbe(cfg.Log)
	}
	enabled, excluded := probe.Intersect(runCfg.EnabledScreenReaders, availability.Probe())
	for _, kind := range excluded {
		cfg.Log.Info("Screen reader is not available on this host, excluding it",
			"screenReader", kind, "requires", kind.Platform())
	}
	if len(enabled) == 0 {
		return nil, configErrorf(nil, "none of the requested screen readers (%s) can run on this host",
			joinKinds(runCfg.EnabledScreenReaders))
	}

	adapters := make(map[types.ScreenReaderKind]screenreader.Adapter, len(cfg.Adapters))
	for _, a := range cfg.Adapters {
		if a == nil {
			continue
		}
		if _, dup := adapters[a.Kind()]; dup {
			return nil, configErrorf(nil, "more than one adapter registered for %s", a.Kind())
		}
		adapters[a.Kind()] = a
	}

	var schedule []scheduledCase
	for _, suite := range runCfg.TestSuites {
		cases, err := cfg.Registry.CasesForSuite(suite)
		if err != nil {
			return nil, configErrorf(err, "unknown suite %q", suite)
		}
		for _, tc := range cases {
			schedule = append(schedule, scheduledCase{suite: suite, tc: tc})
		}
	}
	if len(schedule) == 0 {
		return nil, configErrorf(nil, "suites %s contain no test cases", strings.Join(runCfg.TestSuites, ", "))
	}

	lanes := make([]lane, 0, len(enabled))
	for _, kind := range enabled {
		a, ok := adapters[kind]
		if !ok {
			return nil, configErrorf(nil, "no adapter registered for %s", kind)
		}
		cases := make([]scheduledCase, len(schedule))
		for i, sc := range schedule {
			cases[i] = scheduledCase{suite: sc.suite, tc: sc.tc.Clone()}
		}
		lanes = append(lanes, lane{adapter: a, cases: cases})
	}

	progress := cfg.Progress
	if progress == nil {
		progress = NewNoOpProgressIndicator()
	}
	grace := cfg.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	cfg.Log.Debug("NewMasterTestRunner()", "enabled", joinKinds(enabled), "excluded", joinKinds(excluded),
		"suites", strings.Join(runCfg.TestSuites, ","), "cases", len(schedule),
		"parallel", runCfg.ParallelExecution, "continueOnFailure", runCfg.ContinueOnFailure,
		"caseTimeout", runCfg.CaseTimeout)

	return &MasterTestRunner{
		config:       runCfg,
		lanes:        lanes,
		enabled:      enabled,
		excluded:     excluded,
		log:          cfg.Log,
		progress:     progress,
		resultLogger: cfg.ResultLogger,
		gracePeriod:  grace,
		tracer:       otel.Tracer(tracerName),
	}, nil
}

// RunConfiguration returns the effective configuration
func (r *MasterTestRunner) RunConfiguration() types.RunConfiguration {
	return r.config.Clone()
}

// EnabledScreenReaders returns the screen readers that will run, in schedule order
func (r *MasterTestRunner) EnabledScreenReaders() []types.ScreenReaderKind {
	return append([]types.ScreenReaderKind(nil), r.enabled...)
}

// ExcludedScreenReaders returns the requested screen readers the host cannot run
func (r *MasterTestRunner) ExcludedScreenReaders() []types.ScreenReaderKind {
	return append([]types.ScreenReaderKind(nil), r.excluded...)
}

// Schedule returns every invocation in sequential execution order
func (r *MasterTestRunner) Schedule() []Invocation {
	var out []Invocation
	for _, l := range r.lanes {
		for _, sc := range l.cases {
			out = append(out, Invocation{ScreenReader: l.adapter.Kind(), Suite: sc.suite, TestName: sc.tc.Name})
		}
	}
	return out
}

// runState is the mutable state of a single Run
type runState struct {
	runID string
	log   log.Logger

	mu      sync.Mutex
	results []types.TestResult

	halt     sync.Once
	isHalted atomic.Bool
	haltedBy string
	// skipped counts cases never scheduled because of the halt
	skipped atomic.Int64
}

func (s *runState) record(result *types.TestResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *result)
}

// stop halts scheduling. Only the first reason is kept.
func (s *runState) stop(reason string) {
	s.halt.Do(func() {
		s.haltedBy = reason
		s.isHalted.Store(true)
		s.log.Warn("Halting run", "reason", reason)
	})
}

func (s *runState) halted() bool {
	return s.isHalted.Load()
}

// truncated reports whether the halt cut the run short. A failure on the
// final case halts nothing, an interruption always counts.
func (s *runState) truncated() bool {
	if !s.halted() {
		return false
	}
	return s.haltedBy == HaltReasonInterrupted || s.skipped.Load() > 0
}

// laneState tracks an adapter call abandoned after a timeout
type laneState struct {
	pending <-chan struct{}
	wedged  bool
}

// Run executes the schedule and returns its results and comparison report.
// Failures of individual cases never make Run return an error.
func (r *MasterTestRunner) Run(ctx context.Context) (*RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer r.running.Store(false)

	runID := uuid.New().String()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", runID), trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Bool("run.parallel", r.config.ParallelExecution),
	))
	defer span.End()

	st := &runState{runID: runID, log: r.log.New("runID", runID)}
	start := time.Now()
	total := 0
	for _, l := range r.lanes {
		total += len(l.cases)
	}
	st.log.Info("Starting screen reader run", "screenReaders", joinKinds(r.enabled), "cases", total,
		"parallel", r.config.ParallelExecution)
	r.progress.StartRun(runID, total)

	var logErr error
	if r.config.ParallelExecution {
		var g errgroup.Group
		for i := range r.lanes {
			l := &r.lanes[i]
			g.Go(func() error {
				return r.runLane(ctx, st, l)
			})
		}
		logErr = g.Wait()
	} else {
		for i := range r.lanes {
			if err := r.runLane(ctx, st, &r.lanes[i]); err != nil && logErr == nil {
				logErr = err
			}
		}
	}
	if logErr != nil {
		st.log.Error("Not every result reached the result logger", "err", logErr)
		span.RecordError(logErr)
	}

	halted := st.truncated()
	haltedBy := ""
	agg := reporting.NewAggregator().WithAdapterOrder(r.enabled...)
	if halted {
		haltedBy = st.haltedBy
		agg = agg.WithHalt(haltedBy)
		metrics.RecordHalt(haltMetricReason(haltedBy))
	} else if st.halted() {
		st.log.Info("Failing case was the last one scheduled, the run is complete", "failedCase", st.haltedBy)
	}
	report := agg.Aggregate(st.results)

	result := &RunResult{
		RunID:                 runID,
		Results:               st.results,
		Report:                report,
		Halted:                halted,
		HaltedBy:              haltedBy,
		Duration:              time.Since(start),
		LogErr:                logErr,
		EnabledScreenReaders:  r.EnabledScreenReaders(),
		ExcludedScreenReaders: r.ExcludedScreenReaders(),
	}
	r.progress.CompleteRun(runID)
	span.SetAttributes(
		attribute.Int("run.total", report.TotalTests),
		attribute.Int("run.failed", report.FailedTests),
		attribute.Bool("run.partial", report.Partial),
	)
	st.log.Info("Screen reader run finished", "total", report.TotalTests, "passed", report.PassedTests,
		"failed", report.FailedTests, "halted", result.Halted, "duration", result.Duration)
	return result, nil
}

// runLane runs one screen reader's cases in order until the lane ends or the
// run halts. It returns the first error of the result logger on this lane.
func (r *MasterTestRunner) runLane(ctx context.Context, st *runState, l *lane) error {
	kind := l.adapter.Kind()
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("screen reader %s", kind))
	defer span.End()

	laneLog := st.log.New("screenReader", kind)
	r.progress.StartLane(kind, len(l.cases))
	defer r.progress.CompleteLane(kind)

	ls := &laneState{}
	defer r.drain(laneLog, ls)

	var logErr error
	for i, sc := range l.cases {
		if ctx.Err() != nil {
			st.stop(HaltReasonInterrupted)
			st.skipped.Add(int64(len(l.cases) - i))
			return logErr
		}
		if st.halted() {
			laneLog.Debug("Run halted, not scheduling remaining cases", "next", sc.tc.Name)
			st.skipped.Add(int64(len(l.cases) - i))
			return logErr
		}

		r.progress.StartCase(kind, sc.tc.Name)
		result := r.executeCase(ctx, laneLog, l.adapter, ls, sc)
		st.record(result)
		r.progress.CompleteCase(kind, result.TestName, result.Passed)
		metrics.RecordCase(result)
		if r.resultLogger != nil {
			if err := r.resultLogger.LogTestResult(result, st.runID); err != nil {
				laneLog.Error("Error logging result", "test", result.TestName, "err", err)
				if logErr == nil {
					logErr = fmt.Errorf("logging %s result of %s: %w", kind, result.TestName, err)
				}
			}
		}

		remaining := int64(len(l.cases) - i - 1)
		if ctx.Err() != nil {
			st.stop(HaltReasonInterrupted)
			st.skipped.Add(remaining)
			return logErr
		}
		if !result.Passed && !r.config.ContinueOnFailure {
			st.stop(haltReason(kind, result.TestName))
			st.skipped.Add(remaining)
			return logErr
		}
	}
	return logErr
}

// executeCase runs a single case and labels its result with the schedule position
func (r *MasterTestRunner) executeCase(ctx context.Context, logger log.Logger, a screenreader.Adapter, ls *laneState, sc scheduledCase) *types.TestResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("case %s", sc.tc.Name), trace.WithAttributes(
		attribute.String("case.suite", sc.suite),
		attribute.String("case.target", sc.tc.Target),
	))
	defer span.End()

	result := r.invoke(ctx, logger, a, ls, sc.tc)
	result.Suite = sc.suite
	if result.TestName == "" {
		result.TestName = sc.tc.Name
	}
	if result.ScreenReader == "" {
		result.ScreenReader = a.Kind()
	}

	span.SetAttributes(attribute.Bool("case.passed", result.Passed), attribute.Int("case.violations", len(result.Violations)))
	logger.Debug("Case settled", "test", result.TestName, "passed", result.Passed, "timeTakenMs", result.TimeTakenMs)
	return result
}

// invoke calls the adapter under the case timeout. A call that outlives its
// timeout is abandoned and remembered on the lane: the lane's next call first
// waits for it, at most for the grace period, so the adapter is never used by
// two calls at once. If it does not return in time the lane is wedged and its
// remaining cases fail without reaching the adapter.
func (r *MasterTestRunner) invoke(ctx context.Context, logger log.Logger, a screenreader.Adapter, ls *laneState, tc types.TestCase) *types.TestResult {
	kind := a.Kind()
	if ls.wedged {
		return types.NewInfrastructureFailure(kind, tc, types.RuleInfrastructureError, errLaneWedged, 0)
	}
	if ls.pending != nil {
		select {
		case <-ls.pending:
			ls.pending = nil
		case <-time.After(r.gracePeriod):
			ls.wedged = true
			logger.Error("Screen reader still busy with a timed out case, skipping its remaining cases",
				"gracePeriod", r.gracePeriod)
			return types.NewInfrastructureFailure(kind, tc, types.RuleInfrastructureError, errLaneWedged, r.gracePeriod.Milliseconds())
		}
	}

	timeout := tc.Timeout
	if timeout <= 0 {
		timeout = r.config.CaseTimeout
	}
	caseCtx, cancel := context.WithTimeout(ctx, timeout)

	start := time.Now()
	done := make(chan *types.TestResult, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer cancel()
		defer func() {
			if p := recover(); p != nil {
				logger.Error("Adapter panicked", "test", tc.Name, "panic", p)
				done <- types.NewInfrastructureFailure(kind, tc, types.RuleInfrastructureError,
					fmt.Errorf("adapter panic: %v", p), time.Since(start).Milliseconds())
			}
		}()
		done <- a.RunCase(caseCtx, tc)
	}()

	settle := func(res *types.TestResult) *types.TestResult {
		if res == nil {
			logger.Error("Adapter returned no result", "test", tc.Name)
			return types.NewInfrastructureFailure(kind, tc, types.RuleInfrastructureError, errNilResult, time.Since(start).Milliseconds())
		}
		return res
	}

	select {
	case res := <-done:
		return settle(res)
	case <-caseCtx.Done():
	}

	// results are sent before the call's context is cancelled
	select {
	case res := <-done:
		return settle(res)
	default:
	}

	if ctx.Err() != nil {
		// interrupted: give the in-flight call a chance to finish cleanly
		select {
		case res := <-done:
			return settle(res)
		case <-time.After(r.gracePeriod):
		}
		ls.pending = finished
		return types.NewInfrastructureFailure(kind, tc, types.RuleInfrastructureError, ctx.Err(), time.Since(start).Milliseconds())
	}

	ls.pending = finished
	logger.Warn("Case timed out", "test", tc.Name, "timeout", timeout)
	return types.NewInfrastructureFailure(kind, tc, types.RuleTimeout,
		fmt.Errorf("no result after %s", timeout), time.Since(start).Milliseconds())
}

// drain waits for a call abandoned by the lane's last case
func (r *MasterTestRunner) drain(logger log.Logger, ls *laneState) {
	if ls.pending == nil || ls.wedged {
		return
	}
	select {
	case <-ls.pending:
	case <-time.After(r.gracePeriod):
		logger.Warn("Screen reader call still running after its lane finished", "gracePeriod", r.gracePeriod)
	}
}

func haltReason(kind types.ScreenReaderKind, testName string) string {
	return kind.String() + "/" + testName
}

func haltMetricReason(haltedBy string) string {
	if haltedBy == HaltReasonInterrupted {
		return HaltReasonInterrupted
	}
	return "failure"
}

func joinKinds(kinds []types.ScreenReaderKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
