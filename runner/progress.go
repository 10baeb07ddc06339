package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/kbasefaqs/sr-acceptor/types"
)

// ProgressIndicator interface for UI updates. Lanes report concurrently in
// parallel mode, so implementations must be safe for concurrent use.
type ProgressIndicator interface {
	StartRun(runID string, totalCases int)
	StartLane(kind types.ScreenReaderKind, totalCases int)
	StartCase(kind types.ScreenReaderKind, testName string)
	CompleteCase(kind types.ScreenReaderKind, testName string, passed bool)
	CompleteLane(kind types.ScreenReaderKind)
	CompleteRun(runID string)
	Stop()
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(runID string, totalCases int)                                  {}
func (n *noOpProgressIndicator) StartLane(kind types.ScreenReaderKind, totalCases int)                  {}
func (n *noOpProgressIndicator) StartCase(kind types.ScreenReaderKind, testName string)                 {}
func (n *noOpProgressIndicator) CompleteCase(kind types.ScreenReaderKind, testName string, passed bool) {}
func (n *noOpProgressIndicator) CompleteLane(kind types.ScreenReaderKind)                               {}
func (n *noOpProgressIndicator) CompleteRun(runID string)                                               {}
func (n *noOpProgressIndicator) Stop()                                                                  {}

// consoleProgressIndicator provides a log based progress indicator
type consoleProgressIndicator struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	stop   sync.Once
	mu     sync.RWMutex

	runID          string
	completedCases int
	failedCases    int
	totalCases     int
	runStartTime   time.Time
	laneStartTimes map[types.ScreenReaderKind]time.Time

	// Track currently running cases, one per lane at most
	runningCases map[string]time.Time // "<kind>/<case>" -> start time
}

// NewConsoleProgressIndicator creates a progress indicator that logs periodic updates
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration) ProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second // Default to 30 seconds
	}

	indicator := &consoleProgressIndicator{
		logger:         logger,
		ticker:         time.NewTicker(updateInterval),
		stopCh:         make(chan struct{}),
		laneStartTimes: make(map[types.ScreenReaderKind]time.Time),
		runningCases:   make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func caseKey(kind types.ScreenReaderKind, testName string) string {
	return kind.String() + "/" + testName
}

func (c *consoleProgressIndicator) StartRun(runID string, totalCases int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runID = runID
	c.totalCases = totalCases
	c.completedCases = 0
	c.failedCases = 0
	c.runStartTime = time.Now()
	c.laneStartTimes = make(map[types.ScreenReaderKind]time.Time)
	c.runningCases = make(map[string]time.Time)

	c.logger.Info("Starting run", "runID", runID, "totalCases", totalCases)
}

func (c *consoleProgressIndicator) StartLane(kind types.ScreenReaderKind, totalCases int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.laneStartTimes[kind] = time.Now()
	c.logger.Info("Starting screen reader", "screenReader", kind, "cases", totalCases)
}

// StartCase tracks when a case starts running
func (c *consoleProgressIndicator) StartCase(kind types.ScreenReaderKind, testName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningCases[caseKey(kind, testName)] = time.Now()
	c.logger.Debug("Case started", "screenReader", kind, "test", testName, "runningCases", len(c.runningCases))
}

func (c *consoleProgressIndicator) CompleteCase(kind types.ScreenReaderKind, testName string, passed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningCases, caseKey(kind, testName))
	c.completedCases++
	if !passed {
		c.failedCases++
	}

	c.logger.Debug("Case completed", "screenReader", kind, "test", testName, "passed", passed,
		"completed", c.completedCases, "total", c.totalCases)
}

func (c *consoleProgressIndicator) CompleteLane(kind types.ScreenReaderKind) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var duration time.Duration
	if start, ok := c.laneStartTimes[kind]; ok {
		duration = time.Since(start).Truncate(time.Millisecond)
	}
	c.logger.Info("Completed screen reader", "screenReader", kind, "duration", duration)
}

func (c *consoleProgressIndicator) CompleteRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.runStartTime).Truncate(time.Millisecond)
	c.logger.Info("Completed run", "runID", runID, "completed", c.completedCases, "failed", c.failedCases,
		"total", c.totalCases, "duration", duration)
	c.runningCases = make(map[string]time.Time)
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *consoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *consoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var percentComplete float64
	if c.totalCases > 0 {
		percentComplete = float64(c.completedCases) * 100.0 / float64(c.totalCases)
	}

	c.logger.Info("Progress update",
		"runID", c.runID,
		"completed", c.completedCases,
		"failed", c.failedCases,
		"total", c.totalCases,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(c.runningCases),
		"longestRunning", formatRunningCases(c.runningCases, 3),
	)
}

// Stop stops the progress indicator; it is safe to call more than once
func (c *consoleProgressIndicator) Stop() {
	c.stop.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunningCases formats running cases into a display string, longest running first
func formatRunningCases(running map[string]time.Time, maxShow int) string {
	if len(running) == 0 {
		return ""
	}

	type runningCase struct {
		name     string
		duration time.Duration
	}

	var cases []runningCase
	now := time.Now()
	for name, startTime := range running {
		cases = append(cases, runningCase{
			name:     name,
			duration: now.Sub(startTime),
		})
	}

	sort.Slice(cases, func(i, j int) bool {
		if cases[i].duration == cases[j].duration {
			return cases[i].name < cases[j].name
		}
		return cases[i].duration > cases[j].duration
	})

	var parts []string
	for i, rc := range cases {
		if i >= maxShow {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%v)", rc.name, rc.duration.Truncate(time.Second)))
	}

	if len(cases) > maxShow {
		parts = append(parts, fmt.Sprintf("+%d more", len(cases)-maxShow))
	}

	return strings.Join(parts, ", ")
}
