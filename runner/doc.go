// Package runner orchestrates screen reader test runs.
//
// The main components are:
//   - MasterTestRunner: resolves the (screen reader × suite × case) schedule at
//     construction and executes it sequentially or with one lane per screen reader
//   - lane: one screen reader's ordered slice of the schedule, with per-case
//     timeouts and exclusive use of its adapter
//   - ProgressIndicator: reports run, lane and case progress
//
// Problems discovered while running are captured as failed TestResults. Only
// a ConfigurationError, raised by NewMasterTestRunner, prevents a run.
package runner
