// Package exitcodes defines the standard exit codes used by sr-acceptor.
package exitcodes

// Exit code constants used by sr-acceptor:
//
// * Success (0): every case passed and the quality gate held
// * TestFailure (1): a case failed, the run halted, or the success rate was below the gate
// * RuntimeErr (2): configuration errors, panics and other failures to run
const (
	Success     = 0 // All cases pass
	TestFailure = 1 // Case failures
	RuntimeErr  = 2 // Runtime or configuration errors
)
