package runner

import (
	"time"

	"github.com/kbasefaqs/sr-acceptor/reporting"
)

const (
	// DefaultGracePeriod bounds how long a lane waits for an abandoned,
	// timed out adapter call before it gives up on the adapter
	DefaultGracePeriod = 5 * time.Second

	// HaltReasonInterrupted is the HaltedBy value of a run whose context was cancelled
	HaltReasonInterrupted = reporting.HaltReasonInterrupted

	tracerName = "sr-acceptor runner"
)
