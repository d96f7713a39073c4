package runner

import "time"

// Result holds the outcome of a finished child process.
type Result struct {
	ExitCode int           // process exit code; -1 when killed
	TimedOut bool          // true if the process was killed after the timeout
	Duration time.Duration // wall time from start to exit
}
