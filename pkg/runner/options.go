package runner

import "log/slog"

// DefaultMaxSteps bounds a run so that cyclic graphs always end.
const DefaultMaxSteps = 1000

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithMaxSteps limits the number of steps of one run. Zero means no limit.
func WithMaxSteps(n int) Option {
	return func(r *Runner) {
		r.maxSteps = n
	}
}

// WithObserver configures where logs and status changes are reported.
// Use MultiObserver to report to several destinations.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}
