/*
Package runner drives a simulation to completion, one step at a time.

The Runner is an explicit poll loop over the Execution Stepper. Between steps it
re-reads the live workflow document and checks the session's stop flag, the
context and the step limit. Every committed log entry and every status change is
reported to an Observer, so the same loop feeds the console, NDJSON output and
the server-sent event stream.

# Usage

	r := runner.New(stepper,
		runner.WithMaxSteps(100),
		runner.WithObserver(runner.NewTextObserver(os.Stdout)),
	)

	state, err := r.Run(ctx, sess)
*/
package runner
