package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/autoflow/internal/presentation/tui"
	loamadapter "github.com/aretw0/autoflow/pkg/adapters/loam"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/observability"
	"github.com/aretw0/autoflow/pkg/runner"
	"github.com/aretw0/autoflow/pkg/session"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Path  string
	ID    string
	JSON  bool
	Debug bool
	Quiet bool
	Watch bool

	Settings Settings
	Stdout   io.Writer
}

// Run simulates the workflow at opts.Path once and returns the final state.
func Run(ctx context.Context, opts RunOptions) (domain.RunState, error) {
	logger := createLogger(opts.Debug)
	out := stdout(opts)

	wf, err := LoadWorkflow(ctx, opts.Path, opts.ID)
	if err != nil {
		return domain.RunState{}, err
	}
	warnInvalid(out, opts, logger, wf)

	sess := session.New(wf.ID, wf)
	state, err := simulate(ctx, sess, opts, logger)
	if err != nil {
		return state, err
	}
	printSummary(out, opts, wf, state)
	return state, nil
}

// RunWatch simulates a workflow from a directory and runs it again whenever its
// document changes. Edits that arrive during a run are applied to the live
// graph, so the remaining steps already see them.
func RunWatch(ctx context.Context, opts RunOptions) error {
	logger := createLogger(opts.Debug)
	out := stdout(opts)

	info, err := os.Stat(opts.Path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("--watch needs a directory of workflow documents")
	}
	src, err := loamadapter.Open(opts.Path)
	if err != nil {
		return err
	}

	wf, err := LoadWorkflow(ctx, opts.Path, opts.ID)
	if err != nil {
		return err
	}
	id := opts.ID
	if id == "" {
		id = wf.ID
	}

	signals := runner.NewSignalManager(ctx)
	defer signals.Stop()

	changes, err := src.Watch(signals.Context())
	if err != nil {
		return err
	}

	sess := session.New(id, wf)
	rerun := make(chan struct{}, 1)
	go func() {
		for changed := range changes {
			if changed != id {
				continue
			}
			next, err := src.Load(signals.Context(), id)
			if err != nil {
				logger.Warn("Reload failed", "workflow_id", id, "err", err)
				continue
			}
			sess.Document().Replace(next)
			printSystemMessage(out, "Reloaded '%s'.", id)
			select {
			case rerun <- struct{}{}:
			default:
			}
		}
	}()

	printSystemMessage(out, "Watching '%s' in %s.", id, opts.Path)
	for {
		warnInvalid(out, opts, logger, sess.Document().Snapshot())
		state, err := simulate(ctx, sess, opts, logger)
		if err != nil {
			return err
		}
		printSummary(out, opts, sess.Document().Snapshot(), state)

		select {
		case <-signals.Context().Done():
			return nil
		case <-rerun:
		}
	}
}

func simulate(ctx context.Context, sess *session.Session, opts RunOptions, logger *slog.Logger) (domain.RunState, error) {
	out := stdout(opts)

	var obs runner.Observer = runner.NopObserver{}
	switch {
	case opts.JSON:
		obs = runner.NewJSONObserver(out)
	case !opts.Quiet:
		obs = runner.NewTextObserver(out)
	}

	r := runner.New(
		NewStepper(opts.Settings, logger, observability.LoggingHooks(logger)),
		runner.WithMaxSteps(opts.Settings.MaxSteps),
		runner.WithObserver(obs),
		runner.WithLogger(logger),
	)

	signals := runner.NewSignalManager(ctx)
	defer signals.Stop()
	signals.StopOnSignal(sess)

	return r.Run(ctx, sess)
}

func warnInvalid(out io.Writer, opts RunOptions, logger *slog.Logger, wf domain.Workflow) {
	if err := wf.Validate(); err != nil {
		logger.Warn("Workflow has integrity problems", "workflow_id", wf.ID, "err", err)
		if !opts.JSON && !opts.Quiet {
			printSystemMessage(out, "Warning: %v", err)
		}
	}
}

func printSummary(out io.Writer, opts RunOptions, wf domain.Workflow, state domain.RunState) {
	if opts.JSON || opts.Quiet {
		return
	}
	f, ok := out.(*os.File)
	if !ok || !tui.IsTerminal(f) {
		return
	}
	rendered, err := tui.NewRenderer()(tui.Summary(wf, state))
	if err != nil {
		return
	}
	fmt.Fprint(out, rendered)
}

func stdout(opts RunOptions) io.Writer {
	if opts.Stdout != nil {
		return opts.Stdout
	}
	return os.Stdout
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
