package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/autoflow/internal/presentation/graph"
	"github.com/aretw0/autoflow/internal/validator"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/generation"
	"github.com/aretw0/autoflow/pkg/session"
)

// GraphOptions configure the Mermaid export.
type GraphOptions struct {
	Path string
	ID   string
	// Overlay simulates the workflow without delay first and highlights the
	// visited nodes.
	Overlay  bool
	Settings Settings
}

// Graph renders the workflow as a Mermaid flowchart.
func Graph(ctx context.Context, opts GraphOptions) (string, error) {
	wf, err := LoadWorkflow(ctx, opts.Path, opts.ID)
	if err != nil {
		return "", err
	}
	if !opts.Overlay {
		return graph.GenerateMermaid(wf, nil), nil
	}

	settings := opts.Settings
	settings.StepDelay = 0
	state, err := simulate(ctx, session.New(wf.ID, wf), RunOptions{Quiet: true, Settings: settings, Stdout: io.Discard}, createLogger(false))
	if err != nil {
		return "", err
	}
	return graph.GenerateMermaid(wf, graph.OverlayFor(state)), nil
}

// Validate loads the workflow and checks it. The error is a
// *domain.ValidationError when the report holds integrity problems.
func Validate(ctx context.Context, path, id string) (validator.Report, error) {
	wf, err := LoadWorkflow(ctx, path, id)
	if err != nil {
		return validator.Report{}, err
	}
	report := validator.Check(wf)
	return report, report.Err(wf.ID)
}

// GenerateOptions configure extraction of a workflow from an assistant reply.
type GenerateOptions struct {
	// Response is a file holding the assistant's reply. "-" reads stdin.
	Response string
	// Out is where the workflow is written. Empty writes JSON to Stdout.
	Out    string
	Stdout io.Writer
	Stdin  io.Reader
}

// Generate extracts the workflow embedded in a saved assistant reply.
func Generate(opts GenerateOptions) (domain.Workflow, error) {
	var (
		raw []byte
		err error
	)
	if opts.Response == "-" {
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(opts.Response)
	}
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to read response: %w", err)
	}

	wf, err := generation.ExtractWorkflow(string(raw))
	if err != nil {
		return domain.Workflow{}, err
	}

	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if opts.Out == "" {
		data, err := document.Encode(wf, document.JSON)
		if err != nil {
			return wf, err
		}
		_, err = out.Write(data)
		return wf, err
	}

	if err := document.Save(opts.Out, wf); err != nil {
		return wf, err
	}
	fmt.Fprintln(out, generation.StripWorkflow(string(raw)))
	return wf, nil
}
