/*
Package autoflow simulates visual automation workflows.

A workflow is a graph of typed nodes (triggers, conditions, AI agents,
messengers, loops) joined by routing references. AutoFlow edits that graph
and walks it step by step, producing a human-readable log of what each node
would have done. Nothing leaves the process: AI calls, messages and file
reads are simulated.

# Usage

Build a workflow with the dsl package, or load one from YAML or JSON with the
document package, then hand it to an Engine:

	wf := dsl.New("welcome").
		Add("start", domain.NodeTypeTrigger).Go("greet").
		Add("greet", domain.NodeTypeLog).Set("message", "Hello").
		MustBuild()

	eng := autoflow.New(autoflow.WithDelay(0))
	state, err := eng.Run(ctx, wf)
	if err != nil {
		log.Fatal(err)
	}
	for _, entry := range state.Logs {
		fmt.Println(entry.Message)
	}

# Packages

  - pkg/domain: workflow, node, config and run state types.
  - pkg/graph: pure graph mutations and the mutable Document.
  - pkg/handlers: simulated behaviour of each node type.
  - pkg/session and pkg/runner: run lifecycle, stepping and observers.
  - pkg/adapters: stores (memory, file, SQLite, Redis, Loam) and the HTTP and MCP servers.

The autoflow command wraps all of this in a CLI: run, graph, validate,
generate, serve and mcp.
*/
package autoflow
