/*
Package domain contains the core models of the AutoFlow workflow simulator.

It defines the workflow graph (nodes, typed configuration, routing references),
the execution context shared across steps, and the simulation log produced while
stepping through a graph. The package is pure: no I/O, no persistence, no clocks.

# Key Entities

  - Node: a typed automation step with a default successor and a position on the canvas.
  - Config: the per-type configuration variant of a node (condition, for-each, agent, ...).
  - Workflow: an identified collection of nodes with a designated start node.
  - LogEntry: one immutable record of an executed step.
  - RunState: the live snapshot of a simulation (status, current node, context, logs).
*/
package domain
