/*
Package observability exports simulation activity as Prometheus metrics and
structured logs.

Metrics plugs into the Stepper through domain.LifecycleHooks and into the Runner
as an Observer. Hooks from several sources are combined with ChainHooks.
*/
package observability
