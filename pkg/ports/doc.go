/*
Package ports defines the boundaries between the AutoFlow core and its adapters.

Workflows are persisted through a WorkflowStore (memory, file, redis, sqlite) or
read from a WorkflowSource such as a directory of documents. Run state is never
persisted: a simulation lives only as long as its session.
*/
package ports
