/*
Package session holds the state of one user's simulation explicitly.

A Session couples the live workflow document being edited with the run state of
its simulation and the assistant chat that may replace it. The Manager keeps
sessions by ID, serializes access per session and persists workflow documents
through a ports.WorkflowStore, optionally coordinating replicas with a
ports.DistributedLocker.
*/
package session
