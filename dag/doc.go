// Package dag implements the scheduler: batching a DagSpec into levels,
// firing modules concurrently within a level under the wrappers in
// dag/wrapper.go, and assembling the resulting Runtime.State into
// ExecutionMetadata. It also exposes the stepped Session executor (dag
// driven one batch at a time) and RunFromState, which the suspension
// package's resume drives from a State rebuilt out of a
// suspension.SuspendedExecution.
package dag
