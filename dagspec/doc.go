// Package dagspec declares the compiled, immutable graph model the runtime
// executes: DagSpec, its module and data node specs, and the directed edges
// between them. DagSpec is produced by a compiler external to this module;
// this package only defines its shape,
// structural invariants, and the structural/syntactic hashes used for
// resume compatibility checks.
package dagspec
