// Package transform implements the inline-transform evaluator: pure
// functions from a map of named RawValue inputs to a single RawValue
// output, keyed by a transform tag the same way ctype.CType and cvalue.CValue
// are keyed by theirs.
//
// Transforms are evaluated eagerly by the dag package as soon as every
// entry in their TransformInputs is resolved. fn/predicate parameters on
// Map/Filter/All/Any/Match are host-language callables; a Transform
// deserialized without its closures is only legal to construct for
// present-but-non-executable inspection, never for Eval.
package transform
