// Package cvalue implements CValue, the tagged sum of runtime values that
// flow through a DagSpec, its JSON codec, and the lazy wrappers that defer
// full materialization of large containers.
//
// The codec is total: every CValue encodes to JSON and round-trips through
// its declared ctype.CType. Decoding failures are reported as a structured
// *errors.AppError with code CODEC_ERROR rather than a panic, matching the rest of the codec contract.
package cvalue
