// Package ctype declares the type model for the dataflow engine: a tagged
// sum describing the shape of every value that can flow through a DAG.
//
// CType mirrors the variety of an algebraic sum type in a language without
// native sum types: one concrete struct per tag, a Tag() discriminator, and
// an Equal method implementing structural equality. Callers are expected to
// switch on Tag() rather than use type assertions directly, matching the
// pattern used throughout gokit for tagged data (see the StatusTag strings
// in dag/module.go, generalized here into a real sum).
package ctype
