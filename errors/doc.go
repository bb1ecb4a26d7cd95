// Package errors provides the engine's tagged-sum error model: a single
// AppError struct carrying a stable ErrorCode plus per-variant constructors
// for every error the scheduler, evaluator, and suspension store can raise.
//
// Every constructor returns a *AppError so callers can use errors.As to
// recover the code and details regardless of how many layers wrapped it,
// and Is to compare two AppErrors by code.
package errors
