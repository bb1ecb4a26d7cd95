package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified error type surfaced by every package in this
// module. Code is stable and machine-comparable; Message is human-readable;
// Details carries the per-variant context named in each constructor below.
type AppError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Details   map[string]any
	Cause     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports equality by Code, so errors.Is(err, errors.New(SomeCode, ""))
// matches any AppError sharing that code regardless of message or details.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !stderrors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// WithCause sets the underlying cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key/value and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Retryable: IsRetryableCode(code)}
}

// IsAppError reports whether err is, or wraps, an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError extracts the *AppError from err, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// --- Validation ---

// UnknownInputName reports that a supplied input name does not match any
// top-level user-input data node.
func UnknownInputName(name string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownInputName,
		Message: fmt.Sprintf("unknown input name %q", name),
		Details: map[string]any{"name": name},
	}
}

// InputTypeMismatchError reports that a supplied CValue's type disagrees
// with the data node's declared CType.
func InputTypeMismatchError(name, expected, actual string) *AppError {
	return &AppError{
		Code:    ErrCodeInputTypeMismatch,
		Message: fmt.Sprintf("input %q: expected %s, got %s", name, expected, actual),
		Details: map[string]any{"name": name, "expected": expected, "actual": actual},
	}
}

// InputAlreadyProvidedError reports a resume supplying an input name already
// present in SuspendedExecution.providedInputs.
func InputAlreadyProvidedError(name string) *AppError {
	return &AppError{
		Code:    ErrCodeInputAlreadyProvided,
		Message: fmt.Sprintf("input %q was already provided", name),
		Details: map[string]any{"name": name},
	}
}

// UnknownNodeError reports a resume referencing a data node id not present
// in the DagSpec.
func UnknownNodeError(name string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownNode,
		Message: fmt.Sprintf("unknown data node %q", name),
		Details: map[string]any{"name": name},
	}
}

// NodeTypeMismatchError reports a manually-resolved node value whose type
// disagrees with the node's declared CType.
func NodeTypeMismatchError(name, expected, actual string) *AppError {
	return &AppError{
		Code:    ErrCodeNodeTypeMismatch,
		Message: fmt.Sprintf("node %q: expected %s, got %s", name, expected, actual),
		Details: map[string]any{"name": name, "expected": expected, "actual": actual},
	}
}

// NodeAlreadyResolvedError reports a resume supplying a resolvedNodes entry
// whose value is already present in SuspendedExecution.computedValues.
func NodeAlreadyResolvedError(name string) *AppError {
	return &AppError{
		Code:    ErrCodeNodeAlreadyResolved,
		Message: fmt.Sprintf("node %q is already resolved", name),
		Details: map[string]any{"name": name},
	}
}

// --- Pipeline ---

// PipelineNotFoundError reports that a program reference does not resolve
// to any known pipeline.
func PipelineNotFoundError(ref string) *AppError {
	return &AppError{
		Code:    ErrCodePipelineNotFound,
		Message: fmt.Sprintf("pipeline %q not found", ref),
		Details: map[string]any{"ref": ref},
	}
}

// PipelineChangedError reports that a caller-supplied DagSpec's structural
// hash disagrees with the one recorded in a SuspendedExecution.
func PipelineChangedError(expectedHash, actualHash string) *AppError {
	return &AppError{
		Code:    ErrCodePipelineChanged,
		Message: fmt.Sprintf("pipeline structural hash changed: expected %s, got %s", expectedHash, actualHash),
		Details: map[string]any{"expectedHash": expectedHash, "actualHash": actualHash},
	}
}

// --- Concurrency ---

// ResumeInProgressError reports a concurrent resume attempt against an
// executionId whose mutex is already held.
func ResumeInProgressError(executionID string) *AppError {
	return &AppError{
		Code:    ErrCodeResumeInProgress,
		Message: fmt.Sprintf("resume already in progress for execution %q", executionID),
		Details: map[string]any{"executionId": executionID},
	}
}

// --- Execution ---

// ModuleTimeoutException reports a module attempt exceeding its configured
// per-attempt timeout.
func ModuleTimeoutException(timeoutMs int64) *AppError {
	return &AppError{
		Code:      ErrCodeModuleTimeout,
		Message:   fmt.Sprintf("module timed out after %dms", timeoutMs),
		Retryable: true,
		Details:   map[string]any{"timeoutMs": timeoutMs},
	}
}

// AttemptError is one failed attempt recorded by RetryExhaustedException.
type AttemptError struct {
	Attempt int
	Err     error
}

// RetryExhaustedException reports that every retry attempt failed.
// DetailedMessage enumerates each attempt's error with its index, as
// required by the execution-wrapper contract.
func RetryExhaustedException(totalAttempts int, attempts []AttemptError) *AppError {
	var b strings.Builder
	fmt.Fprintf(&b, "retry exhausted after %d attempts", totalAttempts)
	for _, a := range attempts {
		fmt.Fprintf(&b, "; attempt %d: %v", a.Attempt, a.Err)
	}
	return &AppError{
		Code:    ErrCodeRetryExhausted,
		Message: b.String(),
		Details: map[string]any{"totalAttempts": totalAttempts, "attempts": attempts},
	}
}

// CycleDetected reports that the scheduler could not fully batch the graph;
// moduleIDs names the module ids still blocked when batching stalled.
func CycleDetected(moduleIDs []string) *AppError {
	return &AppError{
		Code:    ErrCodeCycleDetected,
		Message: fmt.Sprintf("cycle detected among modules: %s", strings.Join(moduleIDs, ", ")),
		Details: map[string]any{"moduleIds": moduleIDs},
	}
}

// RuntimeNotInitialized reports executeNextBatch called before
// initializeRuntime.
func RuntimeNotInitialized() *AppError {
	return &AppError{
		Code:    ErrCodeRuntimeNotInit,
		Message: "runtime not initialized",
	}
}

// TransformClosureMissing reports an attempt to evaluate a deserialized
// inline transform whose host-language closure was not round-tripped.
func TransformClosureMissing(dataID string) *AppError {
	return &AppError{
		Code:    ErrCodeTransformClosureMissing,
		Message: fmt.Sprintf("data node %q: inline transform closure missing (deserialized transform cannot be executed)", dataID),
		Details: map[string]any{"dataId": dataID},
	}
}

// --- Codec ---

// CodecError reports a decode or encode failure. Standardized to this
// structured form everywhere in the codec path, including malformed
// UUID/timestamp values — a deliberate deviation from literal source
// behavior, recorded as an Open Question decision.
func CodecError(message string, cause error) *AppError {
	e := &AppError{Code: ErrCodeCodec, Message: message}
	if cause != nil {
		e.Cause = cause
	}
	return e
}

// --- Config ---

// ConfigValidationError reports a struct-tag validation failure against
// EngineConfig or ModuleCallOptions. details is typically the per-field
// breakdown a validator.ValidationErrors walk produced.
func ConfigValidationError(message string, details map[string]any) *AppError {
	return &AppError{Code: ErrCodeConfigInvalid, Message: message, Details: details}
}
