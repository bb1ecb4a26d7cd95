package errors

import (
	stderrors "errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	e := UnknownInputName("text")
	if got := e.Error(); got != `UNKNOWN_INPUT_NAME: unknown input name "text"` {
		t.Fatalf("unexpected message: %s", got)
	}

	wrapped := e.WithCause(stderrors.New("boom"))
	if wrapped.Unwrap() == nil {
		t.Fatal("expected Unwrap to return cause")
	}
}

func TestAppError_Is_MatchesByCode(t *testing.T) {
	a := InputTypeMismatchError("text", "String", "Int")
	b := InputTypeMismatchError("other", "Boolean", "Float")

	if !stderrors.Is(a, b) {
		t.Fatal("expected two AppErrors with the same code to match via Is")
	}

	c := UnknownNodeError("n1")
	if stderrors.Is(a, c) {
		t.Fatal("expected different codes to not match")
	}
}

func TestAsAppError(t *testing.T) {
	err := CodecError("bad tag", nil)
	appErr, ok := AsAppError(err)
	if !ok {
		t.Fatal("expected AsAppError to succeed")
	}
	if appErr.Code != ErrCodeCodec {
		t.Fatalf("expected codec code, got %s", appErr.Code)
	}

	if _, ok := AsAppError(stderrors.New("plain")); ok {
		t.Fatal("expected plain errors.New to not be an AppError")
	}
}

func TestRetryExhaustedException_DetailedMessage(t *testing.T) {
	err := RetryExhaustedException(3, []AttemptError{
		{Attempt: 1, Err: stderrors.New("first")},
		{Attempt: 2, Err: stderrors.New("second")},
		{Attempt: 3, Err: stderrors.New("third")},
	})

	msg := err.Message
	for _, want := range []string{"attempt 1: first", "attempt 2: second", "attempt 3: third"} {
		if !contains(msg, want) {
			t.Fatalf("expected message to contain %q, got %q", want, msg)
		}
	}
}

func TestCycleDetected_ListsModuleIDs(t *testing.T) {
	err := CycleDetected([]string{"M1", "M2"})
	if err.Code != ErrCodeCycleDetected {
		t.Fatalf("expected cycle code, got %s", err.Code)
	}
	ids, ok := err.Details["moduleIds"].([]string)
	if !ok || len(ids) != 2 {
		t.Fatalf("expected moduleIds detail with 2 entries, got %v", err.Details["moduleIds"])
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && stringsIndex(s, substr) >= 0
}

func stringsIndex(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
