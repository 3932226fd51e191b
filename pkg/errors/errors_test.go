package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidModel, "model %q has no top node", "gauss")

	if err.Code != ErrCodeInvalidModel {
		t.Errorf("Code = %s, want INVALID_MODEL", err.Code)
	}
	want := `INVALID_MODEL: model "gauss" has no top node`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeStorage, cause, "failed to load model")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match cause with errors.Is")
	}
	want := "STORAGE_ERROR: failed to load model: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIs(t *testing.T) {
	err := New(ErrCodeModelNotFound, "no such model")

	if !Is(err, ErrCodeModelNotFound) {
		t.Error("Is should match the error's own code")
	}
	if Is(err, ErrCodeInternal) {
		t.Error("Is should not match a different code")
	}
	if Is(stderrors.New("plain"), ErrCodeInternal) {
		t.Error("Is should not match plain errors")
	}

	// Matching through wrapping layers
	wrapped := fmt.Errorf("context: %w", err)
	if !Is(wrapped, ErrCodeModelNotFound) {
		t.Error("Is should unwrap to find the code")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeTimeout, "slow")); got != ErrCodeTimeout {
		t.Errorf("GetCode = %s, want TIMEOUT", got)
	}
	if got := GetCode(stderrors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %s, want empty", got)
	}
}

func TestUserMessage(t *testing.T) {
	err := New(ErrCodeInvalidNormSet, "duplicate observable")
	if got := UserMessage(err); got != "duplicate observable" {
		t.Errorf("UserMessage = %q", got)
	}
	plain := stderrors.New("plain failure")
	if got := UserMessage(plain); got != "plain failure" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
