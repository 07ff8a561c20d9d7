package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"bare", New(ErrCodeAssetMissing, "no diagram for %s", "run.json"), "ASSET_MISSING: no diagram for run.json"},
		{"wrapped", Wrap(ErrCodeLoadFailed, errors.New("connection refused"), "load %s", "run-1.json"),
			"LOAD_FAILED: load run-1.json: connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrCodePersistenceFailed, cause, "save overlay")

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the cause")
	}
	if errors.Unwrap(err) != cause {
		t.Error("Unwrap does not return the cause")
	}
}

func TestCodeLookup(t *testing.T) {
	inner := New(ErrCodeNotFound, "run.json")
	tests := []struct {
		name string
		err  error
		code Code
	}{
		{"coded", New(ErrCodeLoadFailed, "x"), ErrCodeLoadFailed},
		{"outer code wins", Wrap(ErrCodeLoadFailed, inner, "load"), ErrCodeLoadFailed},
		{"behind fmt wrap", fmt.Errorf("flush: %w", Wrap(ErrCodePersistenceFailed, nil, "save")), ErrCodePersistenceFailed},
		{"plain", errors.New("plain"), ""},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.code {
				t.Errorf("GetCode() = %q, want %q", got, tt.code)
			}
			if tt.code != "" && !Is(tt.err, tt.code) {
				t.Errorf("Is(%q) = false", tt.code)
			}
			if Is(tt.err, ErrCodeUnsupported) {
				t.Error("Is matched an unrelated code")
			}
		})
	}
	if Is(nil, "") {
		t.Error("Is(nil, \"\") = true")
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(Wrap(ErrCodeNetwork, errors.New("timeout"), "server unreachable")); got != "server unreachable" {
		t.Errorf("coded: %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("plain: %q", got)
	}
}
