package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindStorage, "configstore.put", "failed to persist key",
				errors.New("disk full")),
			contains: []string{"[storage:configstore.put]", "failed to persist key", "disk full"},
		},
		{
			name:     "error without cause",
			err:      New(KindProtocol, "command.decode", "missing action"),
			contains: []string{"[protocol:command.decode]", "missing action"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindNetwork, "provision", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_KeepsInnermostKind(t *testing.T) {
	inner := New(KindStorage, "sqlite.put", "write failed")
	outer := Wrap(KindDomain, "command.configure", "persist failed", fmt.Errorf("context: %w", inner))

	if !IsKind(outer, KindStorage) {
		t.Fatalf("Wrap() = %v, want kind %s", outer, KindStorage)
	}
	if Wrap(KindDomain, "noop", "nil", nil) != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct error kind match",
			err:      New(KindConfig, "test", "message"),
			kind:     KindConfig,
			expected: true,
		},
		{
			name:     "wrapped error kind match",
			err:      fmt.Errorf("outer: %w", Wrap(KindNetwork, "test", "message", errors.New("cause"))),
			kind:     KindNetwork,
			expected: true,
		},
		{
			name:     "error kind mismatch",
			err:      New(KindConfig, "test", "message"),
			kind:     KindDomain,
			expected: false,
		},
		{
			name:     "non-typed error",
			err:      errors.New("plain error"),
			kind:     KindConfig,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsKind(tt.err, tt.kind)
			if result != tt.expected {
				t.Errorf("IsKind() = %v, expected %v", result, tt.expected)
			}
		})
	}
}
