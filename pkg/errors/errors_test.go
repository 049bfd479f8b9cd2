package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeStructural, "not a wasm module"),
			expected: "[STRUCTURAL_ERROR] not a wasm module",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeParseError, "tape parse failed", errors.New("unbalanced braces")),
			expected: "[PARSE_ERROR] tape parse failed: unbalanced braces",
		},
		{
			name:     "formatted",
			err:      Newf(CodeGraphConsistency, "edge references unknown item %d", 7),
			expected: "[GRAPH_CONSISTENCY_ERROR] edge references unknown item 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeSerialization, "encode failed", underlying)

	assert.Equal(t, underlying, err.Unwrap())
	assert.True(t, errors.Is(err, underlying))
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeStructural, "error 1")
	err2 := New(CodeStructural, "error 2")
	err3 := New(CodeParseError, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"structural", New(CodeStructural, "bad magic"), IsStructuralError, true},
		{"structural wrapped by fmt", fmt.Errorf("decode: %w", ErrStructural), IsStructuralError, true},
		{"structural vs parse", ErrParseError, IsStructuralError, false},
		{"graph consistency", Newf(CodeGraphConsistency, "root %d", 3), IsGraphConsistencyError, true},
		{"serialization", Wrap(CodeSerialization, "name", errors.New("invalid utf-8")), IsSerializationError, true},
		{"parse", ErrParseError, IsParseError, true},
		{"invalid input", New(CodeInvalidInput, "max_items"), IsInvalidInput, true},
		{"not found", ErrNotFound, IsNotFound, true},
		{"config", Newf(CodeConfigError, "unsupported storage type: %s", "s3"), IsConfigError, true},
		{"storage", Wrap(CodeStorageError, "put reports/a.json", errors.New("denied")), IsStorageError, true},
		{"database", ErrDatabaseError, IsDatabaseError, true},
		{"database vs storage", ErrDatabaseError, IsStorageError, false},
		{"nil", nil, IsStructuralError, false},
		{"plain error", errors.New("boom"), IsParseError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeStructural, "bad section"),
			expected: CodeStructural,
		},
		{
			name:     "wrapped app error",
			err:      fmt.Errorf("outer: %w", Wrap(CodeStorageError, "upload", errors.New("inner"))),
			expected: CodeStorageError,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeParseError, "unterminated quote"),
			expected: "unterminated quote",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("run r-1: %w", Wrap(CodeDatabaseError, "insert run", errors.New("locked")))

	var appErr *AppError
	if assert.True(t, As(err, &appErr)) {
		assert.Equal(t, CodeDatabaseError, appErr.Code)
		assert.Equal(t, "insert run", appErr.Message)
	}
	assert.False(t, As(errors.New("plain"), &appErr))
}
