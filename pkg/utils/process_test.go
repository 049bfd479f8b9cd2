package utils

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitProcess_Idempotent(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	first := &bytes.Buffer{}
	second := &bytes.Buffer{}

	InitProcess(LevelInfo, first)
	installed := GetGlobalLogger()

	assert.False(t, InitProcess(LevelDebug, second))
	assert.Same(t, installed, GetGlobalLogger())

	GetGlobalLogger().Info("hello")
	assert.Empty(t, second.String())
}

func TestRecoverError(t *testing.T) {
	assert.NoError(t, RecoverError(nil))

	err := RecoverError("index out of range")
	assert.EqualError(t, err, "panic: index out of range")

	cause := errors.New("boom")
	err = RecoverError(cause)
	assert.ErrorIs(t, err, cause)
}
