package api_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-io/api"
)

func TestErrorMatchesSentinelAndCause(t *testing.T) {
	err := api.NewError(api.ErrCodeIO, "write", 7, syscall.EPIPE)

	require.ErrorIs(t, err, api.ErrIOFault)
	require.ErrorIs(t, err, syscall.EPIPE)
	assert.NotErrorIs(t, err, api.ErrBusy)
	assert.Contains(t, err.Error(), "fd=7")

	wrapped := fmt.Errorf("transport tx: %w", err)
	assert.Equal(t, api.ErrCodeIO, api.CodeOf(wrapped))
}

func TestErrorWithContext(t *testing.T) {
	err := api.NewError(api.ErrCodeResourceExhausted, "write", -1, nil).WithContext("eagain", 20)
	assert.Equal(t, 20, err.Context["eagain"])
	assert.NotContains(t, err.Error(), "fd=")
	assert.Contains(t, err.Error(), "eagain")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, api.ErrCodeOK, api.CodeOf(nil))
	assert.Equal(t, api.ErrCodeInvalidArgument, api.CodeOf(api.Invalid("nil monitor")))
	assert.Equal(t, api.ErrCodeBusy, api.CodeOf(fmt.Errorf("start: %w", api.ErrBusy)))
	assert.Equal(t, api.ErrCodeIO, api.CodeOf(errors.New("anything else")))
}
