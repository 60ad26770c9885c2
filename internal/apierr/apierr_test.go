package apierr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_ExtractsKindFromWrappedError(t *testing.T) {
	base := NewSessionNotFound("sess-1")
	wrapped := fmtErrorf(base)

	assert.Equal(t, SessionNotFound, KindOf(wrapped))
}

func TestKindOf_DefaultsToInternalErrorForForeignErrors(t *testing.T) {
	assert.Equal(t, InternalError, KindOf(errors.New("not ours")))
}

func TestKindOf_NilErrorIsInternalError(t *testing.T) {
	assert.Equal(t, InternalError, KindOf(nil))
}

func TestError_IncludesCauseWhenPresent(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRuntimeUnavailable(cause)

	assert.Contains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Error(), string(RuntimeUnavailable))
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_OmitsCauseWhenNil(t *testing.T) {
	err := NewSessionExpired("sess-2")
	assert.NotContains(t, err.Error(), "<nil>")
}

func fmtErrorf(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }
