package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromErrorPassesThroughAppErrors(t *testing.T) {
	appErr := New("connections.self_request", "cannot connect to yourself", http.StatusBadRequest)

	got := FromError(appErr)
	require.Same(t, appErr, got)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	cause := errors.New("disk full")

	got := FromError(cause)
	require.Equal(t, ErrInternalServer.Code, got.Code)
	require.Equal(t, http.StatusInternalServerError, got.StatusCode)
	require.ErrorIs(t, got, cause)
}

func TestWithInternalKeepsOriginal(t *testing.T) {
	cause := errors.New("row locked")

	wrapped := ErrConflict.WithInternal(cause)
	require.Equal(t, ErrConflict.Code, wrapped.Code)
	require.ErrorIs(t, wrapped, cause)
	require.Contains(t, wrapped.Error(), "row locked")

	// The sentinel itself must stay untouched.
	require.Nil(t, ErrConflict.Internal)
}

func TestWrapProducesInternalError(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), "store write failed")
	require.Equal(t, "INTERNAL_ERROR", wrapped.Code)
	require.Equal(t, http.StatusInternalServerError, wrapped.StatusCode)
	require.Contains(t, wrapped.Error(), "store write failed")
}
