package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, FromError(nil))
	})

	t.Run("wrapped app errors are unwrapped", func(t *testing.T) {
		orig := ErrNotFoundWithID("shipment", "SHP-1")
		got := FromError(fmt.Errorf("loading: %w", orig))
		assert.Same(t, orig, got)
		assert.Equal(t, "SHP-1", got.Details["id"])
	})

	t.Run("plain errors become internal", func(t *testing.T) {
		cause := errors.New("socket closed")
		got := FromError(cause)
		assert.Equal(t, CodeInternalError, got.Code)
		assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
		assert.ErrorIs(t, got, cause)
	})
}

func TestAppError_Statuses(t *testing.T) {
	tests := []struct {
		err       *AppError
		status    int
		retryable bool
	}{
		{ErrValidation("bad"), http.StatusBadRequest, false},
		{ErrPreconditionFailed("no address"), http.StatusUnprocessableEntity, false},
		{ErrNoOptionAvailable("no transport"), http.StatusUnprocessableEntity, false},
		{ErrRemoteRejected("rejected"), http.StatusBadGateway, false},
		{ErrPollTimeout("op-1"), http.StatusGatewayTimeout, true},
		{ErrConcurrentModification("shipment"), http.StatusConflict, true},
		{ErrServiceUnavailable("temporal"), http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.retryable, tt.err.Retryable())
		})
	}
}

func TestAppError_ErrorText(t *testing.T) {
	err := ErrRemoteRejected("plan rejected").
		WithRemote(RemoteProblem{Code: "FBA_INB_0182", Message: "prepOwner invalid"}).
		Wrap(errors.New("operation FAILED"))

	require.Len(t, err.Remote, 1)
	assert.Contains(t, err.Error(), "REMOTE_REJECTED")
	assert.Contains(t, err.Error(), "operation FAILED")
}
