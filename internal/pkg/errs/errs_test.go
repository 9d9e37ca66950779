package errs

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_KnownCode(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrInvalidSender)

	req.Equal(ErrInvalidSender, err.Code)
	req.Equal(http.StatusBadRequest, err.Status)
	req.Equal("Sender is required.", err.Message)
}

func TestNewError_UnknownCodeFallsBack(t *testing.T) {
	err := NewError(42)

	require.Equal(t, ErrUnknown, err.Code)
	require.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestNewError_FormatsDetails(t *testing.T) {
	err := NewError(ErrUnsupportedFrameType, "PING")

	require.Equal(t, "Unsupported message type: PING.", err.Message)
	// no explicit status in the template
	require.Equal(t, http.StatusOK, err.Status)
}

func TestCustomError_Error(t *testing.T) {
	err := NewError(ErrShuttingDown)

	require.Equal(t, "Error Code 5001 (HTTP 503): Server is shutting down.", err.Error())
}
