package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

func makeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_Unauthorized(t *testing.T) {
	resp := makeResponse(http.StatusUnauthorized, `{"error":"invalid_token","error_description":"token expired"}`)

	err := ParseResponseError(resp, "google")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestParseResponseError_Forbidden_MapsToUnauthorized(t *testing.T) {
	resp := makeResponse(http.StatusForbidden, `{"error":"insufficient_scope"}`)

	err := ParseResponseError(resp, "google")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestParseResponseError_BadRequest(t *testing.T) {
	resp := makeResponse(http.StatusBadRequest, `{"error":"invalid_request","error_description":"missing parameter"}`)

	err := ParseResponseError(resp, "google")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "google")
	assert.Contains(t, err.Error(), "invalid_request")
}

func TestParseResponseError_ServerError(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, `{"error":"temporarily_unavailable","error_description":"try again"}`)

	err := ParseResponseError(resp, "github")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github server error")
	assert.Contains(t, err.Error(), "temporarily_unavailable")
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := makeResponse(http.StatusBadGateway, "bad gateway")

	err := ParseResponseError(resp, "github")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestParseResponseError_UnstructuredUnauthorized(t *testing.T) {
	// Providers sometimes return plain text on auth failures; the status code
	// alone is enough to map to Unauthorized.
	resp := makeResponse(http.StatusUnauthorized, "nope")

	err := ParseResponseError(resp, "github")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(http.StatusBadRequest))
	assert.True(t, IsClientError(http.StatusNotFound))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(http.StatusOK))
	assert.False(t, IsClientError(http.StatusInternalServerError))
	assert.False(t, IsClientError(http.StatusPermanentRedirect))
}
