package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/GwangCheonLee/authcore/pkg/errors"
)

// ProviderErrorResponse mirrors the OAuth 2.0 error body returned by identity
// providers (RFC 6749 section 5.2). It is used to parse structured error
// bodies from userinfo and token endpoints.
type ProviderErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// ParseResponseError reads the body of a non-2xx HTTP response from an
// identity provider and translates it into an appropriate AppError. If the
// body matches the OAuth 2.0 error format, the error code and description are
// preserved in the message. Otherwise a generic error is returned with the
// status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, providerName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", providerName, resp.StatusCode, err)
	}

	// Try to parse structured error response.
	var provider ProviderErrorResponse
	if json.Unmarshal(bodyBytes, &provider) == nil && provider.Error != "" {
		return mapProviderError(resp.StatusCode, provider.Error, provider.Description, providerName)
	}

	// Fallback: unstructured error body.
	return mapProviderError(resp.StatusCode, "", string(bodyBytes), providerName)
}

// mapProviderError translates a provider's HTTP status code and OAuth error
// code into an AppError that preserves the error semantics. Token problems
// become the generic Unauthorized so nothing provider-specific leaks to the
// caller's response.
func mapProviderError(status int, code, description, providerName string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Unauthorized()
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", providerName, code))
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", providerName, status, code, description)
	default:
		return fmt.Errorf("%s returned status %d (%s): %s", providerName, status, code, description)
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors are not retried: the request itself was invalid, so repeating
// it cannot succeed.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
