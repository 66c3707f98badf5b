package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingToken is returned when no service token is configured. The token
// is never acquired automatically; an operator has to provision it.
var ErrMissingToken = errors.New("ZITADEL_SERVICE_TOKEN not set. Create a service user in Zitadel Console:\n" +
	"1. Go to Users -> Service Users\n" +
	"2. Create new service user with Organization Owner Manager role\n" +
	"3. Generate Personal Access Token (PAT)\n" +
	"4. Set ZITADEL_SERVICE_TOKEN=<token>")

// APIError is a non-2xx response from the management API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0 if err is not an
// *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsConflict reports whether err is a 409 "already exists" response.
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}
