// Package utils provides common utility functions.
package utils

import (
	"net/http"
	"net/url"
	"strings"
)

// UserAgent is sent with every API request.
const UserAgent = "outlierx/1.0"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct{}

// NewHTTPHelper creates a new HTTP helper.
func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{}
}

// IsValidURL reports whether raw is an absolute http or https URL with a host.
func (h *HTTPHelper) IsValidURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// BuildHeaders creates HTTP headers with defaults. Custom headers override
// the defaults.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	headers.Set("User-Agent", UserAgent)
	headers.Set("Accept", "application/json")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
