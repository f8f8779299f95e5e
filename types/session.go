// Package types defines core domain types shared across xcoffee packages.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"errors"
	"net/url"
)

// Session identifies one long-lived watch of a stream endpoint.
// A session spans every reconnect of the driver until the process stops.
type Session struct {
	// ID is a unique session identifier.
	ID string
	// Endpoint is the stream URL the session watches.
	Endpoint string
}

// Validate checks that the session has an ID and an absolute http(s) endpoint.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session id must be non-empty")
	}
	return ValidateEndpoint(s.Endpoint)
}

// ValidateEndpoint checks that endpoint is an absolute http or https URL.
func ValidateEndpoint(endpoint string) error {
	if endpoint == "" {
		return errors.New("endpoint must be non-empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.New("endpoint is not a valid URL: " + err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("endpoint scheme must be http or https, got " + u.Scheme)
	}
	if u.Host == "" {
		return errors.New("endpoint must include a host")
	}
	return nil
}
