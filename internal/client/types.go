// Package client provides the HTTP session the scenario uses to talk to the API
// under test.
package client

import (
	"net/http"
)

// Response is a fully read HTTP response.
type Response struct {
	Method     string
	Path       string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NameRequest is the body of house and room create/update calls.
type NameRequest struct {
	Name string `json:"name"`
}

// DeviceRequest is the body of device create calls.
type DeviceRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// DeviceUpdateRequest is the body of PUT /devices/{id}.
type DeviceUpdateRequest struct {
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}
