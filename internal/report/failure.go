package report

import (
	"errors"
	"fmt"

	"homeharness/internal/client"
)

// Failure is a violated expectation. Response is the exchange that violated it,
// nil when the request never produced one.
type Failure struct {
	Message  string
	Response *client.Response
}

func (f *Failure) Error() string {
	if f.Response == nil {
		return f.Message
	}
	return fmt.Sprintf("%s (%s %s -> %d)", f.Message, f.Response.Method, f.Response.Path, f.Response.StatusCode)
}

// Fail builds a Failure error.
func Fail(message string, resp *client.Response) error {
	return &Failure{Message: message, Response: resp}
}

// AsFailure extracts a Failure from err. Errors that are not failures (transport
// errors, context cancellation) are wrapped into one without a response.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Message: err.Error()}
}
