// Package scenario drives the ordered end-to-end run against the API under test.
//
// The run is a list of Steps. Each step declares the earlier steps it depends on
// and reads the identifiers those steps captured from the shared State. The Runner
// executes steps in order, skips any step whose dependencies did not pass, and
// reports every outcome.
package scenario

import (
	"context"

	"homeharness/internal/client"
)

// Stage groups steps under a console header.
type Stage string

// Stages in execution order.
const (
	StageAuthentication Stage = "Authentication"
	StageHouses         Stage = "Houses"
	StageRooms          Stage = "Rooms"
	StageDevices        Stage = "Devices"
	StageCleanup        Stage = "Cleanup"
)

// Credentials are the fixed login inputs of a run.
type Credentials struct {
	Email         string
	Password      string
	WrongPassword string
}

// Handle is a resource created during the run: its server-assigned identifier
// and the name the harness expects the server to report for it.
type Handle struct {
	ID   string
	Name string
}

// State is the context threaded from step to step.
type State struct {
	// Session is the unauthenticated client used for login.
	Session *client.Client
	// Authed is Session with the bearer token attached. Set by the login step.
	Authed *client.Client
	Token  string

	Credentials Credentials
	// FakeID is a well-formed identifier no resource has.
	FakeID string

	House  Handle
	Room   Handle
	Device Handle
}

// Step is one check of the run.
type Step struct {
	Name  string
	Stage Stage
	// Needs lists steps that must have passed for this one to run.
	Needs []string
	// Run performs the check and returns the success message.
	Run func(ctx context.Context, s *State) (string, error)
}
