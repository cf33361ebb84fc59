// Package testutil provides testing utilities for running the harness against
// the in-memory reference API.
package testutil

import (
	"fmt"
	"net/http/httptest"

	"homeharness/internal/client"
	"homeharness/internal/refserver"

	"go.uber.org/zap"
)

// TestEnv provides a reference API server on a loopback listener together with
// everything a test needs to point the harness at it.
type TestEnv struct {
	Server  *refserver.Server
	BaseURL string
	Logger  *zap.Logger
	Events  *EventRecorder

	httpServer *httptest.Server
}

// NewTestEnv starts a reference server with opts.
//
// Example usage:
//
//	env, err := testutil.NewTestEnv(refserver.DefaultOptions())
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer env.Cleanup()
//
//	session, _ := env.NewClient()
func NewTestEnv(opts refserver.Options) (*TestEnv, error) {
	logger, _ := zap.NewDevelopment()

	srv, err := refserver.NewServer(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference server: %w", err)
	}

	httpServer := httptest.NewServer(srv.Handler())

	return &TestEnv{
		Server:     srv,
		BaseURL:    httpServer.URL + client.APIPrefix,
		Logger:     logger,
		httpServer: httpServer,
	}, nil
}

// NewClient creates an unauthenticated API client for the environment.
func (e *TestEnv) NewClient() (*client.Client, error) {
	return client.NewClient(e.BaseURL, e.Logger)
}

// RecordEvents subscribes to the server's event feed. Events published after
// this returns are available from e.Events.
func (e *TestEnv) RecordEvents() error {
	recorder, err := NewEventRecorder(e.httpServer.URL)
	if err != nil {
		return err
	}
	e.Events = recorder
	return nil
}

// Cleanup stops all components in the correct order.
// Always call this in a defer after creating the TestEnv.
func (e *TestEnv) Cleanup() {
	if e.Events != nil {
		e.Events.Close()
	}
	if e.Server != nil {
		e.Server.Hub().Close()
	}
	if e.httpServer != nil {
		e.httpServer.Close()
	}
	e.Logger.Sync()
}
