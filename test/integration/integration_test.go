package integration

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"homeharness/internal/refserver"
	"homeharness/internal/report"
	"homeharness/internal/scenario"
	"homeharness/pkg/testutil"

	"github.com/stretchr/testify/require"
)

var credentials = scenario.Credentials{
	Email:         "user@example.com",
	Password:      "password123",
	WrongPassword: "wrongpassword",
}

const fakeID = "fake-id-12345"

// setupTest starts a reference server recording its events and returns a runner
// pointed at it along with the buffer the reporter writes to.
func setupTest(t *testing.T, opts refserver.Options, runOpts scenario.Options) (*testutil.TestEnv, *scenario.Runner, *bytes.Buffer) {
	env, err := testutil.NewTestEnv(opts)
	require.NoError(t, err, "Failed to start reference server")
	t.Cleanup(env.Cleanup)

	require.NoError(t, env.RecordEvents(), "Failed to subscribe to events")

	session, err := env.NewClient()
	require.NoError(t, err)

	var out bytes.Buffer
	reporter := report.NewReporter(&out, false)
	runner := scenario.NewRunner(session, credentials, fakeID, reporter, env.Logger, runOpts)
	return env, runner, &out
}

func newQuietReporter() *report.Reporter {
	return report.NewReporter(io.Discard, false)
}

func failWith(message string, status int) error {
	return report.Fail(fmt.Sprintf("%s (status %d)", message, status), nil)
}
