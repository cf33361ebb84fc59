package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"homeharness/internal/refserver"
	"homeharness/internal/scenario"
	"homeharness/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_ResponseStyles runs the harness against both payload styles the
// API may use.
func TestScenario_ResponseStyles(t *testing.T) {
	styles := []struct {
		name string
		opts refserver.Options
	}{
		{"enveloped payloads with _id", refserver.Options{Envelope: true, IDKey: refserver.IDKeyUnderscore}},
		{"bare payloads with id", refserver.Options{Envelope: false, IDKey: refserver.IDKeyPlain}},
		{"enveloped payloads with id", refserver.Options{Envelope: true, IDKey: refserver.IDKeyPlain}},
		{"bare payloads with _id", refserver.Options{Envelope: false, IDKey: refserver.IDKeyUnderscore}},
	}

	for _, style := range styles {
		t.Run(style.name, func(t *testing.T) {
			t.Logf("GIVEN: A server using %s", style.name)
			_, runner, _ := setupTest(t, style.opts, scenario.Options{})

			t.Log("WHEN: The harness runs every step")
			result, err := runner.Run(context.Background(), scenario.Steps())

			t.Log("THEN: Every step passes")
			require.NoError(t, err)
			assert.Equal(t, 21, result.Passed)
		})
	}
}

// TestScenario_DeviceDeleteFailureKeepsParents checks that a failed device
// delete leaves the room and house in place.
func TestScenario_DeviceDeleteFailureKeepsParents(t *testing.T) {
	env, runner, out := setupTest(t, refserver.DefaultOptions(), scenario.Options{})
	ctx := context.Background()

	t.Log("GIVEN: A device-delete step that asserts a status the server never sends")
	steps := scenario.Steps()
	for i, step := range steps {
		if step.Name == scenario.StepDeviceDelete {
			steps[i].Run = func(ctx context.Context, s *scenario.State) (string, error) {
				resp, err := s.Authed.Get(ctx, "/devices/"+s.Device.ID)
				if err != nil {
					return "", err
				}
				if resp.StatusCode != http.StatusNoContent {
					return "", failWith("Delete Device Failed", resp.StatusCode)
				}
				return "Device deleted", nil
			}
		}
	}

	t.Log("WHEN: The harness runs")
	result, err := runner.Run(ctx, steps)

	t.Log("THEN: The run fails and room/house deletes are skipped")
	require.Error(t, err)
	assert.Equal(t, 1, result.Failed)
	for _, name := range []string{scenario.StepRoomDelete, scenario.StepHouseDelete} {
		o, _ := result.Outcome(name)
		assert.Equal(t, scenario.StatusSkipped, o.Status, name)
	}
	assert.Contains(t, out.String(), "[SKIP] room-delete (needs device-delete)")
	assert.Contains(t, out.String(), "[SKIP] house-delete (needs room-delete)")

	t.Log("THEN: The server still holds the house, room and device")
	houses, rooms, devices := env.Server.Store().Counts()
	assert.Equal(t, 1, houses)
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, devices)

	_, err = env.Events.WaitForCount(refserver.EventUpdated, 3, 5*time.Second)
	require.NoError(t, err)
	assert.Empty(t, testutil.DeletedKinds(env.Events.Events()))
}

// TestScenario_FailFast checks that fail-fast mode stops at the first failure.
func TestScenario_FailFast(t *testing.T) {
	t.Log("GIVEN: Credentials the server rejects and fail-fast mode")
	env, err := testutil.NewTestEnv(refserver.DefaultOptions())
	require.NoError(t, err)
	defer env.Cleanup()

	creds := credentials
	creds.Password = "not-the-password"

	session, err := env.NewClient()
	require.NoError(t, err)
	runner := scenario.NewRunner(session, creds, fakeID, newQuietReporter(), env.Logger, scenario.Options{FailFast: true})

	t.Log("WHEN: The harness runs")
	result, err := runner.Run(context.Background(), scenario.Steps())

	t.Log("THEN: Only the two authentication steps ran")
	require.Error(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 19, result.Skipped)
	o, _ := result.Outcome(scenario.StepHouseCreate)
	assert.Equal(t, scenario.StatusNotRun, o.Status)
}
