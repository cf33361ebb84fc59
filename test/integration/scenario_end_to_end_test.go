package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"homeharness/internal/refserver"
	"homeharness/internal/scenario"
	"homeharness/pkg/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_EndToEnd runs the full step list against a correct server and
// checks what the server saw.
func TestScenario_EndToEnd(t *testing.T) {
	env, runner, out := setupTest(t, refserver.DefaultOptions(), scenario.Options{})
	ctx := context.Background()

	t.Log("GIVEN: A reference server with the default user and no data")
	houses, rooms, devices := env.Server.Store().Counts()
	require.Zero(t, houses+rooms+devices)

	t.Log("WHEN: The harness runs every step")
	require.NoError(t, runner.Preflight(ctx))
	result, err := runner.Run(ctx, scenario.Steps())

	t.Log("THEN: Every step passes")
	require.NoError(t, err)
	assert.Equal(t, 21, result.Passed)
	assert.True(t, strings.HasSuffix(out.String(), "All tests passed.\n"))

	t.Log("THEN: The server is left empty")
	houses, rooms, devices = env.Server.Store().Counts()
	assert.Zero(t, houses)
	assert.Zero(t, rooms)
	assert.Zero(t, devices)

	t.Log("THEN: One house, room and device were created and updated")
	events, err := env.Events.WaitForCount(refserver.EventDeleted, 3, 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, testutil.FilterEvents(events, refserver.EventCreated, refserver.KindHouse), 1)
	assert.Len(t, testutil.FilterEvents(events, refserver.EventCreated, refserver.KindRoom), 1)
	assert.Len(t, testutil.FilterEvents(events, refserver.EventCreated, refserver.KindDevice), 1)
	assert.Len(t, testutil.FilterEvents(events, refserver.EventUpdated, ""), 3)
}

// TestScenario_CleanupLeafToRoot verifies deletions reach the server device
// first, then room, then house.
func TestScenario_CleanupLeafToRoot(t *testing.T) {
	env, runner, _ := setupTest(t, refserver.DefaultOptions(), scenario.Options{})
	ctx := context.Background()

	t.Log("WHEN: The harness runs every step")
	result, err := runner.Run(ctx, scenario.Steps())
	require.NoError(t, err)

	t.Log("THEN: Deletions arrive device, room, house")
	events, err := env.Events.WaitForCount(refserver.EventDeleted, 3, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{refserver.KindDevice, refserver.KindRoom, refserver.KindHouse}, testutil.DeletedKinds(events))

	t.Log("THEN: The deleted ids are the ones the run created")
	for _, o := range []struct{ step, kind string }{
		{scenario.StepHouseCreate, refserver.KindHouse},
		{scenario.StepRoomCreate, refserver.KindRoom},
		{scenario.StepDeviceCreate, refserver.KindDevice},
	} {
		outcome, ok := result.Outcome(o.step)
		require.True(t, ok)
		_, id, found := strings.Cut(outcome.Message, ": ")
		require.True(t, found, outcome.Message)
		deleted := testutil.FindEvent(events, refserver.EventDeleted, id)
		require.NotNil(t, deleted, "no delete event for %s %s", o.kind, id)
		assert.Equal(t, o.kind, deleted.Kind)
	}
}

// TestScenario_NotFoundChecksTouchNothing verifies the fake-id checks never
// create or delete anything.
func TestScenario_NotFoundChecksTouchNothing(t *testing.T) {
	env, runner, out := setupTest(t, refserver.DefaultOptions(), scenario.Options{})
	ctx := context.Background()

	t.Log("GIVEN: Only the login and 404 steps")
	var steps []scenario.Step
	for _, step := range scenario.Steps() {
		switch step.Name {
		case scenario.StepLogin, scenario.StepHouseGetFake, scenario.StepRoomCreateFakeHouse,
			scenario.StepDeviceCreateFakeRoom, scenario.StepDeviceDeleteFake:
			steps = append(steps, step)
		}
	}

	t.Log("WHEN: They run")
	result, err := runner.Run(ctx, steps)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Passed)

	t.Log("THEN: Each fake-id request was answered with 404 and nothing changed")
	assert.Contains(t, out.String(), "[OK] Get fake house returned 404")
	assert.Contains(t, out.String(), "[OK] Add room to fake house returned 404")
	assert.Contains(t, out.String(), "[OK] Add device to fake room returned 404")
	assert.Contains(t, out.String(), "[OK] Delete fake device returned 404")
	assert.Empty(t, env.Events.Events())
}
