package refserver

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeharness/internal/clock"
	"homeharness/internal/config"
)

func newTestStore(t *testing.T) (*Store, *clock.MockClock) {
	t.Helper()
	clk := clock.NewMockClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return NewStore(config.DefaultSeed(), clk), clk
}

func TestStore_Authenticate(t *testing.T) {
	store, _ := newTestStore(t)

	user, err := store.Authenticate("user@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	// Emails are matched case-insensitively
	user, err = store.Authenticate("  USER@example.com ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	_, err = store.Authenticate("user@example.com", "wrongpassword")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Authenticate("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStore_HouseLifecycle(t *testing.T) {
	store, clk := newTestStore(t)

	h := store.CreateHouse("user-1", "Villa")
	assert.True(t, strings.HasPrefix(h.ID, "house-"))
	assert.Equal(t, "Villa", h.Name)
	assert.Equal(t, clk.Now(), h.CreatedAt)

	got, err := store.GetHouse("user-1", h.ID)
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)

	clk.Advance(time.Minute)
	updated, err := store.UpdateHouse("user-1", h.ID, "Updated Villa")
	require.NoError(t, err)
	assert.Equal(t, "Updated Villa", updated.Name)
	assert.Equal(t, h.CreatedAt, updated.CreatedAt)
	assert.Equal(t, clk.Now(), updated.UpdatedAt)

	require.NoError(t, store.DeleteHouse("user-1", h.ID))
	_, err = store.GetHouse("user-1", h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListHousesInCreationOrder(t *testing.T) {
	store, _ := newTestStore(t)

	first := store.CreateHouse("user-1", "First")
	second := store.CreateHouse("user-1", "Second")
	store.CreateHouse("user-2", "Other")

	houses := store.ListHouses("user-1")
	require.Len(t, houses, 2)
	assert.Equal(t, first.ID, houses[0].ID)
	assert.Equal(t, second.ID, houses[1].ID)

	assert.Empty(t, store.ListHouses("user-3"))
	assert.NotNil(t, store.ListHouses("user-3"))
}

func TestStore_OwnershipHidesOtherUsersResources(t *testing.T) {
	store, _ := newTestStore(t)

	h := store.CreateHouse("user-1", "Villa")
	room, err := store.CreateRoom("user-1", h.ID, "Kitchen")
	require.NoError(t, err)
	device, err := store.CreateDevice("user-1", room.ID, "Lamp", "switch")
	require.NoError(t, err)

	_, err = store.GetHouse("user-2", h.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetRoom("user-2", room.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetDevice("user-2", device.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.CreateRoom("user-2", h.ID, "Intruder")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.DeleteDevice("user-2", device.ID), ErrNotFound)
}

func TestStore_DeviceDefaultsAndUpdate(t *testing.T) {
	store, _ := newTestStore(t)

	h := store.CreateHouse("user-1", "Villa")
	room, err := store.CreateRoom("user-1", h.ID, "Kitchen")
	require.NoError(t, err)

	d, err := store.CreateDevice("user-1", room.ID, "Lamp", "switch")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(d.ID, "device-"))
	assert.Equal(t, DefaultDeviceStatus, d.Status)

	on := "ON"
	d, err = store.UpdateDevice("user-1", d.ID, DeviceUpdate{Status: &on})
	require.NoError(t, err)
	assert.Equal(t, "ON", d.Status)
	assert.Equal(t, "Lamp", d.Name, "nil fields are kept")

	name := "Ceiling Lamp"
	d, err = store.UpdateDevice("user-1", d.ID, DeviceUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ceiling Lamp", d.Name)
	assert.Equal(t, "ON", d.Status)
}

func TestStore_MissingParents(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.CreateRoom("user-1", "fake-id-12345", "Ghost Room")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.CreateDevice("user-1", "fake-id-12345", "Ghost Device", "switch")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ListRooms("user-1", "fake-id-12345")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ListDevices("user-1", "fake-id-12345")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_DeleteCascades(t *testing.T) {
	store, _ := newTestStore(t)

	h := store.CreateHouse("user-1", "Villa")
	kitchen, err := store.CreateRoom("user-1", h.ID, "Kitchen")
	require.NoError(t, err)
	hall, err := store.CreateRoom("user-1", h.ID, "Hall")
	require.NoError(t, err)
	_, err = store.CreateDevice("user-1", kitchen.ID, "Lamp", "switch")
	require.NoError(t, err)
	_, err = store.CreateDevice("user-1", hall.ID, "Fan", "switch")
	require.NoError(t, err)

	assert.Equal(t, []string{kitchen.ID, hall.ID}, store.HouseRooms(h.ID))

	// Deleting a room removes its devices only
	require.NoError(t, store.DeleteRoom("user-1", kitchen.ID))
	houses, rooms, devices := store.Counts()
	assert.Equal(t, 1, houses)
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, devices)

	// Deleting the house removes everything below it
	require.NoError(t, store.DeleteHouse("user-1", h.ID))
	houses, rooms, devices = store.Counts()
	assert.Zero(t, houses)
	assert.Zero(t, rooms)
	assert.Zero(t, devices)
}
