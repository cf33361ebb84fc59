package scenario

import (
	"context"
	"fmt"
	"net/http"

	"homeharness/internal/client"
	"homeharness/internal/payload"
	"homeharness/internal/report"
)

// Names, types and statuses the run creates and expects back.
const (
	HouseName        = "Integration Villa"
	UpdatedHouseName = "Updated Villa"

	RoomName        = "Integration Room"
	UpdatedRoomName = "Updated Room"
	GhostRoomName   = "Ghost Room"

	DeviceName        = "Integration Device"
	UpdatedDeviceName = "Updated Device"
	GhostDeviceName   = "Ghost Device"
	DeviceType        = "switch"

	StatusOff = "OFF"
	StatusOn  = "ON"
)

// Step names, used in Needs and in skip lines.
const (
	StepLoginInvalid         = "login-invalid"
	StepLogin                = "login"
	StepHouseGetFake         = "house-get-fake"
	StepHouseCreate          = "house-create"
	StepHouseList            = "house-list"
	StepHouseGet             = "house-get"
	StepHouseUpdate          = "house-update"
	StepRoomCreateFakeHouse  = "room-create-fake-house"
	StepRoomCreate           = "room-create"
	StepRoomList             = "room-list"
	StepRoomGet              = "room-get"
	StepRoomUpdate           = "room-update"
	StepDeviceCreateFakeRoom = "device-create-fake-room"
	StepDeviceCreate         = "device-create"
	StepDeviceList           = "device-list"
	StepDeviceGet            = "device-get"
	StepDeviceUpdate         = "device-update"
	StepDeviceDeleteFake     = "device-delete-fake"
	StepDeviceDelete         = "device-delete"
	StepRoomDelete           = "room-delete"
	StepHouseDelete          = "house-delete"
)

// Steps returns the full run in execution order. Cleanup deletes leaf to root:
// a room is only deleted after its device, a house only after its room.
func Steps() []Step {
	return []Step{
		// Authentication
		{Name: StepLoginInvalid, Stage: StageAuthentication, Run: loginInvalid},
		{Name: StepLogin, Stage: StageAuthentication, Run: login},

		// Houses
		{Name: StepHouseGetFake, Stage: StageHouses, Needs: []string{StepLogin}, Run: houseGetFake},
		{Name: StepHouseCreate, Stage: StageHouses, Needs: []string{StepLogin}, Run: houseCreate},
		{Name: StepHouseList, Stage: StageHouses, Needs: []string{StepHouseCreate}, Run: houseList},
		{Name: StepHouseGet, Stage: StageHouses, Needs: []string{StepHouseCreate}, Run: houseGet},
		{Name: StepHouseUpdate, Stage: StageHouses, Needs: []string{StepHouseCreate}, Run: houseUpdate},

		// Rooms
		{Name: StepRoomCreateFakeHouse, Stage: StageRooms, Needs: []string{StepLogin}, Run: roomCreateFakeHouse},
		{Name: StepRoomCreate, Stage: StageRooms, Needs: []string{StepHouseCreate}, Run: roomCreate},
		{Name: StepRoomList, Stage: StageRooms, Needs: []string{StepRoomCreate}, Run: roomList},
		{Name: StepRoomGet, Stage: StageRooms, Needs: []string{StepRoomCreate}, Run: roomGet},
		{Name: StepRoomUpdate, Stage: StageRooms, Needs: []string{StepRoomCreate}, Run: roomUpdate},

		// Devices
		{Name: StepDeviceCreateFakeRoom, Stage: StageDevices, Needs: []string{StepLogin}, Run: deviceCreateFakeRoom},
		{Name: StepDeviceCreate, Stage: StageDevices, Needs: []string{StepRoomCreate}, Run: deviceCreate},
		{Name: StepDeviceList, Stage: StageDevices, Needs: []string{StepDeviceCreate}, Run: deviceList},
		{Name: StepDeviceGet, Stage: StageDevices, Needs: []string{StepDeviceCreate}, Run: deviceGet},
		{Name: StepDeviceUpdate, Stage: StageDevices, Needs: []string{StepDeviceCreate}, Run: deviceUpdate},

		// Cleanup
		{Name: StepDeviceDeleteFake, Stage: StageCleanup, Needs: []string{StepLogin}, Run: deviceDeleteFake},
		{Name: StepDeviceDelete, Stage: StageCleanup, Needs: []string{StepDeviceCreate}, Run: deviceDelete},
		{Name: StepRoomDelete, Stage: StageCleanup, Needs: []string{StepRoomCreate, StepDeviceDelete}, Run: roomDelete},
		{Name: StepHouseDelete, Stage: StageCleanup, Needs: []string{StepHouseCreate, StepRoomDelete}, Run: houseDelete},
	}
}

func loginInvalid(ctx context.Context, s *State) (string, error) {
	resp, err := s.Session.Post(ctx, "/auth/login", client.LoginRequest{
		Email:    s.Credentials.Email,
		Password: s.Credentials.WrongPassword,
	})
	if err != nil {
		return "", err
	}
	if err := expectStatus(resp, http.StatusUnauthorized, "Invalid login failed to return 401"); err != nil {
		return "", err
	}
	return "Invalid login rejected (401)", nil
}

func login(ctx context.Context, s *State) (string, error) {
	resp, err := s.Session.Post(ctx, "/auth/login", client.LoginRequest{
		Email:    s.Credentials.Email,
		Password: s.Credentials.Password,
	})
	if err != nil {
		return "", err
	}
	if err := expectStatus(resp, http.StatusOK, "Login Failed"); err != nil {
		return "", err
	}

	p, err := decode(resp)
	if err != nil {
		return "", err
	}
	token, ok := payload.String(p, "token")
	if !ok || token == "" {
		return "", report.Fail("No token returned", resp)
	}

	s.Token = token
	s.Authed = s.Session.WithToken(token)
	return "Login successful. Token received.", nil
}

func houseGetFake(ctx context.Context, s *State) (string, error) {
	return expectNotFound(ctx, s.Authed, http.MethodGet, "/houses/"+s.FakeID, nil,
		"Get fake house returned 404", "Expected 404 for fake house")
}

func houseCreate(ctx context.Context, s *State) (string, error) {
	h, _, _, err := create(ctx, s.Authed, "House", "/houses", client.NameRequest{Name: HouseName}, HouseName)
	if err != nil {
		return "", err
	}
	s.House = h
	return fmt.Sprintf("House created: %s", h.ID), nil
}

func houseList(ctx context.Context, s *State) (string, error) {
	err := listContains(ctx, s.Authed, "/houses", s.House.ID, "Get Houses Failed", "Created house not found in list")
	if err != nil {
		return "", err
	}
	return "House found in list", nil
}

func houseGet(ctx context.Context, s *State) (string, error) {
	if err := getNamed(ctx, s.Authed, "House", "/houses/"+s.House.ID, s.House); err != nil {
		return "", err
	}
	return "House details verified", nil
}

func houseUpdate(ctx context.Context, s *State) (string, error) {
	_, _, err := update(ctx, s.Authed, "House", "/houses/"+s.House.ID,
		client.NameRequest{Name: UpdatedHouseName}, s.House, UpdatedHouseName)
	if err != nil {
		return "", err
	}
	s.House.Name = UpdatedHouseName
	return "House updated", nil
}

func roomCreateFakeHouse(ctx context.Context, s *State) (string, error) {
	return expectNotFound(ctx, s.Authed, http.MethodPost, "/houses/"+s.FakeID+"/rooms",
		client.NameRequest{Name: GhostRoomName},
		"Add room to fake house returned 404", "Expected 404 for room in fake house")
}

func roomCreate(ctx context.Context, s *State) (string, error) {
	h, _, _, err := create(ctx, s.Authed, "Room", "/houses/"+s.House.ID+"/rooms",
		client.NameRequest{Name: RoomName}, RoomName)
	if err != nil {
		return "", err
	}
	s.Room = h
	return fmt.Sprintf("Room created: %s", h.ID), nil
}

func roomList(ctx context.Context, s *State) (string, error) {
	err := listContains(ctx, s.Authed, "/houses/"+s.House.ID+"/rooms", s.Room.ID,
		"Get Rooms List Failed", "Created room not found in house list")
	if err != nil {
		return "", err
	}
	return "Room found in house list", nil
}

func roomGet(ctx context.Context, s *State) (string, error) {
	if err := getNamed(ctx, s.Authed, "Room", "/rooms/"+s.Room.ID, s.Room); err != nil {
		return "", err
	}
	return "Room details verified", nil
}

func roomUpdate(ctx context.Context, s *State) (string, error) {
	_, _, err := update(ctx, s.Authed, "Room", "/rooms/"+s.Room.ID,
		client.NameRequest{Name: UpdatedRoomName}, s.Room, UpdatedRoomName)
	if err != nil {
		return "", err
	}
	s.Room.Name = UpdatedRoomName
	return "Room updated", nil
}

func deviceCreateFakeRoom(ctx context.Context, s *State) (string, error) {
	return expectNotFound(ctx, s.Authed, http.MethodPost, "/rooms/"+s.FakeID+"/devices",
		client.DeviceRequest{Name: GhostDeviceName, Type: DeviceType},
		"Add device to fake room returned 404", "Expected 404 for device in fake room")
}

func deviceCreate(ctx context.Context, s *State) (string, error) {
	h, p, resp, err := create(ctx, s.Authed, "Device", "/rooms/"+s.Room.ID+"/devices",
		client.DeviceRequest{Name: DeviceName, Type: DeviceType}, DeviceName)
	if err != nil {
		return "", err
	}
	if err := expectString(p, "status", StatusOff, "Default status incorrect", resp); err != nil {
		return "", err
	}
	s.Device = h
	return fmt.Sprintf("Device created: %s", h.ID), nil
}

func deviceList(ctx context.Context, s *State) (string, error) {
	err := listContains(ctx, s.Authed, "/rooms/"+s.Room.ID+"/devices", s.Device.ID,
		"Get Device List Failed", "Device not found in room list")
	if err != nil {
		return "", err
	}
	return "Device found in room list", nil
}

func deviceGet(ctx context.Context, s *State) (string, error) {
	if err := getNamed(ctx, s.Authed, "Device", "/devices/"+s.Device.ID, s.Device); err != nil {
		return "", err
	}
	return "Device details verified", nil
}

func deviceUpdate(ctx context.Context, s *State) (string, error) {
	p, resp, err := update(ctx, s.Authed, "Device", "/devices/"+s.Device.ID,
		client.DeviceUpdateRequest{Name: UpdatedDeviceName, Status: StatusOn}, s.Device, UpdatedDeviceName)
	if err != nil {
		return "", err
	}
	if err := expectString(p, "status", StatusOn, "Device status did not update", resp); err != nil {
		return "", err
	}
	s.Device.Name = UpdatedDeviceName
	return "Device updated", nil
}

func deviceDeleteFake(ctx context.Context, s *State) (string, error) {
	return expectNotFound(ctx, s.Authed, http.MethodDelete, "/devices/"+s.FakeID, nil,
		"Delete fake device returned 404", "Expected 404 for fake device delete")
}

func deviceDelete(ctx context.Context, s *State) (string, error) {
	if err := remove(ctx, s.Authed, "Device", "/devices/"+s.Device.ID); err != nil {
		return "", err
	}
	return "Device deleted", nil
}

func roomDelete(ctx context.Context, s *State) (string, error) {
	if err := remove(ctx, s.Authed, "Room", "/rooms/"+s.Room.ID); err != nil {
		return "", err
	}
	return "Room deleted", nil
}

func houseDelete(ctx context.Context, s *State) (string, error) {
	if err := remove(ctx, s.Authed, "House", "/houses/"+s.House.ID); err != nil {
		return "", err
	}
	return "House deleted", nil
}
