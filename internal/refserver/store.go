package refserver

import (
	"crypto/subtle"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"homeharness/internal/clock"
	"homeharness/internal/config"
)

var (
	// ErrNotFound is returned for missing resources and for resources owned by
	// another user.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by Authenticate for unknown emails and
	// wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Default status of a new device.
const DefaultDeviceStatus = "OFF"

// User is an account that can log in.
type User struct {
	ID       string
	Name     string
	Email    string
	password string
}

// House is owned by one user.
type House struct {
	ID        string
	Name      string
	Owner     string
	CreatedAt time.Time
	UpdatedAt time.Time
	seq       uint64
}

// Room belongs to one house.
type Room struct {
	ID        string
	Name      string
	HouseID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	seq       uint64
}

// Device belongs to one room.
type Device struct {
	ID        string
	Name      string
	Type      string
	Status    string
	RoomID    string
	CreatedAt time.Time
	UpdatedAt time.Time
	seq       uint64
}

// DeviceUpdate carries the fields a device update changes. Nil fields are kept.
type DeviceUpdate struct {
	Name   *string
	Status *string
}

// Store is an in-memory house/room/device store scoped by owner.
type Store struct {
	mu      sync.RWMutex
	clock   clock.Clock
	seq     uint64
	users   map[string]User
	byEmail map[string]string
	houses  map[string]*House
	rooms   map[string]*Room
	devices map[string]*Device
}

// NewStore creates a store holding the seed users.
func NewStore(seed *config.Seed, clk clock.Clock) *Store {
	s := &Store{
		clock:   clk,
		users:   make(map[string]User),
		byEmail: make(map[string]string),
		houses:  make(map[string]*House),
		rooms:   make(map[string]*Room),
		devices: make(map[string]*Device),
	}
	for _, u := range seed.Users {
		s.users[u.ID] = User{ID: u.ID, Name: u.Name, Email: u.Email, password: u.Password}
		s.byEmail[strings.ToLower(u.Email)] = u.ID
	}
	return s
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// Authenticate returns the user with email and password.
func (s *Store) Authenticate(email, password string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	u := s.users[id]
	if subtle.ConstantTimeCompare([]byte(u.password), []byte(password)) != 1 {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// User returns the user with id.
func (s *Store) User(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// ListHouses returns the owner's houses in creation order.
func (s *Store) ListHouses(owner string) []House {
	s.mu.RLock()
	defer s.mu.RUnlock()

	houses := make([]House, 0)
	for _, h := range s.houses {
		if h.Owner == owner {
			houses = append(houses, *h)
		}
	}
	sort.Slice(houses, func(i, j int) bool { return houses[i].seq < houses[j].seq })
	return houses
}

// CreateHouse adds a house for owner.
func (s *Store) CreateHouse(owner, name string) House {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	h := &House{
		ID:        newID("house"),
		Name:      name,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
		seq:       s.nextSeq(),
	}
	s.houses[h.ID] = h
	return *h
}

// GetHouse returns the owner's house with id.
func (s *Store) GetHouse(owner, id string) (House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, err := s.houseLocked(owner, id)
	if err != nil {
		return House{}, err
	}
	return *h, nil
}

// HouseRooms returns the ids of the rooms in a house, in creation order.
func (s *Store) HouseRooms(houseID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := s.roomsOfLocked(houseID)
	ids := make([]string, len(rooms))
	for i, r := range rooms {
		ids[i] = r.ID
	}
	return ids
}

// UpdateHouse renames the owner's house.
func (s *Store) UpdateHouse(owner, id, name string) (House, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.houseLocked(owner, id)
	if err != nil {
		return House{}, err
	}
	h.Name = name
	h.UpdatedAt = s.clock.Now()
	return *h, nil
}

// DeleteHouse removes the owner's house together with its rooms and devices.
func (s *Store) DeleteHouse(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.houseLocked(owner, id); err != nil {
		return err
	}
	for _, r := range s.roomsOfLocked(id) {
		s.deleteRoomLocked(r.ID)
	}
	delete(s.houses, id)
	return nil
}

// ListRooms returns the rooms of the owner's house.
func (s *Store) ListRooms(owner, houseID string) ([]Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.houseLocked(owner, houseID); err != nil {
		return nil, err
	}
	rooms := s.roomsOfLocked(houseID)
	out := make([]Room, len(rooms))
	for i, r := range rooms {
		out[i] = *r
	}
	return out, nil
}

// CreateRoom adds a room to the owner's house.
func (s *Store) CreateRoom(owner, houseID, name string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.houseLocked(owner, houseID); err != nil {
		return Room{}, err
	}
	now := s.clock.Now()
	r := &Room{
		ID:        newID("room"),
		Name:      name,
		HouseID:   houseID,
		CreatedAt: now,
		UpdatedAt: now,
		seq:       s.nextSeq(),
	}
	s.rooms[r.ID] = r
	return *r, nil
}

// GetRoom returns a room in one of the owner's houses.
func (s *Store) GetRoom(owner, id string) (Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := s.roomLocked(owner, id)
	if err != nil {
		return Room{}, err
	}
	return *r, nil
}

// UpdateRoom renames a room.
func (s *Store) UpdateRoom(owner, id, name string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.roomLocked(owner, id)
	if err != nil {
		return Room{}, err
	}
	r.Name = name
	r.UpdatedAt = s.clock.Now()
	return *r, nil
}

// DeleteRoom removes a room and its devices.
func (s *Store) DeleteRoom(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.roomLocked(owner, id); err != nil {
		return err
	}
	s.deleteRoomLocked(id)
	return nil
}

// ListDevices returns the devices of a room.
func (s *Store) ListDevices(owner, roomID string) ([]Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.roomLocked(owner, roomID); err != nil {
		return nil, err
	}
	devices := s.devicesOfLocked(roomID)
	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = *d
	}
	return out, nil
}

// CreateDevice adds a device to a room. New devices are switched off.
func (s *Store) CreateDevice(owner, roomID, name, deviceType string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.roomLocked(owner, roomID); err != nil {
		return Device{}, err
	}
	now := s.clock.Now()
	d := &Device{
		ID:        newID("device"),
		Name:      name,
		Type:      deviceType,
		Status:    DefaultDeviceStatus,
		RoomID:    roomID,
		CreatedAt: now,
		UpdatedAt: now,
		seq:       s.nextSeq(),
	}
	s.devices[d.ID] = d
	return *d, nil
}

// GetDevice returns a device in one of the owner's rooms.
func (s *Store) GetDevice(owner, id string) (Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, err := s.deviceLocked(owner, id)
	if err != nil {
		return Device{}, err
	}
	return *d, nil
}

// UpdateDevice applies the non-nil fields of upd.
func (s *Store) UpdateDevice(owner, id string, upd DeviceUpdate) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.deviceLocked(owner, id)
	if err != nil {
		return Device{}, err
	}
	if upd.Name != nil {
		d.Name = *upd.Name
	}
	if upd.Status != nil {
		d.Status = *upd.Status
	}
	d.UpdatedAt = s.clock.Now()
	return *d, nil
}

// DeleteDevice removes a device.
func (s *Store) DeleteDevice(owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deviceLocked(owner, id); err != nil {
		return err
	}
	delete(s.devices, id)
	return nil
}

// Counts returns the number of houses, rooms and devices across all owners.
func (s *Store) Counts() (houses, rooms, devices int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.houses), len(s.rooms), len(s.devices)
}

func (s *Store) houseLocked(owner, id string) (*House, error) {
	h, ok := s.houses[id]
	if !ok || h.Owner != owner {
		return nil, ErrNotFound
	}
	return h, nil
}

func (s *Store) roomLocked(owner, id string) (*Room, error) {
	r, ok := s.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := s.houseLocked(owner, r.HouseID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) deviceLocked(owner, id string) (*Device, error) {
	d, ok := s.devices[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := s.roomLocked(owner, d.RoomID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) roomsOfLocked(houseID string) []*Room {
	var rooms []*Room
	for _, r := range s.rooms {
		if r.HouseID == houseID {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].seq < rooms[j].seq })
	return rooms
}

func (s *Store) devicesOfLocked(roomID string) []*Device {
	var devices []*Device
	for _, d := range s.devices {
		if d.RoomID == roomID {
			devices = append(devices, d)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].seq < devices[j].seq })
	return devices
}

func (s *Store) deleteRoomLocked(id string) {
	for _, d := range s.devicesOfLocked(id) {
		delete(s.devices, d.ID)
	}
	delete(s.rooms, id)
}
