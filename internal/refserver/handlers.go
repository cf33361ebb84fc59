package refserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 10 << 10

// Request bodies accepted by the API.
type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type nameBody struct {
	Name string `json:"name"`
}

type deviceBody struct {
	Name   *string `json:"name"`
	Type   *string `json:"type"`
	Status *string `json:"status"`
}

// decodeBody reads a JSON object into dst. It writes a 400 and returns false on
// malformed input.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			s.fail(w, http.StatusBadRequest, "Request body is required")
			return false
		}
		s.logger.Debug("Rejected request body", zap.Error(err))
		s.fail(w, http.StatusBadRequest, "Invalid JSON in request body")
		return false
	}
	return true
}

// storeError maps store errors to responses.
func (s *Server) storeError(w http.ResponseWriter, kind string, err error) {
	if errors.Is(err, ErrNotFound) {
		s.fail(w, http.StatusNotFound, capitalize(kind)+" not found or you do not have access")
		return
	}
	s.logger.Error("Store operation failed", zap.String("kind", kind), zap.Error(err))
	s.fail(w, http.StatusInternalServerError, "Internal server error")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func validStatus(status string) bool {
	return status == "ON" || status == "OFF"
}

func (s *Server) owner(r *http.Request) string {
	id, _ := userIDFromContext(r.Context())
	return id
}

// handleHealth returns a simple health check response
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, http.StatusNotFound, "Can't find "+r.URL.Path+" on this server!")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.fail(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed on "+r.URL.Path)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		s.fail(w, http.StatusBadRequest, "Please provide an email and password")
		return
	}

	user, err := s.store.Authenticate(body.Email, body.Password)
	if err != nil {
		s.logger.Info("Login rejected", zap.String("email", body.Email))
		s.fail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("Failed to issue token", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.respond(w, http.StatusOK, "Login successful", map[string]any{
		"token": token,
		"user":  s.renderUser(user),
	})
}

// Houses

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses := s.store.ListHouses(s.owner(r))
	out := make([]map[string]any, len(houses))
	for i, h := range houses {
		out[i] = s.renderHouse(h, s.store.HouseRooms(h.ID))
	}
	s.respond(w, http.StatusOK, "Houses retrieved", out)
}

func (s *Server) handleCreateHouse(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.fail(w, http.StatusBadRequest, "House name is required")
		return
	}

	h := s.store.CreateHouse(s.owner(r), name)
	s.hub.Publish(Event{Type: EventCreated, Kind: KindHouse, ID: h.ID})
	s.respond(w, http.StatusCreated, "House created", s.renderHouse(h, nil))
}

func (s *Server) handleGetHouse(w http.ResponseWriter, r *http.Request) {
	h, err := s.store.GetHouse(s.owner(r), chi.URLParam(r, "houseID"))
	if err != nil {
		s.storeError(w, KindHouse, err)
		return
	}
	s.respond(w, http.StatusOK, "House retrieved", s.renderHouse(h, s.store.HouseRooms(h.ID)))
}

func (s *Server) handleUpdateHouse(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.fail(w, http.StatusBadRequest, "House name is required")
		return
	}

	h, err := s.store.UpdateHouse(s.owner(r), chi.URLParam(r, "houseID"), name)
	if err != nil {
		s.storeError(w, KindHouse, err)
		return
	}
	s.hub.Publish(Event{Type: EventUpdated, Kind: KindHouse, ID: h.ID})
	s.respond(w, http.StatusOK, "House updated", s.renderHouse(h, s.store.HouseRooms(h.ID)))
}

func (s *Server) handleDeleteHouse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "houseID")
	if err := s.store.DeleteHouse(s.owner(r), id); err != nil {
		s.storeError(w, KindHouse, err)
		return
	}
	s.hub.Publish(Event{Type: EventDeleted, Kind: KindHouse, ID: id})
	s.respond(w, http.StatusOK, "House removed", s.renderRemoved(id))
}

// Rooms

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.ListRooms(s.owner(r), chi.URLParam(r, "houseID"))
	if err != nil {
		s.storeError(w, KindHouse, err)
		return
	}
	out := make([]map[string]any, len(rooms))
	for i, room := range rooms {
		out[i] = s.renderRoom(room)
	}
	s.respond(w, http.StatusOK, "Rooms retrieved", out)
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.fail(w, http.StatusBadRequest, "Room name is required")
		return
	}

	room, err := s.store.CreateRoom(s.owner(r), chi.URLParam(r, "houseID"), name)
	if err != nil {
		s.storeError(w, KindHouse, err)
		return
	}
	s.hub.Publish(Event{Type: EventCreated, Kind: KindRoom, ID: room.ID})
	s.respond(w, http.StatusCreated, "Room created", s.renderRoom(room))
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetRoom(s.owner(r), chi.URLParam(r, "roomID"))
	if err != nil {
		s.storeError(w, KindRoom, err)
		return
	}
	s.respond(w, http.StatusOK, "Room retrieved", s.renderRoom(room))
}

func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		s.fail(w, http.StatusBadRequest, "Room name is required")
		return
	}

	room, err := s.store.UpdateRoom(s.owner(r), chi.URLParam(r, "roomID"), name)
	if err != nil {
		s.storeError(w, KindRoom, err)
		return
	}
	s.hub.Publish(Event{Type: EventUpdated, Kind: KindRoom, ID: room.ID})
	s.respond(w, http.StatusOK, "Room updated", s.renderRoom(room))
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "roomID")
	if err := s.store.DeleteRoom(s.owner(r), id); err != nil {
		s.storeError(w, KindRoom, err)
		return
	}
	s.hub.Publish(Event{Type: EventDeleted, Kind: KindRoom, ID: id})
	s.respond(w, http.StatusOK, "Room removed", s.renderRemoved(id))
}

// Devices

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.store.ListDevices(s.owner(r), chi.URLParam(r, "roomID"))
	if err != nil {
		s.storeError(w, KindRoom, err)
		return
	}
	out := make([]map[string]any, len(devices))
	for i, d := range devices {
		out[i] = s.renderDevice(d)
	}
	s.respond(w, http.StatusOK, "Devices retrieved", out)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var body deviceBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" || body.Type == nil || strings.TrimSpace(*body.Type) == "" {
		s.fail(w, http.StatusBadRequest, "Device name and type are required")
		return
	}

	d, err := s.store.CreateDevice(s.owner(r), chi.URLParam(r, "roomID"),
		strings.TrimSpace(*body.Name), strings.TrimSpace(*body.Type))
	if err != nil {
		s.storeError(w, KindRoom, err)
		return
	}
	s.hub.Publish(Event{Type: EventCreated, Kind: KindDevice, ID: d.ID})
	s.respond(w, http.StatusCreated, "Device created", s.renderDevice(d))
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.GetDevice(s.owner(r), chi.URLParam(r, "deviceID"))
	if err != nil {
		s.storeError(w, KindDevice, err)
		return
	}
	s.respond(w, http.StatusOK, "Device retrieved", s.renderDevice(d))
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var body deviceBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	var upd DeviceUpdate
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			s.fail(w, http.StatusBadRequest, "Device name cannot be empty")
			return
		}
		upd.Name = &name
	}
	if body.Status != nil {
		status := strings.ToUpper(strings.TrimSpace(*body.Status))
		if !validStatus(status) {
			s.fail(w, http.StatusBadRequest, "Device status must be ON or OFF")
			return
		}
		upd.Status = &status
	}
	if upd.Name == nil && upd.Status == nil {
		s.fail(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	d, err := s.store.UpdateDevice(s.owner(r), chi.URLParam(r, "deviceID"), upd)
	if err != nil {
		s.storeError(w, KindDevice, err)
		return
	}
	s.hub.Publish(Event{Type: EventUpdated, Kind: KindDevice, ID: d.ID})
	s.respond(w, http.StatusOK, "Device updated", s.renderDevice(d))
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deviceID")
	if err := s.store.DeleteDevice(s.owner(r), id); err != nil {
		s.storeError(w, KindDevice, err)
		return
	}
	s.hub.Publish(Event{Type: EventDeleted, Kind: KindDevice, ID: id})
	s.respond(w, http.StatusOK, "Device removed", s.renderRemoved(id))
}
