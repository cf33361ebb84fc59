package refserver

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// envelope is the {success, message, data} wrapper used when Options.Envelope is set.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// errorBody is sent for every failure regardless of the envelope setting.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// respond writes a success payload, wrapped in the envelope when enabled.
func (s *Server) respond(w http.ResponseWriter, status int, message string, data any) {
	if !s.opts.Envelope {
		s.writeJSON(w, status, data)
		return
	}
	s.writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// fail writes an error body.
func (s *Server) fail(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Success: false, Message: message})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (s *Server) renderUser(u User) map[string]any {
	return map[string]any{
		s.opts.IDKey: u.ID,
		"name":       u.Name,
		"email":      u.Email,
	}
}

func (s *Server) renderHouse(h House, rooms []string) map[string]any {
	if rooms == nil {
		rooms = []string{}
	}
	return map[string]any{
		s.opts.IDKey: h.ID,
		"name":       h.Name,
		"owner":      h.Owner,
		"rooms":      rooms,
		"createdAt":  formatTime(h.CreatedAt),
		"updatedAt":  formatTime(h.UpdatedAt),
	}
}

func (s *Server) renderRoom(r Room) map[string]any {
	return map[string]any{
		s.opts.IDKey: r.ID,
		"name":       r.Name,
		"house":      r.HouseID,
		"createdAt":  formatTime(r.CreatedAt),
		"updatedAt":  formatTime(r.UpdatedAt),
	}
}

func (s *Server) renderDevice(d Device) map[string]any {
	return map[string]any{
		s.opts.IDKey: d.ID,
		"name":       d.Name,
		"type":       d.Type,
		"status":     d.Status,
		"room":       d.RoomID,
		"createdAt":  formatTime(d.CreatedAt),
		"updatedAt":  formatTime(d.UpdatedAt),
	}
}

func (s *Server) renderRemoved(id string) map[string]any {
	return map[string]any{
		s.opts.IDKey: id,
		"status":     "removed",
	}
}
