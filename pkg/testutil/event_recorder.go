package testutil

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"homeharness/internal/refserver"

	"github.com/gorilla/websocket"
)

// EventRecorder collects the events a reference server publishes on /events.
type EventRecorder struct {
	conn *websocket.Conn

	eventsMu sync.Mutex
	events   []refserver.Event
	notify   chan struct{}

	done chan struct{}
}

// NewEventRecorder subscribes to the event feed of the server at serverURL
// (http://host:port). It returns once the server has confirmed the
// subscription, so no later mutation is missed.
func NewEventRecorder(serverURL string) (*EventRecorder, error) {
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/events"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}

	var first refserver.Event
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read subscription: %w", err)
	}
	if first.Type != refserver.EventSubscribed {
		conn.Close()
		return nil, fmt.Errorf("unexpected first event %q", first.Type)
	}
	conn.SetReadDeadline(time.Time{})

	r := &EventRecorder{
		conn:   conn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go r.readLoop()
	return r, nil
}

func (r *EventRecorder) readLoop() {
	defer close(r.done)
	for {
		var e refserver.Event
		if err := r.conn.ReadJSON(&e); err != nil {
			return
		}

		r.eventsMu.Lock()
		r.events = append(r.events, e)
		r.eventsMu.Unlock()

		select {
		case r.notify <- struct{}{}:
		default:
		}
	}
}

// Events returns a copy of everything recorded so far.
func (r *EventRecorder) Events() []refserver.Event {
	r.eventsMu.Lock()
	defer r.eventsMu.Unlock()
	events := make([]refserver.Event, len(r.events))
	copy(events, r.events)
	return events
}

// WaitFor blocks until match holds for the recorded events or timeout elapses.
// It returns the events seen at that point.
func (r *EventRecorder) WaitFor(match func([]refserver.Event) bool, timeout time.Duration) ([]refserver.Event, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		events := r.Events()
		if match(events) {
			return events, nil
		}

		select {
		case <-r.notify:
		case <-r.done:
			events = r.Events()
			if match(events) {
				return events, nil
			}
			return events, fmt.Errorf("event feed closed after %d events", len(events))
		case <-deadline.C:
			return events, fmt.Errorf("timed out after %v waiting for events (have %d)", timeout, len(events))
		}
	}
}

// WaitForCount waits until at least n events of eventType have arrived.
func (r *EventRecorder) WaitForCount(eventType string, n int, timeout time.Duration) ([]refserver.Event, error) {
	return r.WaitFor(func(events []refserver.Event) bool {
		return len(FilterEvents(events, eventType, "")) >= n
	}, timeout)
}

// Close disconnects from the feed and waits for the reader to exit.
func (r *EventRecorder) Close() {
	r.conn.Close()
	<-r.done
}
