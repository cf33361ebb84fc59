package testutil

import "homeharness/internal/refserver"

// FilterEvents returns the events of eventType, restricted to kind when kind is
// not empty.
func FilterEvents(events []refserver.Event, eventType, kind string) []refserver.Event {
	var filtered []refserver.Event
	for _, e := range events {
		if e.Type == eventType && (kind == "" || e.Kind == kind) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// FindEvent finds the last event of eventType for a specific resource id
func FindEvent(events []refserver.Event, eventType, id string) *refserver.Event {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType && events[i].ID == id {
			e := events[i]
			return &e
		}
	}
	return nil
}

// DeletedKinds lists the kinds of deleted resources in the order the deletions
// were published.
func DeletedKinds(events []refserver.Event) []string {
	var kinds []string
	for _, e := range FilterEvents(events, refserver.EventDeleted, "") {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
