// Package messagingtest provides an in-process event publisher for tests.
package messagingtest

import (
	"context"
	"sync"

	"restaurant-floor/internal/models"
)

// Recorder keeps every published floor event
type Recorder struct {
	mu     sync.Mutex
	events []models.FloorEvent
	Err    error
}

// PublishFloorEvent records event and returns r.Err
func (r *Recorder) PublishFloorEvent(_ context.Context, event *models.FloorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return r.Err
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []models.FloorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.FloorEvent(nil), r.events...)
}

// Types returns the recorded event types in publish order
func (r *Recorder) Types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]models.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
