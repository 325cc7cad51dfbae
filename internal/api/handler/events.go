package handler

import (
	"net/http"

	"github.com/mcoot/werewolf/internal/api/events"
)

// EventsHandler streams game events to the operator
type EventsHandler struct {
	hub *events.Hub
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	events.ServeSSE(w, r, h.hub)
}
