// Package compose turns user actions into typed chat events.
package compose

import (
	"strings"
	"time"

	"trade-chat/internal/models"
)

// Composer stamps outgoing events with the author's identity and room.
type Composer struct {
	roomID   int
	senderID int
	sender   string
	now      func() time.Time
}

// New builds a Composer for one room view.
func New(roomID, senderID int, sender string) *Composer {
	return &Composer{roomID: roomID, senderID: senderID, sender: sender, now: time.Now}
}

// Text builds a text event from user input. Whitespace-only input is a
// no-op, not an error: ok is false and nothing should be published.
func (c *Composer) Text(body string) (models.ChatEvent, bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.ChatEvent{}, false
	}
	return models.ChatEvent{
		Kind:      models.KindText,
		RoomID:    c.roomID,
		SenderID:  c.senderID,
		Sender:    c.sender,
		Body:      body,
		CreatedAt: c.now(),
	}, true
}

// Location builds a location update for the room's tracking session.
func (c *Composer) Location(lat, lng float64) models.ChatEvent {
	return models.ChatEvent{
		Kind:      models.KindLocation,
		RoomID:    c.roomID,
		SenderID:  c.senderID,
		Sender:    c.sender,
		Location:  &models.Coordinates{Lat: lat, Lng: lng},
		CreatedAt: c.now(),
	}
}

// System builds a client-local announcement. System events never travel
// over the wire; the room session appends them straight to its transcript.
func (c *Composer) System(title, subtitle string) models.ChatEvent {
	return models.ChatEvent{
		Kind:      models.KindSystem,
		RoomID:    c.roomID,
		Notice:    &models.Notice{Title: title, Subtitle: subtitle},
		CreatedAt: c.now(),
	}
}
