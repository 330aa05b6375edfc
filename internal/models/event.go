package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event kinds carried over the stream. Consumers ignore unknown kinds.
const (
	KindText     = "text"
	KindLocation = "location"
	KindSystem   = "system"
)

// Coordinates is a shared location point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Notice is the structured body of a system event. System events are
// client-local announcements and have no sender.
type Notice struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// ChatEvent is the unit transmitted over the stream. Kind determines which
// of the remaining fields are meaningful.
type ChatEvent struct {
	Kind      string       `json:"kind"`
	RoomID    int          `json:"room_id,omitempty"`
	SenderID  int          `json:"sender_id,omitempty"`
	Sender    string       `json:"sender,omitempty"`
	Body      string       `json:"body,omitempty"`
	Location  *Coordinates `json:"location,omitempty"`
	Notice    *Notice      `json:"notice,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// DisplayTime renders the minute-granularity timestamp shown next to a
// message bubble.
func (e ChatEvent) DisplayTime() string {
	return e.CreatedAt.Local().Format("15:04")
}

// DedupKey identifies an event for duplicate suppression between the
// history snapshot and the live stream. The timestamp is truncated to the
// minute, matching the display granularity: two identical bodies of one
// kind from the same sender within one minute collapse into a single
// entry. The kind component keeps bodyless location updates from
// colliding with each other.
func (e ChatEvent) DedupKey() string {
	return fmt.Sprintf("%s|%d|%s|%s", e.Kind, e.SenderID, e.Body, e.CreatedAt.UTC().Truncate(time.Minute).Format(time.RFC3339))
}

// Frame is the wire envelope: a topic address plus the event payload.
type Frame struct {
	Topic string          `json:"topic"`
	Event json.RawMessage `json:"event"`
}

// NewFrame marshals an event into a frame addressed to topic.
func NewFrame(topic string, event ChatEvent) (Frame, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return Frame{}, fmt.Errorf("encode event: %w", err)
	}
	return Frame{Topic: topic, Event: payload}, nil
}

// Marshal encodes the frame for the wire.
func (f Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

// UnmarshalFrame parses a wire frame, requiring a topic address.
func UnmarshalFrame(data []byte) (Frame, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Topic == "" {
		return Frame{}, fmt.Errorf("frame missing topic")
	}
	return frame, nil
}

// Decode parses the frame payload into a ChatEvent.
func (f Frame) Decode() (ChatEvent, error) {
	var event ChatEvent
	if err := json.Unmarshal(f.Event, &event); err != nil {
		return ChatEvent{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}
