package models

import "time"

// Message is a persisted chat message row served by the history API.
type Message struct {
	ID        int       `db:"id" json:"id"`
	TradeID   int       `db:"trade_id" json:"trade_id"`
	RoomID    int       `db:"room_id" json:"room_id"`
	SenderID  int       `db:"sender_id" json:"sender_id"`
	Sender    string    `db:"sender_name" json:"sender_name"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event converts a stored message into its stream representation.
func (m Message) Event() ChatEvent {
	return ChatEvent{
		Kind:      KindText,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Sender:    m.Sender,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
}
