package client

import (
	"context"
	"log"
	"sync"

	"trade-chat/internal/compose"
	"trade-chat/internal/models"
	"trade-chat/internal/transcript"
)

// HistoryLoader is the boundary to the history API.
type HistoryLoader interface {
	Load(ctx context.Context, tradeID, roomID int) ([]models.ChatEvent, error)
}

// RoomSession binds one open room view: it loads the room's history,
// subscribes to its live topics, and reconciles both into a transcript.
type RoomSession struct {
	conn     *ConnManager
	composer *compose.Composer
	log      *transcript.Transcript

	tradeID   int
	roomID    int
	chatTopic string

	cancelLoad context.CancelFunc
	closeOnce  sync.Once
}

// OpenRoom starts a room session. History loading is best-effort and
// asynchronous: on failure the view continues with an empty transcript.
// onLocation, when non-nil, receives the room's live location updates.
func OpenRoom(ctx context.Context, conn *ConnManager, loader HistoryLoader, tradeID, roomID, senderID int, senderName string, onLocation func(models.ChatEvent)) *RoomSession {
	s := &RoomSession{
		conn:      conn,
		composer:  compose.New(roomID, senderID, senderName),
		log:       transcript.New(),
		tradeID:   tradeID,
		roomID:    roomID,
		chatTopic: models.ChatTopic(roomID),
	}

	conn.Subscribe(s.chatTopic, func(event models.ChatEvent) {
		s.log.Append(event)
	})
	if onLocation != nil {
		conn.Subscribe(models.TopicLocation, onLocation)
	}

	loadCtx, cancel := context.WithCancel(ctx)
	s.cancelLoad = cancel
	go func() {
		events, err := loader.Load(loadCtx, tradeID, roomID)
		if err != nil {
			log.Printf("history load for room %d failed, continuing with empty transcript: %v", roomID, err)
			return
		}
		// Init is a no-op if the session closed while the fetch was in flight.
		s.log.Init(events)
	}()

	return s
}

// Send publishes a text message composed from user input. Empty input is a
// no-op. A send attempted while disconnected returns ErrNotConnected; the
// failure is transient and the user may retry by resending.
func (s *RoomSession) Send(body string) error {
	event, ok := s.composer.Text(body)
	if !ok {
		return nil
	}
	return s.conn.Publish(models.TopicChatSend, event)
}

// SendLocation publishes a location update to the room's tracking channel.
func (s *RoomSession) SendLocation(lat, lng float64) error {
	return s.conn.Publish(models.TopicLocation, s.composer.Location(lat, lng))
}

// Announce appends a client-local system notice to the transcript without
// touching the wire.
func (s *RoomSession) Announce(title, subtitle string) {
	s.log.Append(s.composer.System(title, subtitle))
}

// Events returns the merged transcript, oldest-first.
func (s *RoomSession) Events() []models.ChatEvent {
	return s.log.Events()
}

// Close cancels any in-flight history load, removes the session's
// subscriptions and discards the transcript.
func (s *RoomSession) Close() {
	s.closeOnce.Do(func() {
		s.cancelLoad()
		s.conn.Unsubscribe(s.chatTopic)
		s.conn.Unsubscribe(models.TopicLocation)
		s.log.Teardown()
	})
}
