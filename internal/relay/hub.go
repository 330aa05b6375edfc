package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trade-chat/internal/models"
	"trade-chat/internal/observability"
)

// deliveryScope is the addressing mode of a broadcast. The relay carries
// two historically distinct channels: the plain message channel fans out to
// every other connection, location updates stay inside the sender's room.
// The room-keyed chat binding echoes back to the sender as well, so the
// subscriber sees its own message exactly once, from the stream.
type deliveryScope int

const (
	scopeGlobal deliveryScope = iota
	scopeRoom
	scopeRoomEcho
)

func (s deliveryScope) String() string {
	switch s {
	case scopeGlobal:
		return "global"
	case scopeRoom:
		return "room"
	case scopeRoomEcho:
		return "room_echo"
	default:
		return "unknown"
	}
}

// connection is one registered websocket link. A connection belongs to at
// most one room, assigned at connect time and cleared on removal.
type connection struct {
	id     string
	roomID string
	ws     *websocket.Conn
	info   ConnInfo

	writeMu sync.Mutex
}

func (c *connection) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, payload)
}

// Hub maintains the live connection table: an arena of connection records
// indexed by connection id, with a room index mapping room id to the set of
// member connection ids. Both are mutated only under mu.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*connection
	rooms map[string]map[string]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*connection),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Add registers a websocket connection, joining roomID when non-empty.
func (h *Hub) Add(ws *websocket.Conn, roomID string, info ConnInfo) string {
	conn := &connection{id: info.ConnID, roomID: roomID, ws: ws, info: info}

	h.mu.Lock()
	h.conns[conn.id] = conn
	if roomID != "" {
		if _, ok := h.rooms[roomID]; !ok {
			h.rooms[roomID] = make(map[string]struct{})
		}
		h.rooms[roomID][conn.id] = struct{}{}
	}
	h.mu.Unlock()

	if roomID != "" {
		log.Printf("connection %s joined room %s", conn.id, roomID)
	} else {
		log.Printf("connection %s joined without room scope", conn.id)
	}
	return conn.id
}

// Remove untags the connection from its room and drops it from delivery.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	conn, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
		if conn.roomID != "" {
			if members, ok := h.rooms[conn.roomID]; ok {
				delete(members, connID)
				if len(members) == 0 {
					delete(h.rooms, conn.roomID)
				}
			}
		}
	}
	h.mu.Unlock()

	if ok {
		log.Printf("connection %s left (room %q)", connID, conn.roomID)
	}
}

// BroadcastAll delivers a frame to every other connection regardless of room.
func (h *Hub) BroadcastAll(senderConnID string, frame models.Frame) {
	h.broadcast(scopeGlobal, "", senderConnID, frame)
}

// BroadcastRoom delivers a frame only to the sender's room, excluding the sender.
func (h *Hub) BroadcastRoom(senderConnID string, frame models.Frame) {
	h.broadcast(scopeRoom, "", senderConnID, frame)
}

// BroadcastChat delivers a frame to every member of roomID, sender included.
func (h *Hub) BroadcastChat(roomID string, frame models.Frame) {
	h.broadcast(scopeRoomEcho, roomID, "", frame)
}

func (h *Hub) broadcast(scope deliveryScope, roomID, senderConnID string, frame models.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		log.Printf("encode frame for broadcast: %v", err)
		return
	}

	h.mu.RLock()
	var targets []*connection
	switch scope {
	case scopeGlobal:
		for id, conn := range h.conns {
			if id != senderConnID {
				targets = append(targets, conn)
			}
		}
	case scopeRoom:
		sender, ok := h.conns[senderConnID]
		if !ok || sender.roomID == "" {
			h.mu.RUnlock()
			return
		}
		for id := range h.rooms[sender.roomID] {
			if id != senderConnID {
				targets = append(targets, h.conns[id])
			}
		}
	case scopeRoomEcho:
		for id := range h.rooms[roomID] {
			targets = append(targets, h.conns[id])
		}
	}
	h.mu.RUnlock()

	observability.IncBroadcast(scope.String())
	log.Printf("broadcast scope=%s topic=%s recipients=%d", scope, frame.Topic, len(targets))

	for _, conn := range targets {
		if err := conn.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			conn.ws.Close()
			h.Remove(conn.id)
			h.publishWSError(conn, err)
		}
	}
}

// RoomSize reports the number of connections joined to roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Len reports the total number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) publishWSError(conn *connection, err error) {
	info := conn.info
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"room_id":     conn.roomID,
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
