package relay

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"trade-chat/internal/models"
	"trade-chat/internal/observability"
	"trade-chat/internal/telemetry"
)

// Handler upgrades websocket connections and pumps inbound frames into the
// hub's delivery scopes.
type Handler struct {
	hub   *Hub
	audit *telemetry.AuditEmitter
}

// NewHandler constructs a Handler.
func NewHandler(hub *Hub, audit *telemetry.AuditEmitter) *Handler {
	return &Handler{hub: hub, audit: audit}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, joins the optional room scope given by
// the board_id query parameter, and runs the read loop until disconnect.
func (h *Handler) Handle(c *gin.Context) {
	roomID := c.Query("board_id")
	if roomID == "" {
		roomID = c.Query("room")
	}

	ctx, span := otel.Tracer("trade-chat/relay").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	traceID := span.SpanContext().TraceID().String()
	requestID := observability.RequestIDFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	connID := h.hub.Add(ws, roomID, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", roomID, info, "")
	if roomID != "" {
		h.audit.Emit(ctx, "INFO", "room join", requestID, roomID)
	}

	go h.readLoop(ctx, ws, connID, roomID, info)
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, connID, roomID string, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Remove(connID)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", roomID, info, closeReason)
		if roomID != "" {
			h.audit.Emit(ctx, "INFO", "room leave", info.RequestID, roomID)
		}
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, "ws_error", roomID, info, closeReason)
			}
			return
		}

		frame, err := models.UnmarshalFrame(data)
		if err != nil {
			log.Printf("dropping malformed frame from %s: %v", connID, err)
			observability.IncMalformedFrame()
			continue
		}

		h.route(connID, frame)
	}
}

// route maps an inbound frame's topic onto a delivery scope. A single bad
// frame is dropped; the connection keeps going.
func (h *Handler) route(connID string, frame models.Frame) {
	switch frame.Topic {
	case models.TopicMessage:
		h.hub.BroadcastAll(connID, frame)
	case models.TopicLocation:
		h.hub.BroadcastRoom(connID, frame)
	case models.TopicChatSend:
		event, err := frame.Decode()
		if err != nil || event.RoomID == 0 {
			log.Printf("dropping chat send without room id from %s: %v", connID, err)
			observability.IncMalformedFrame()
			return
		}
		out := models.Frame{Topic: models.ChatTopic(event.RoomID), Event: frame.Event}
		h.hub.BroadcastChat(strconv.Itoa(event.RoomID), out)
	default:
		log.Printf("ignoring frame with unknown topic %q from %s", frame.Topic, connID)
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, event, roomID string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.rooms", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"room_id":     roomID,
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
