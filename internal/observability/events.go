package observability

// EventEnvelope wraps a relay lifecycle event (ws_connect, ws_disconnect,
// ws_error) for the broker. Payload carries the ws and identity sections
// built by the relay.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders assembles the AMQP headers correlating a relay event with
// its originating request and handshake trace. Empty values are omitted.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
