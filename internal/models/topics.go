package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Topics understood by the relay. TopicMessage fans out globally,
// TopicLocation only within the sender's room. TopicChatSend is the fixed
// publish endpoint of the room-keyed binding; the relay re-addresses it to
// chat/<room id> for delivery.
const (
	TopicMessage  = "message"
	TopicLocation = "locationUpdate"
	TopicChatSend = "chat/send"
)

// ChatTopic returns the subscribe path for a room's chat stream.
func ChatTopic(roomID int) string {
	return fmt.Sprintf("chat/%d", roomID)
}

// ParseChatTopic extracts the room id from a chat/<id> topic.
func ParseChatTopic(topic string) (int, bool) {
	rest, ok := strings.CutPrefix(topic, "chat/")
	if !ok || rest == "send" {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}
