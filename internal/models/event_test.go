package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupKeyTruncatesToMinute(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 30, 12, 0, time.UTC)
	a := ChatEvent{Kind: KindText, SenderID: 1, Body: "hi", CreatedAt: at}
	b := ChatEvent{Kind: KindText, SenderID: 1, Body: "hi", CreatedAt: at.Add(40 * time.Second)}
	c := ChatEvent{Kind: KindText, SenderID: 1, Body: "hi", CreatedAt: at.Add(time.Minute)}

	assert.Equal(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestDedupKeyDistinguishesSenderAndBody(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	a := ChatEvent{SenderID: 1, Body: "hi", CreatedAt: at}
	b := ChatEvent{SenderID: 2, Body: "hi", CreatedAt: at}
	c := ChatEvent{SenderID: 1, Body: "yo", CreatedAt: at}

	assert.NotEqual(t, a.DedupKey(), b.DedupKey())
	assert.NotEqual(t, a.DedupKey(), c.DedupKey())
}

func TestChatTopicRoundTrip(t *testing.T) {
	topic := ChatTopic(42)
	assert.Equal(t, "chat/42", topic)

	id, ok := ParseChatTopic(topic)
	require.True(t, ok)
	assert.Equal(t, 42, id)
}

func TestParseChatTopicRejectsSendAndGarbage(t *testing.T) {
	for _, topic := range []string{TopicChatSend, "chat/", "chat/x", "message", ""} {
		_, ok := ParseChatTopic(topic)
		assert.False(t, ok, "topic %q", topic)
	}
}

func TestUnmarshalFrameRequiresTopic(t *testing.T) {
	_, err := UnmarshalFrame([]byte(`{"event":{"kind":"text"}}`))
	assert.Error(t, err)

	_, err = UnmarshalFrame([]byte(`not json`))
	assert.Error(t, err)

	frame, err := UnmarshalFrame([]byte(`{"topic":"message","event":{"kind":"text","body":"hi"}}`))
	require.NoError(t, err)

	event, err := frame.Decode()
	require.NoError(t, err)
	assert.Equal(t, KindText, event.Kind)
	assert.Equal(t, "hi", event.Body)
}

func TestDedupKeyDistinguishesKinds(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	text := ChatEvent{Kind: KindText, SenderID: 1, CreatedAt: at}
	first := ChatEvent{Kind: KindLocation, SenderID: 1, CreatedAt: at}
	second := ChatEvent{Kind: KindLocation, SenderID: 1, CreatedAt: at.Add(30 * time.Second)}

	assert.NotEqual(t, text.DedupKey(), first.DedupKey())
	// Two bodyless location updates inside one minute still share a key
	// with each other, by the same display-granularity rule as text.
	assert.Equal(t, first.DedupKey(), second.DedupKey())
}
