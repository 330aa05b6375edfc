package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNormalizesNewestFirst(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/trades/9/chat-rooms/42/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Newest-first, as the API serves it.
		w.Write([]byte(`{"messages":[
            {"id":2,"trade_id":9,"room_id":42,"sender_id":1,"sender_name":"a","body":"second","created_at":"2025-03-14T10:01:00Z"},
            {"id":1,"trade_id":9,"room_id":42,"sender_id":1,"sender_name":"a","body":"first","created_at":"2025-03-14T10:00:00Z"}
        ]}`))
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "tok123", time.Second)
	events, err := loader.Load(context.Background(), 9, 42)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "first", events[0].Body)
	assert.Equal(t, "second", events[1].Body)
	assert.True(t, events[0].CreatedAt.Before(events[1].CreatedAt))
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestLoadEmptyRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "", time.Second)
	events, err := loader.Load(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	loader := NewLoader(srv.URL, "", time.Second)
	_, err := loader.Load(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestLoadServerUnreachable(t *testing.T) {
	loader := NewLoader("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := loader.Load(context.Background(), 1, 2)
	assert.Error(t, err)
}

func TestLoadCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(srv.URL, "", time.Second)
	_, err := loader.Load(ctx, 1, 2)
	assert.Error(t, err)
}
