// Package client implements the consumer side of the relay: a managed
// websocket connection with automatic reconnect, topic subscriptions that
// survive reconnection, and best-effort publishing.
package client

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"trade-chat/internal/models"
	"trade-chat/internal/observability"
)

// ErrNotConnected reports a publish attempted without an established
// connection. The send is a no-op; callers may retry once reconnected.
var ErrNotConnected = errors.New("not connected to relay")

// State of the managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Handler consumes one inbound event for a subscribed topic.
type Handler func(event models.ChatEvent)

// Options configure a ConnManager.
type Options struct {
	// URL is the relay websocket endpoint, e.g. ws://host:8083/ws.
	URL string
	// Room optionally scopes the connection to a room at connect time.
	Room string
	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
}

// ConnManager owns one long-lived relay connection. Subscriptions are held
// in a replay list: the read loop consults it after every (re)connect, so a
// subscription registered before the first connect, or before a drop, keeps
// receiving events without re-registration.
type ConnManager struct {
	opts Options

	mu     sync.Mutex
	state  State
	ws     *websocket.Conn
	subs   map[string]Handler
	cancel context.CancelFunc
	done   chan struct{}

	writeMu sync.Mutex
}

// NewConnManager builds an unconnected manager.
func NewConnManager(opts Options) *ConnManager {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	return &ConnManager{
		opts:  opts,
		state: StateDisconnected,
		subs:  make(map[string]Handler),
	}
}

// State reports the current connection state.
func (m *ConnManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers the handler for a topic. The registration persists
// across reconnects until Unsubscribe or Disconnect. A second Subscribe for
// the same topic replaces the handler.
func (m *ConnManager) Subscribe(topic string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[topic] = handler
}

// Unsubscribe removes the handler for a topic.
func (m *ConnManager) Unsubscribe(topic string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, topic)
}

// Publish sends one event addressed to topic. While the connection is down
// the send is dropped: it logs, counts, and returns ErrNotConnected, with
// no outbound buffering across drops.
func (m *ConnManager) Publish(topic string, event models.ChatEvent) error {
	m.mu.Lock()
	ws := m.ws
	state := m.state
	m.mu.Unlock()

	if state != StateConnected || ws == nil {
		log.Printf("publish to %q rejected: %s", topic, state)
		observability.IncRejectedPublish()
		return ErrNotConnected
	}

	frame, err := models.NewFrame(topic, event)
	if err != nil {
		return err
	}
	payload, err := frame.Marshal()
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("publish to %q failed: %v", topic, err)
		return err
	}
	return nil
}

// Connect establishes the connection and starts the retry loop. It returns
// once the loop is running; delivery begins as soon as a dial succeeds.
// Calling Connect on an already-running manager is a no-op.
func (m *ConnManager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateConnecting
	m.mu.Unlock()

	go m.run(runCtx)
}

// Disconnect tears down the transport and cancels any pending reconnect.
// The manager ends in StateDisconnected, terminal until the next Connect.
func (m *ConnManager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	ws := m.ws
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if ws != nil {
		ws.Close()
	}
	<-done
}

func (m *ConnManager) run(ctx context.Context) {
	defer func() {
		m.mu.Lock()
		if m.ws != nil {
			m.ws.Close()
			m.ws = nil
		}
		m.state = StateDisconnected
		done := m.done
		m.mu.Unlock()
		close(done)
	}()

	for {
		ws, _, err := websocket.DefaultDialer.DialContext(ctx, m.dialURL(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("relay dial failed, retrying in %s: %v", m.opts.ReconnectDelay, err)
			if !m.wait(ctx) {
				return
			}
			continue
		}

		// Disconnect may have raced the dial: its cancel can land after
		// DialContext hands back a live socket it never saw.
		if ctx.Err() != nil {
			ws.Close()
			return
		}

		m.mu.Lock()
		m.ws = ws
		m.state = StateConnected
		m.mu.Unlock()
		log.Printf("connected to relay at %s", m.opts.URL)

		// Cancellation must unblock the read loop even when Disconnect
		// captured a nil socket.
		readDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				ws.Close()
			case <-readDone:
			}
		}()
		m.readLoop(ctx, ws)
		close(readDone)

		if ctx.Err() != nil {
			return
		}

		m.mu.Lock()
		m.ws = nil
		m.state = StateDropped
		m.mu.Unlock()
		observability.IncReconnect()
		log.Printf("relay connection dropped, reconnecting in %s", m.opts.ReconnectDelay)
		if !m.wait(ctx) {
			return
		}
		m.mu.Lock()
		m.state = StateConnecting
		m.mu.Unlock()
	}
}

func (m *ConnManager) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			ws.Close()
			return
		}

		frame, err := models.UnmarshalFrame(data)
		if err != nil {
			log.Printf("dropping malformed frame: %v", err)
			continue
		}

		m.mu.Lock()
		handler := m.subs[frame.Topic]
		m.mu.Unlock()
		if handler == nil {
			continue
		}

		event, err := frame.Decode()
		if err != nil {
			log.Printf("dropping undecodable event on %q: %v", frame.Topic, err)
			continue
		}
		handler(event)
	}
}

func (m *ConnManager) wait(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.opts.ReconnectDelay):
		return true
	}
}

func (m *ConnManager) dialURL() string {
	if m.opts.Room == "" {
		return m.opts.URL
	}
	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return m.opts.URL
	}
	q := u.Query()
	q.Set("board_id", m.opts.Room)
	u.RawQuery = q.Encode()
	return u.String()
}
