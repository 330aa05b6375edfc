// Package transcript merges a fetched history snapshot with the live event
// stream into one ordered, duplicate-free view of a room.
//
// Duplicate detection compares kind, sender, body and the minute-truncated
// timestamp, the same granularity the display format uses. Two distinct
// messages with identical bodies from one sender inside the same minute
// will therefore collapse into one entry; this matches the behavior of the
// system it replaces and is kept deliberately.
package transcript

import (
	"log"
	"sync"

	"trade-chat/internal/models"
)

// Transcript is the ordered event sequence for one room view. The zero
// value is not usable; call New.
type Transcript struct {
	mu        sync.Mutex
	events    []models.ChatEvent
	seen      map[string]struct{}
	seeded    bool
	seededLen int
	closed    bool
}

// New creates an empty transcript.
func New() *Transcript {
	return &Transcript{seen: make(map[string]struct{})}
}

// Init seeds the transcript with the history snapshot, oldest-first. The
// batch is prepended: live events that raced ahead of the fetch stay at the
// tail, and any of them already covering a history entry suppresses it.
// Only the first Init takes effect, and none after Teardown, so a history
// fetch resolving late cannot mutate a closed view.
func (t *Transcript) Init(history []models.ChatEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.seeded {
		return
	}
	t.seeded = true
	merged := make([]models.ChatEvent, 0, len(history)+len(t.events))
	for _, event := range history {
		if event.Kind == "" {
			continue
		}
		key := event.DedupKey()
		if _, dup := t.seen[key]; dup {
			continue
		}
		t.seen[key] = struct{}{}
		merged = append(merged, event)
	}
	t.seededLen = len(merged)
	t.events = append(merged, t.events...)
}

// Append adds one live event after the duplicate check, keeping timestamp
// order with ties broken by arrival. The already-rendered prefix is never
// re-sorted: an event is inserted at the latest position its timestamp
// allows. Reports whether the event was kept.
func (t *Transcript) Append(event models.ChatEvent) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	switch event.Kind {
	case models.KindText, models.KindLocation, models.KindSystem:
	default:
		log.Printf("transcript ignoring event of unknown kind %q", event.Kind)
		return false
	}

	// System notices are client-local; they never arrive twice, and their
	// keys would collide with each other, so they skip the duplicate check.
	if event.Kind != models.KindSystem {
		key := event.DedupKey()
		if _, dup := t.seen[key]; dup {
			return false
		}
		t.seen[key] = struct{}{}
	}

	// Common case: append at the tail. A straggler with an older timestamp
	// slides back only past strictly newer entries, and never into the
	// seeded history prefix.
	i := len(t.events)
	for i > t.seededLen && t.events[i-1].CreatedAt.After(event.CreatedAt) {
		i--
	}
	t.events = append(t.events, models.ChatEvent{})
	copy(t.events[i+1:], t.events[i:])
	t.events[i] = event
	return true
}

// Events returns a snapshot copy of the merged view, oldest-first.
func (t *Transcript) Events() []models.ChatEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]models.ChatEvent, len(t.events))
	copy(out, t.events)
	return out
}

// Len reports the number of entries.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Teardown discards the transcript. Init and Append become no-ops.
func (t *Transcript) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.events = nil
	t.seen = nil
}
