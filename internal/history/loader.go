// Package history fetches the persisted transcript for a room from the
// history API.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trade-chat/internal/models"
)

// Loader issues one bounded request per room activation. The API serves
// messages newest-first; Load normalizes to oldest-first, the order the
// transcript requires.
type Loader struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewLoader builds a Loader for the given API base URL. token, when
// non-empty, is sent as a bearer credential. timeout bounds each request.
func NewLoader(baseURL, token string, timeout time.Duration) *Loader {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Loader{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Load fetches the transcript for one room. Errors are non-fatal to the
// caller: a room view proceeds with an empty transcript.
func (l *Loader) Load(ctx context.Context, tradeID, roomID int) ([]models.ChatEvent, error) {
	url := fmt.Sprintf("%s/api/trades/%d/chat-rooms/%d/messages", l.baseURL, tradeID, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	// Newest-first from the API, oldest-first out.
	events := make([]models.ChatEvent, 0, len(payload.Messages))
	for i := len(payload.Messages) - 1; i >= 0; i-- {
		events = append(events, payload.Messages[i].Event())
	}
	return events, nil
}
