package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trade-chat/internal/mocks"
	"trade-chat/internal/models"
)

func newHistoryRouter(repo *mocks.MessageRepositoryMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHistoryHandler(repo, nil)
	router.GET("/api/trades/:trade_id/chat-rooms/:room_id/messages", handler.GetRoomMessages)
	router.POST("/api/trades/:trade_id/chat-rooms/:room_id/messages", handler.PostRoomMessage)
	return router
}

func TestGetRoomMessagesReturnsNewestFirst(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	repo.On("ListRoomMessages", mock.Anything, 3, 7).Return([]models.Message{
		{ID: 2, TradeID: 3, RoomID: 7, SenderID: 12, Sender: "bob", Body: "newer", CreatedAt: base.Add(time.Minute)},
		{ID: 1, TradeID: 3, RoomID: 7, SenderID: 11, Sender: "alice", Body: "older", CreatedAt: base},
	}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades/3/chat-rooms/7/messages", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "newer", resp.Messages[0].Body)
	assert.Equal(t, "older", resp.Messages[1].Body)
	repo.AssertExpectations(t)
}

func TestGetRoomMessagesRepoError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	repo.On("ListRoomMessages", mock.Anything, 3, 7).Return(nil, errors.New("db down"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades/3/chat-rooms/7/messages", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetRoomMessagesInvalidIDs(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	for _, path := range []string{
		"/api/trades/abc/chat-rooms/7/messages",
		"/api/trades/3/chat-rooms/xyz/messages",
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
	repo.AssertNotCalled(t, "ListRoomMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostRoomMessageStoresAndReturnsMessage(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	stored := models.Message{ID: 9, TradeID: 3, RoomID: 7, SenderID: 11, Sender: "alice", Body: "hello", CreatedAt: time.Now().UTC()}
	repo.On("CreateMessage", mock.Anything, 3, 7, 11, "alice", "hello").Return(stored, nil)

	body, _ := json.Marshal(gin.H{"sender_id": 11, "sender_name": "alice", "body": "hello"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades/3/chat-rooms/7/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 9, resp.ID)
	assert.Equal(t, "hello", resp.Body)
	repo.AssertExpectations(t)
}

func TestPostRoomMessageBlankBodyRejected(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	body, _ := json.Marshal(gin.H{"sender_id": 11, "body": "   "})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades/3/chat-rooms/7/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPostRoomMessageMissingFieldsRejected(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades/3/chat-rooms/7/messages", bytes.NewReader([]byte(`{"sender_name":"alice"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostRoomMessageRepoError(t *testing.T) {
	repo := new(mocks.MessageRepositoryMock)
	router := newHistoryRouter(repo)

	repo.On("CreateMessage", mock.Anything, 3, 7, 11, "", "hello").Return(models.Message{}, errors.New("db down"))

	body, _ := json.Marshal(gin.H{"sender_id": 11, "body": "hello"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/trades/3/chat-rooms/7/messages", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
