package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"trade-chat/internal/models"
	"trade-chat/internal/repositories"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, tradeID, roomID, senderID int, senderName, body string) (models.Message, error) {
	args := m.Called(ctx, tradeID, roomID, senderID, senderName, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListRoomMessages(ctx context.Context, tradeID, roomID int) ([]models.Message, error) {
	args := m.Called(ctx, tradeID, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type HistoryLoaderMock struct {
	mock.Mock
}

func (m *HistoryLoaderMock) Load(ctx context.Context, tradeID, roomID int) ([]models.ChatEvent, error) {
	args := m.Called(ctx, tradeID, roomID)
	var events []models.ChatEvent
	if val := args.Get(0); val != nil {
		events = val.([]models.ChatEvent)
	}
	return events, args.Error(1)
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
