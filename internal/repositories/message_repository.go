package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"trade-chat/internal/models"
)

// MessageRepository defines interactions for persisted room messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, tradeID, roomID, senderID int, senderName, body string) (models.Message, error)
	ListRoomMessages(ctx context.Context, tradeID, roomID int) ([]models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores one text message for a trade room.
func (r *MessageRepo) CreateMessage(ctx context.Context, tradeID, roomID, senderID int, senderName, body string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (trade_id, room_id, sender_id, sender_name, body) VALUES ($1, $2, $3, $4, $5) RETURNING id, trade_id, room_id, sender_id, sender_name, body, created_at`, tradeID, roomID, senderID, senderName, body).
		Scan(&msg.ID, &msg.TradeID, &msg.RoomID, &msg.SenderID, &msg.Sender, &msg.Body, &msg.CreatedAt)
	return msg, err
}

// ListRoomMessages returns a room's transcript newest-first, the order the
// history API serves to clients.
func (r *MessageRepo) ListRoomMessages(ctx context.Context, tradeID, roomID int) ([]models.Message, error) {
	query := `SELECT id, trade_id, room_id, sender_id, sender_name, body, created_at
        FROM messages
        WHERE trade_id=$1 AND room_id=$2
        ORDER BY created_at DESC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, tradeID, roomID)
	return msgs, err
}
