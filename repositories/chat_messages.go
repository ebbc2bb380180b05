package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-layer/models"
)

// ErrDuplicateMessage reports an insert that collided with the unique
// (session_id, metadata.remote_message_id) index. Callers treat it as
// "already recorded", not as a failure.
var ErrDuplicateMessage = errors.New("chat message already recorded")

type ChatMessageRepository struct {
	col *mongo.Collection
}

func NewChatMessageRepository(db *mongo.Database) *ChatMessageRepository {
	return &ChatMessageRepository{col: db.Collection("chat_messages")}
}

// Insert persists a message. A zero ID or CreatedAt is filled in here so
// callers only describe content. Unique index violations surface as
// ErrDuplicateMessage.
func (r *ChatMessageRepository) Insert(ctx context.Context, m *models.ChatMessage) (*models.ChatMessage, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateMessage
		}
		return nil, err
	}
	return m, nil
}

// FindBySessionAndRemoteID looks up a reconciled message, nil if absent.
func (r *ChatMessageRepository) FindBySessionAndRemoteID(ctx context.Context, sessionID, remoteID string) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := r.col.FindOne(ctx, bson.M{
		"session_id":                             sessionID,
		"metadata." + models.MetaRemoteMessageID: remoteID,
	}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListBySession returns all messages of a session in creation order.
func (r *ChatMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.ChatMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteBySession removes all messages of a session (cascade of session delete).
func (r *ChatMessageRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
