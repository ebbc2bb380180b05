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

type ChatSessionRepository struct {
	col *mongo.Collection
}

func NewChatSessionRepository(db *mongo.Database) *ChatSessionRepository {
	return &ChatSessionRepository{col: db.Collection("chat_sessions")}
}

// GetOrCreateByThread returns the session for (assistantID, threadID),
// creating it when absent. The upsert races safely across instances because
// the unique index on (assistant_id, metadata.thread_id) collapses
// concurrent creates into a single document.
func (r *ChatSessionRepository) GetOrCreateByThread(ctx context.Context, assistantID, threadID, fingerprint string) (*models.ChatSession, error) {
	now := time.Now().UTC()
	filter := bson.M{"assistant_id": assistantID, "metadata." + models.MetaThreadID: threadID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":         uuid.NewString(),
			"fingerprint": fingerprint,
			"metadata":    bson.M{models.MetaThreadID: threadID},
			"created_at":  now,
		},
		"$set": bson.M{"last_active_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var s models.ChatSession
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByThread returns the session mapped to threadID, nil if none exists.
func (r *ChatSessionRepository) FindByThread(ctx context.Context, assistantID, threadID string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.col.FindOne(ctx, bson.M{
		"assistant_id":                    assistantID,
		"metadata." + models.MetaThreadID: threadID,
	}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByIDAndFingerprint returns the session only if it belongs to the
// given fingerprint, nil if no such session exists.
func (r *ChatSessionRepository) FindByIDAndFingerprint(ctx context.Context, id, fingerprint string) (*models.ChatSession, error) {
	var s models.ChatSession
	err := r.col.FindOne(ctx, bson.M{"_id": id, "fingerprint": fingerprint}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByFingerprint returns sessions owned by fingerprint, most recently
// active first.
func (r *ChatSessionRepository) ListByFingerprint(ctx context.Context, fingerprint string, page, pageSize int) ([]models.ChatSession, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	filter := bson.M{"fingerprint": fingerprint}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "last_active_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var sessions []models.ChatSession
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// TouchLastActive bumps last_active_at; called on every run.
func (r *ChatSessionRepository) TouchLastActive(ctx context.Context, id string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_active_at": time.Now().UTC()}})
	return err
}

func (r *ChatSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
