package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-layer/models"
)

type SuggestionRepository struct {
	col *mongo.Collection
}

func NewSuggestionRepository(db *mongo.Database) *SuggestionRepository {
	return &SuggestionRepository{col: db.Collection("suggestions")}
}

func (r *SuggestionRepository) InsertMany(ctx context.Context, sessionID string, suggestions []string) error {
	if len(suggestions) == 0 {
		return nil
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(suggestions))
	for _, s := range suggestions {
		docs = append(docs, models.FollowUpSuggestion{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			Suggestion: s,
			CreatedAt:  now,
		})
	}
	_, err := r.col.InsertMany(ctx, docs)
	return err
}

// ListBySession returns the most recent suggestions for a session.
func (r *SuggestionRepository) ListBySession(ctx context.Context, sessionID string, limit int) ([]models.FollowUpSuggestion, error) {
	if limit <= 0 {
		limit = 3
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.FollowUpSuggestion
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBySession removes suggestions for a deleted session.
func (r *SuggestionRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"session_id": sessionID})
	return err
}
