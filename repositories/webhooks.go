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

type WebhookRepository struct {
	col *mongo.Collection
}

func NewWebhookRepository(db *mongo.Database) *WebhookRepository {
	return &WebhookRepository{col: db.Collection("webhooks")}
}

func (r *WebhookRepository) Insert(ctx context.Context, w *models.WebhookEndpoint) (*models.WebhookEndpoint, error) {
	now := time.Now().UTC()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = models.WebhookStatusActive
	}
	w.Active = w.Status == models.WebhookStatusActive
	w.CreatedAt = now
	w.UpdatedAt = now
	if _, err := r.col.InsertOne(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *WebhookRepository) FindByID(ctx context.Context, id string) (*models.WebhookEndpoint, error) {
	var w models.WebhookEndpoint
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&w)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WebhookRepository) List(ctx context.Context) ([]models.WebhookEndpoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.WebhookEndpoint
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveForEvent returns active endpoints subscribed to eventType.
func (r *WebhookRepository) ListActiveForEvent(ctx context.Context, eventType string) ([]models.WebhookEndpoint, error) {
	cur, err := r.col.Find(ctx, bson.M{"active": true, "events": eventType})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.WebhookEndpoint
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *WebhookRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// RecordDelivery updates an endpoint after a delivery attempt. Success
// resets the failure counter; failures increment it with $inc so concurrent
// deliveries never lose a count, and the endpoint is marked failed once the
// counter reaches the cap.
func (r *WebhookRepository) RecordDelivery(ctx context.Context, id string, success bool, deliveryErr string) error {
	now := time.Now().UTC()
	if success {
		_, err := r.col.UpdateByID(ctx, id, deliverySuccessUpdate(now))
		return err
	}

	var updated models.WebhookEndpoint
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, deliveryFailureUpdate(deliveryErr, now),
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	if updated.FailureCount >= models.MaxWebhookFailures {
		_, err = r.col.UpdateOne(ctx, deactivationFilter(id), deactivationUpdate(now))
		return err
	}
	return nil
}

func deliverySuccessUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"failure_count":       0,
		"last_delivery_at":    now,
		"metadata.last_error": nil,
		"updated_at":          now,
	}}
}

func deliveryFailureUpdate(deliveryErr string, now time.Time) bson.M {
	return bson.M{
		"$inc": bson.M{"failure_count": 1},
		"$set": bson.M{
			"metadata.last_error": deliveryErr,
			"updated_at":          now,
		},
	}
}

// deactivationFilter only matches while the failure streak still stands; a
// success racing in keeps the endpoint active.
func deactivationFilter(id string) bson.M {
	return bson.M{"_id": id, "failure_count": bson.M{"$gte": models.MaxWebhookFailures}}
}

func deactivationUpdate(now time.Time) bson.M {
	return bson.M{"$set": bson.M{
		"status":     models.WebhookStatusFailed,
		"active":     false,
		"updated_at": now,
	}}
}
