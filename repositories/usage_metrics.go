package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"chat-layer/models"
)

type UsageMetricRepository struct {
	col *mongo.Collection
}

func NewUsageMetricRepository(db *mongo.Database) *UsageMetricRepository {
	return &UsageMetricRepository{col: db.Collection("usage_metrics")}
}

func (r *UsageMetricRepository) Insert(ctx context.Context, m *models.UsageMetric) (*models.UsageMetric, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteBySession removes metrics for a deleted session.
func (r *UsageMetricRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"session_id": sessionID})
	return err
}

// UsageSummary is the aggregate view returned by the analytics endpoint.
type UsageSummary struct {
	TotalRuns     int64        `json:"total_runs"`
	FailedRuns    int64        `json:"failed_runs"`
	TotalTokens   int64        `json:"total_tokens"`
	AvgDurationMs float64      `json:"avg_duration_ms"`
	Daily         []DailyUsage `json:"daily"`
}

// DailyUsage is one day's bucket in the usage time series.
type DailyUsage struct {
	Date   string `bson:"_id" json:"date"`
	Runs   int64  `bson:"runs" json:"runs"`
	Tokens int64  `bson:"tokens" json:"tokens"`
}

// Summarize aggregates metrics in [from, to). An empty assistantID means
// all assistants.
func (r *UsageMetricRepository) Summarize(ctx context.Context, assistantID string, from, to time.Time) (*UsageSummary, error) {
	match := bson.M{"created_at": bson.M{"$gte": from, "$lt": to}}
	if assistantID != "" {
		match["assistant_id"] = assistantID
	}

	totalsPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"total_runs":   bson.M{"$sum": 1},
			"failed_runs":  bson.M{"$sum": bson.M{"$cond": bson.A{"$failed", 1, 0}}},
			"total_tokens": bson.M{"$sum": "$tokens_used"},
			"avg_duration": bson.M{"$avg": "$duration_ms"},
		}}},
	}

	cur, err := r.col.Aggregate(ctx, totalsPipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	summary := &UsageSummary{Daily: []DailyUsage{}}
	if cur.Next(ctx) {
		var row struct {
			TotalRuns   int64   `bson:"total_runs"`
			FailedRuns  int64   `bson:"failed_runs"`
			TotalTokens int64   `bson:"total_tokens"`
			AvgDuration float64 `bson:"avg_duration"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		summary.TotalRuns = row.TotalRuns
		summary.FailedRuns = row.FailedRuns
		summary.TotalTokens = row.TotalTokens
		summary.AvgDurationMs = row.AvgDuration
	}

	dailyPipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":    bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"runs":   bson.M{"$sum": 1},
			"tokens": bson.M{"$sum": "$tokens_used"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	dcur, err := r.col.Aggregate(ctx, dailyPipeline)
	if err != nil {
		return nil, err
	}
	defer dcur.Close(ctx)

	if err := dcur.All(ctx, &summary.Daily); err != nil {
		return nil, err
	}
	return summary, nil
}
