package services

import (
	"context"
	"time"

	"chat-layer/cmd/api/dto"
	"chat-layer/repositories"
)

// AnalyticsService exposes usage rollups for the admin dashboard.
type AnalyticsService struct {
	metrics *repositories.UsageMetricRepository
}

func NewAnalyticsService(metrics *repositories.UsageMetricRepository) *AnalyticsService {
	return &AnalyticsService{metrics: metrics}
}

// UsageSummary aggregates run metrics for one assistant over [from, to).
// A zero window defaults to the last 30 days.
func (s *AnalyticsService) UsageSummary(ctx context.Context, assistantID string, from, to time.Time) (*dto.UsageSummaryDTO, error) {
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	summary, err := s.metrics.Summarize(ctx, assistantID, from, to)
	if err != nil {
		return nil, err
	}
	return &dto.UsageSummaryDTO{
		AssistantID:   assistantID,
		From:          from,
		To:            to,
		TotalRuns:     summary.TotalRuns,
		FailedRuns:    summary.FailedRuns,
		TotalTokens:   summary.TotalTokens,
		AvgDurationMs: summary.AvgDurationMs,
		Daily:         summary.Daily,
	}, nil
}
