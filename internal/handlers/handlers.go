package handlers

import (
	"context"

	"github.com/coursewise/coursewise/pkg/models"
)

// RecommendationEngine is the slice of the engine the HTTP layer consumes.
type RecommendationEngine interface {
	TrainModels(ctx context.Context) error
	RecommendForStudent(ctx context.Context, studentID string) (*models.RecommendationRecord, error)
	BatchRecommendations(ctx context.Context) (int, error)
	ClearCache(ctx context.Context)
	Trained() bool
}

// Handlers aggregates all HTTP handlers for router registration.
type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
}
