// Package store provides data persistence interfaces and implementations.
//
// Only static catalog data and aggregate learner counters are persisted.
// Conversation sessions live purely in memory and are never written here.
package store

import (
	"context"
	"time"

	"github.com/speakai-labs/speakai/internal/domain"
)

// Repository defines the interface for persisting catalog and learner data.
type Repository interface {
	// SeedScenarios inserts any catalog scenarios that are not already
	// present. Existing rows are left untouched so the catalog stays stable.
	SeedScenarios(ctx context.Context, scenarios []domain.Scenario) error

	// ListScenarios returns the full catalog in its fixed display order.
	ListScenarios(ctx context.Context) ([]domain.Scenario, error)

	// GetScenario retrieves one scenario by id. Returns nil if not found.
	GetScenario(ctx context.Context, id string) (*domain.Scenario, error)

	// GetProfile retrieves a learner profile. Returns nil if not found.
	GetProfile(ctx context.Context, userID string) (*domain.LearnerProfile, error)

	// UpsertProfile creates or updates a learner profile record.
	UpsertProfile(ctx context.Context, profile *domain.LearnerProfile) error

	// RecordLogin bumps the session counter and last-seen time for a learner.
	RecordLogin(ctx context.Context, userID string, at time.Time) error

	// RecordUtterance bumps the utterance counter and, when score beats the
	// stored best, the best score.
	RecordUtterance(ctx context.Context, userID string, score int, at time.Time) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
