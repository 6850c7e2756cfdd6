package domain

import (
	"time"
)

// LearnerProfile holds cross-session practice counters for a learner.
// Conversations themselves are never persisted; only these aggregates are.
type LearnerProfile struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	UtteranceCount int       `json:"utterance_count"`
	SessionCount   int       `json:"session_count"`
	BestScore      int       `json:"best_score"`
	LastSeenAt     time.Time `json:"last_seen_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
