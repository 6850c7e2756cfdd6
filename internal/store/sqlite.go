package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/speakai-labs/speakai/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	profileMu sync.Mutex // serializes profile writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS scenarios (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		context TEXT NOT NULL,
		customer_opening TEXT NOT NULL,
		assistant_opening TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scenarios_position ON scenarios(position);

	CREATE TABLE IF NOT EXISTS learner_profiles (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		utterance_count INTEGER NOT NULL DEFAULT 0,
		session_count INTEGER NOT NULL DEFAULT 0,
		best_score INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_profiles_last_seen ON learner_profiles(last_seen_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SeedScenarios inserts catalog scenarios that are not already present.
func (s *SQLiteStore) SeedScenarios(ctx context.Context, scenarios []domain.Scenario) error {
	query := `
	INSERT INTO scenarios (id, position, name, description, context, customer_opening, assistant_opening)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO NOTHING`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, sc := range scenarios {
		if _, err := tx.ExecContext(ctx, query,
			sc.ID, i, sc.Name, sc.Description, sc.Context,
			sc.CustomerOpening, sc.AssistantOpening,
		); err != nil {
			return fmt.Errorf("seed scenario %s: %w", sc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scenario seed: %w", err)
	}
	return nil
}

// ListScenarios returns the full catalog ordered by position.
func (s *SQLiteStore) ListScenarios(ctx context.Context) ([]domain.Scenario, error) {
	query := `
		SELECT id, name, description, context, customer_opening, assistant_opening
		FROM scenarios ORDER BY position`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close scenario rows", "error", closeErr)
		}
	}()

	var scenarios []domain.Scenario
	for rows.Next() {
		var sc domain.Scenario
		if err := rows.Scan(
			&sc.ID, &sc.Name, &sc.Description, &sc.Context,
			&sc.CustomerOpening, &sc.AssistantOpening,
		); err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		scenarios = append(scenarios, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}

	return scenarios, nil
}

// GetScenario retrieves one scenario by id.
func (s *SQLiteStore) GetScenario(ctx context.Context, id string) (*domain.Scenario, error) {
	query := `
		SELECT id, name, description, context, customer_opening, assistant_opening
		FROM scenarios WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)

	var sc domain.Scenario
	err := row.Scan(
		&sc.ID, &sc.Name, &sc.Description, &sc.Context,
		&sc.CustomerOpening, &sc.AssistantOpening,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan scenario row: %w", err)
	}

	return &sc, nil
}

// GetProfile retrieves a learner profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*domain.LearnerProfile, error) {
	query := `
		SELECT user_id, username, utterance_count, session_count, best_score,
		       last_seen_at, created_at, updated_at
		FROM learner_profiles WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var p domain.LearnerProfile
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&p.UserID, &p.Username, &p.UtteranceCount, &p.SessionCount,
		&p.BestScore, &lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}

	p.LastSeenAt = time.Unix(lastSeen, 0)
	p.CreatedAt = time.Unix(createdAt, 0)
	p.UpdatedAt = time.Unix(updatedAt, 0)

	return &p, nil
}

// UpsertProfile creates or updates a learner profile record.
func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *domain.LearnerProfile) error {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	query := `
	INSERT INTO learner_profiles (
		user_id, username, utterance_count, session_count, best_score,
		last_seen_at, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		profile.UserID, profile.Username,
		profile.UtteranceCount, profile.SessionCount, profile.BestScore,
		profile.LastSeenAt.Unix(), profile.CreatedAt.Unix(), profile.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// RecordLogin bumps the session counter and last-seen time for a learner.
func (s *SQLiteStore) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	return s.withBusyRetry(ctx, "RecordLogin", userID, func() error {
		s.profileMu.Lock()
		defer s.profileMu.Unlock()

		query := `
			UPDATE learner_profiles
			SET session_count = session_count + 1, last_seen_at = ?, updated_at = ?
			WHERE user_id = ?`
		result, err := s.db.ExecContext(ctx, query, at.Unix(), time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("record login: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("RecordLogin affected 0 rows", "user_id", userID)
		}
		return nil
	})
}

// RecordUtterance bumps the utterance counter and best score for a learner.
func (s *SQLiteStore) RecordUtterance(ctx context.Context, userID string, score int, at time.Time) error {
	return s.withBusyRetry(ctx, "RecordUtterance", userID, func() error {
		s.profileMu.Lock()
		defer s.profileMu.Unlock()

		query := `
			UPDATE learner_profiles
			SET utterance_count = utterance_count + 1,
			    best_score = MAX(best_score, ?),
			    last_seen_at = ?, updated_at = ?
			WHERE user_id = ?`
		result, err := s.db.ExecContext(ctx, query, score, at.Unix(), time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("record utterance: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("RecordUtterance affected 0 rows", "user_id", userID)
		}
		return nil
	})
}

// withBusyRetry retries an operation with exponential backoff when SQLite
// reports a concurrency conflict (SQLITE_BUSY / "database is locked").
func (s *SQLiteStore) withBusyRetry(ctx context.Context, op, userID string, fn func() error) error {
	const maxRetries = 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isSQLiteConflict(err) || i == maxRetries-1 {
			break
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("sqlite busy, retrying", "op", op, "user_id", userID, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s for %s failed: %w", op, userID, err)
}

// isSQLiteConflict reports whether err is a SQLite concurrency error that
// warrants a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
