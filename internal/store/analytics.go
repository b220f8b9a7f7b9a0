package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"handoff/internal/logging"
)

// ErrNoEvents is returned when feedback arrives for a session that has no
// recorded optimization events.
var ErrNoEvents = errors.New("no events recorded for session")

// =============================================================================
// Analytics Event Store
// =============================================================================

// SegmentRecord is the serialized form of a context segment retained inside
// an analytics event.
type SegmentRecord struct {
	Content         string  `json:"content"`
	SegmentType     string  `json:"segment_type"`
	ImportanceScore float64 `json:"importance_score"`
}

// ContextEvent is one immutable record of a single optimization. Events are
// never mutated after insert.
type ContextEvent struct {
	SessionID        string
	Timestamp        time.Time
	SourceBackend    string
	TargetBackend    string
	OriginalLength   int
	OptimizedLength  int
	CompressionRatio float64
	QualityScore     float64
	Segments         []SegmentRecord
	UserFeedback     *float64 // 1-5 rating when provided
	ExecutionTimeMs  float64
}

// EventStore is the append-only SQLite table of context events. Safe for
// concurrent appends from multiple sessions.
type EventStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewEventStore initializes the SQLite database at the given path. Use
// ":memory:" for tests.
func NewEventStore(path string) (*EventStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &EventStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the events table and its secondary indexes.
func (s *EventStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS context_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		source_model TEXT NOT NULL,
		target_model TEXT NOT NULL,
		original_length INTEGER NOT NULL,
		optimized_length INTEGER NOT NULL,
		compression_ratio REAL NOT NULL,
		quality_score REAL NOT NULL,
		segments TEXT NOT NULL,
		user_feedback REAL,
		execution_time_ms REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_session_timestamp ON context_events(session_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_model_pair ON context_events(source_model, target_model);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StoreEvent appends one optimization event.
func (s *EventStore) StoreEvent(ev ContextEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	segments, err := json.Marshal(ev.Segments)
	if err != nil {
		return fmt.Errorf("failed to serialize segments: %w", err)
	}

	var feedback interface{}
	if ev.UserFeedback != nil {
		feedback = *ev.UserFeedback
	}

	_, err = s.db.Exec(
		`INSERT INTO context_events
		 (session_id, timestamp, source_model, target_model,
		  original_length, optimized_length, compression_ratio,
		  quality_score, segments, user_feedback, execution_time_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.Timestamp.Format(time.RFC3339Nano),
		ev.SourceBackend, ev.TargetBackend,
		ev.OriginalLength, ev.OptimizedLength, ev.CompressionRatio,
		ev.QualityScore, string(segments), feedback, ev.ExecutionTimeMs,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to store context event: %v", err)
		return err
	}

	logging.StoreDebug("Stored context event: session=%s %s->%s ratio=%.2f",
		ev.SessionID, ev.SourceBackend, ev.TargetBackend, ev.CompressionRatio)
	return nil
}

// GetEvents returns events within the look-back window, newest first. An
// empty sessionID matches all sessions.
func (s *EventStore) GetEvents(sessionID string, daysBack int) ([]ContextEvent, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetEvents")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -daysBack).Format(time.RFC3339Nano)

	query := `SELECT session_id, timestamp, source_model, target_model,
	                 original_length, optimized_length, compression_ratio,
	                 quality_score, segments, user_feedback, execution_time_ms
	          FROM context_events WHERE timestamp >= ?`
	args := []interface{}{cutoff}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY timestamp DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []ContextEvent
	for rows.Next() {
		var ev ContextEvent
		var ts, segments string
		var feedback sql.NullFloat64
		if err := rows.Scan(&ev.SessionID, &ts, &ev.SourceBackend, &ev.TargetBackend,
			&ev.OriginalLength, &ev.OptimizedLength, &ev.CompressionRatio,
			&ev.QualityScore, &segments, &feedback, &ev.ExecutionTimeMs); err != nil {
			continue
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if err := json.Unmarshal([]byte(segments), &ev.Segments); err != nil {
			logging.StoreDebug("Skipping malformed segments for session %s: %v", ev.SessionID, err)
		}
		if feedback.Valid {
			v := feedback.Float64
			ev.UserFeedback = &v
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

// RecordFeedback attaches a user rating to the most recent event of a
// session. Feedback arrives after the fact, so this is the one sanctioned
// update on the otherwise append-only table.
func (s *EventStore) RecordFeedback(sessionID string, rating float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE context_events SET user_feedback = ?
		 WHERE id = (SELECT id FROM context_events WHERE session_id = ? ORDER BY timestamp DESC LIMIT 1)`,
		rating, sessionID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNoEvents, sessionID)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *EventStore) Close() error {
	return s.db.Close()
}
