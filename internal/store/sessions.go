// Package store provides durable storage for handoff: a JSON-backed session
// store and a SQLite-backed analytics event store.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"handoff/internal/logging"
)

// DefaultRetentionDays is the default age cutoff for session cleanup.
const DefaultRetentionDays = 30

// SessionRecord is one persisted session snapshot. The on-disk layout is one
// JSON document keyed by session id; unknown keys are ignored on read so the
// format stays backward compatible.
type SessionRecord struct {
	Context      string `json:"context"`
	Model        string `json:"model"`
	LastUpdated  string `json:"last_updated"` // ISO-8601
	MessageCount int    `json:"message_count"`
}

// SessionInfo is a listing entry for recent sessions.
type SessionInfo struct {
	ID           string
	Model        string
	LastUpdated  string
	MessageCount int
}

// SessionStore persists the latest compressed transcript and backend per
// session id. Writes rewrite the whole document atomically (temp file +
// rename) so a crash mid-write never corrupts other sessions' records.
type SessionStore struct {
	mu       sync.Mutex
	path     string
	sessions map[string]SessionRecord
}

// NewSessionStore loads (or creates) the session file at path. A corrupt file
// is treated as empty state and logged, never an error.
func NewSessionStore(path string) (*SessionStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	s := &SessionStore{
		path:     path,
		sessions: make(map[string]SessionRecord),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read sessions file: %w", err)
		}
		return s, nil
	}

	if err := json.Unmarshal(data, &s.sessions); err != nil {
		logging.Get(logging.CategoryStore).Warn("Corrupt sessions file %s, starting fresh: %v", path, err)
		s.sessions = make(map[string]SessionRecord)
	}

	return s, nil
}

// Save overwrites the record for the session unconditionally. The message
// count is derived from the context's newline count.
func (s *SessionStore) Save(sessionID, context, backend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = SessionRecord{
		Context:      context,
		Model:        backend,
		LastUpdated:  time.Now().Format(time.RFC3339),
		MessageCount: countLines(context),
	}

	return s.flushLocked()
}

// Restore returns the persisted context and backend for the session. The
// boolean is false when the session id has no record.
func (s *SessionStore) Restore(sessionID string) (string, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", "", false
	}
	return rec.Context, rec.Model, true
}

// ListRecent returns up to limit sessions sorted by last update, most recent
// first.
func (s *SessionStore) ListRecent(limit int) []SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]SessionInfo, 0, len(s.sessions))
	for id, rec := range s.sessions {
		infos = append(infos, SessionInfo{
			ID:           id,
			Model:        rec.Model,
			LastUpdated:  rec.LastUpdated,
			MessageCount: rec.MessageCount,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastUpdated > infos[j].LastUpdated
	})

	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	return infos
}

// Cleanup removes sessions older than the given number of days and returns
// how many were removed. A record whose timestamp cannot be parsed is treated
// as expired, not kept forever.
func (s *SessionStore) Cleanup(days int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0

	for id, rec := range s.sessions {
		lastUpdated, err := time.Parse(time.RFC3339, rec.LastUpdated)
		if err != nil || lastUpdated.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		if err := s.flushLocked(); err != nil {
			return removed, err
		}
		logging.Store("Cleaned up %d sessions older than %d days", removed, days)
	}
	return removed, nil
}

// flushLocked writes the whole document atomically. Caller holds s.mu.
func (s *SessionStore) flushLocked() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write sessions file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace sessions file: %w", err)
	}
	return nil
}

func countLines(s string) int {
	if s == "" {
		return 1 // strings.Split semantics: empty string is one line
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
