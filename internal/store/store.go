// Package store provides SQLite persistence for the scout: the durable record
// of events, registration decisions and sent digests. It is the sole source of
// truth across cycles; everything else the pipeline holds is transient.
//
// Every write is independently idempotent, keyed by identity key, so a crash
// mid-run leaves a consistent prefix of committed decisions and no multi-event
// transactions are needed.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raptor-ai/event-scout/internal/event"
)

// ErrUnavailable marks the store as unreachable at open time. Fatal to a run;
// nothing can proceed without durable state.
var ErrUnavailable = errors.New("state store unavailable")

// Store handles SQLite persistence. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a Store at the given path, creating the schema if needed.
// ":memory:" opens an in-memory database for tests; file databases use WAL.
// A leading "~/" expands to the user's home directory.
func Open(path string) (*Store, error) {
	connStr := path
	if path == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	} else {
		expanded, err := expandHome(path)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(expanded), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		connStr = expanded
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		identity_key TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		location_city TEXT,
		venue TEXT,
		start_time TEXT NOT NULL,
		is_free INTEGER NOT NULL DEFAULT 0,
		price TEXT,
		registration_url TEXT,
		source_url TEXT,
		platform TEXT NOT NULL,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		relevance_score REAL,
		keyword_component REAL,
		semantic_component REAL,
		location_component REAL,
		degraded_scoring INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_time);
	CREATE INDEX IF NOT EXISTS idx_events_platform ON events(platform);

	CREATE TABLE IF NOT EXISTS decisions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		identity_key TEXT NOT NULL,
		title TEXT,
		score REAL,
		eligible INTEGER NOT NULL,
		reason TEXT NOT NULL,
		success INTEGER NOT NULL DEFAULT 0,
		confirmation TEXT,
		error TEXT,
		decided_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_key ON decisions(identity_key);
	CREATE INDEX IF NOT EXISTS idx_decisions_decided ON decisions(decided_at);

	CREATE TABLE IF NOT EXISTS digests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channel TEXT NOT NULL,
		sent_at INTEGER NOT NULL,
		summary TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DecidedIdentityKeys returns every identity key with at least one gate
// decision on record. An event seen in an earlier cycle but never decided,
// because the run budget expired before gating reached it, is absent, so the
// next cycle scores and gates it again.
func (s *Store) DecidedIdentityKeys() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT DISTINCT identity_key FROM decisions")
	if err != nil {
		return nil, fmt.Errorf("querying decided keys: %w", err)
	}
	defer rows.Close()

	return collectKeys(rows)
}

// RegisteredIdentityKeys returns the identity keys with at least one
// successful registration on record.
func (s *Store) RegisteredIdentityKeys() (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT DISTINCT identity_key FROM decisions WHERE success = 1")
	if err != nil {
		return nil, fmt.Errorf("querying registered keys: %w", err)
	}
	defer rows.Close()

	return collectKeys(rows)
}

// RegistrationsInWindow counts successful registrations decided inside
// [start, end). Seeds the weekly counter at cycle start.
func (s *Store) RegistrationsInWindow(start, end time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM decisions WHERE success = 1 AND decided_at >= ? AND decided_at < ?",
		start.Unix(), end.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting registrations in window: %w", err)
	}
	return count, nil
}

// UpsertEvent inserts or refreshes an event. The most-recently-seen
// attributes win; first_seen is preserved from the original row.
func (s *Store) UpsertEvent(e event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO events (identity_key, title, description, location_city, venue,
			start_time, is_free, price, registration_url, source_url, platform,
			first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity_key) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			location_city = excluded.location_city,
			venue = excluded.venue,
			start_time = excluded.start_time,
			is_free = excluded.is_free,
			price = excluded.price,
			registration_url = excluded.registration_url,
			source_url = excluded.source_url,
			last_seen = excluded.last_seen
	`,
		e.IdentityKey, e.Title, e.Description, e.LocationCity, e.Venue,
		e.StartTime.UTC().Format(time.RFC3339), boolInt(e.IsFree), e.Price,
		e.RegistrationURL, e.SourceURL, string(e.Platform),
		e.FirstSeen.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting event %s: %w", e.IdentityKey, err)
	}
	return nil
}

// UpsertScore records the score breakdown for an already-upserted event.
func (s *Store) UpsertScore(se event.ScoredEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE events SET
			relevance_score = ?,
			keyword_component = ?,
			semantic_component = ?,
			location_component = ?,
			degraded_scoring = ?
		WHERE identity_key = ?
	`,
		se.Breakdown.Final, se.Breakdown.Keyword, se.Breakdown.Semantic,
		se.Breakdown.Location, boolInt(se.Degraded), se.IdentityKey,
	)
	if err != nil {
		return fmt.Errorf("recording score for %s: %w", se.IdentityKey, err)
	}
	return nil
}

// RecordDecision persists one gatekeeper decision, including any registration
// outcome and confirmation payload.
func (s *Store) RecordDecision(d event.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var success int
	var confirmation, errText string
	if d.Outcome != nil {
		success = boolInt(d.Outcome.Success)
		errText = d.Outcome.Err
		if len(d.Outcome.Confirmation) > 0 {
			data, err := json.Marshal(d.Outcome.Confirmation)
			if err != nil {
				return fmt.Errorf("encoding confirmation for %s: %w", d.IdentityKey, err)
			}
			confirmation = string(data)
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO decisions (identity_key, title, score, eligible, reason, success, confirmation, error, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.IdentityKey, d.Title, d.Score, boolInt(d.Eligible), string(d.Reason),
		success, confirmation, errText, d.DecidedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording decision for %s: %w", d.IdentityKey, err)
	}
	return nil
}

// RecordDigest records that a digest was handed to a channel.
func (s *Store) RecordDigest(channel, summary string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"INSERT INTO digests (channel, sent_at, summary) VALUES (?, ?, ?)",
		channel, sentAt.Unix(), summary,
	)
	if err != nil {
		return fmt.Errorf("recording digest: %w", err)
	}
	return nil
}

func collectKeys(rows *sql.Rows) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
