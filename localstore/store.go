// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package localstore is the on-device entity store: durable, typed record
// collections persisted in SQLite. Each collection is stored as one JSON
// document under a stable storage key and replaced atomically as a whole,
// so readers always observe either the previous or the next snapshot.
// The store carries no sync logic.
package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a SQLite database holding the serialized collections, the
// device identity and the local activity log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the store at path. Use ":memory:" for tests.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	store, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New initializes the store schema on an existing database handle.
func New(db *sql.DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := initializeDatabase(db); err != nil {
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func initializeDatabase(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	tables := []string{
		// One serialized collection per entity type.
		`CREATE TABLE IF NOT EXISTS _collections (
			storage_key  TEXT NOT NULL,
			payload      TEXT NOT NULL,
			updated_at   TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
			PRIMARY KEY (storage_key)
		)`,

		// Device identity (one row), generated on first launch.
		`CREATE TABLE IF NOT EXISTS _device_info (
			id         INTEGER NOT NULL CHECK (id = 1),
			device_id  TEXT NOT NULL,
			PRIMARY KEY (id)
		)`,

		// Append-only local activity log; never synced.
		`CREATE TABLE IF NOT EXISTS _activity_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			message    TEXT NOT NULL,
			device_id  TEXT NOT NULL DEFAULT '',
			at         TEXT NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := db.Exec(table); err != nil {
			return fmt.Errorf("failed to create store table: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureDeviceID generates and persists a device ID if not already present.
func (s *Store) EnsureDeviceID() (string, error) {
	var deviceID string
	err := s.db.QueryRow(`SELECT device_id FROM _device_info WHERE id = 1`).Scan(&deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		deviceID = uuid.New().String()
		if _, err := s.db.Exec(`INSERT INTO _device_info (id, device_id) VALUES (1, ?)`, deviceID); err != nil {
			return "", fmt.Errorf("failed to insert device info: %w", err)
		}
		return deviceID, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query device info: %w", err)
	}
	return deviceID, nil
}

// getRaw loads the serialized payload for a storage key.
// A missing key is not an error; it returns ok=false.
func (s *Store) getRaw(ctx context.Context, key string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM _collections WHERE storage_key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load collection %s: %w", key, err)
	}
	return []byte(payload), true, nil
}

// setRaw replaces the serialized payload for a storage key in one statement,
// so a concurrent reader sees either the old or the new snapshot.
func (s *Store) setRaw(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO _collections (storage_key, payload, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT (storage_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, key, string(payload))
	if err != nil {
		return fmt.Errorf("failed to store collection %s: %w", key, err)
	}
	return nil
}

// AppendActivity writes one activity log line.
func (s *Store) AppendActivity(ctx context.Context, kind, message, deviceID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO _activity_log (kind, message, device_id, at) VALUES (?, ?, ?, ?)
	`, kind, message, deviceID, at.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}
