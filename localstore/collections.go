// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// Stable storage keys, one per entity collection.
const (
	KeyCustomers = "customers"
	KeyEmployees = "employees"
	KeyOrders    = "orders"
	KeyPayments  = "payments"
	KeyPresets   = "extras_presets"
)

// Collection is a typed view over one serialized collection.
type Collection[T any] struct {
	store *Store
	key   string
}

// NewCollection binds a typed collection to its storage key.
func NewCollection[T any](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Load returns the current snapshot. A collection that was never written
// loads as an empty slice, not an error.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	payload, ok, err := c.store.getRaw(ctx, c.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []T{}, nil
	}
	var recs []T
	if err := json.Unmarshal(payload, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", c.key, err)
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

// Replace overwrites the whole collection atomically.
func (c *Collection[T]) Replace(ctx context.Context, recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	payload, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", c.key, err)
	}
	return c.store.setRaw(ctx, c.key, payload)
}

// Collections bundles the typed views the sync coordinator works with.
type Collections struct {
	Customers *Collection[ledger.Customer]
	Employees *Collection[ledger.Employee]
	Orders    *Collection[ledger.Order]
	Payments  *Collection[ledger.Payment]
	Presets   *Collection[ledger.ExtrasPreset]
}

// Collections returns the typed collection views for the store.
func (s *Store) Collections() *Collections {
	return &Collections{
		Customers: NewCollection[ledger.Customer](s, KeyCustomers),
		Employees: NewCollection[ledger.Employee](s, KeyEmployees),
		Orders:    NewCollection[ledger.Order](s, KeyOrders),
		Payments:  NewCollection[ledger.Payment](s, KeyPayments),
		Presets:   NewCollection[ledger.ExtrasPreset](s, KeyPresets),
	}
}

// RecentActivity returns up to limit activity entries, newest first.
func (s *Store) RecentActivity(ctx context.Context, limit int) ([]ledger.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, message, device_id, at
		FROM _activity_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	var entries []ledger.ActivityEntry
	for rows.Next() {
		var entry ledger.ActivityEntry
		var kind, at string
		if err := rows.Scan(&entry.ID, &kind, &entry.Message, &entry.DeviceID, &at); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entry.Kind = ledger.ActivityKind(kind)
		ts, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse activity timestamp: %w", err)
		}
		entry.At = ts
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity: %w", err)
	}
	return entries, nil
}
