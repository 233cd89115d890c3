// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// initializeSchema creates the business tables if they don't exist
func (s *Service) initializeSchema(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return s.initializeSchemaInTx(ctx, tx)
	})
}

// initializeSchemaInTx creates the business tables within an existing transaction.
// Every table is tenant-scoped; ids are server-assigned opaque tokens.
func (s *Service) initializeSchemaInTx(ctx context.Context, tx pgx.Tx) error {
	migrations := []string{
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS customers (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			phone      TEXT NOT NULL DEFAULT '',
			address    TEXT NOT NULL DEFAULT '',
			notes      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS customers_tenant_idx ON customers(tenant_id)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS employees (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			phone      TEXT NOT NULL DEFAULT '',
			role       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS employees_tenant_idx ON employees(tenant_id)`,

		// Preset extras are a small embedded list, stored as a JSON document
		// rather than a child table.
		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS extras_presets (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			extras     JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS extras_presets_tenant_idx ON extras_presets(tenant_id)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS orders (
			id                   TEXT PRIMARY KEY,
			tenant_id            TEXT NOT NULL,
			customer_id          TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
			assigned_employee_id TEXT REFERENCES employees(id) ON DELETE SET NULL,
			status               TEXT NOT NULL DEFAULT 'open',
			due_date             TIMESTAMPTZ,
			notes                TEXT NOT NULL DEFAULT '',
			created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS orders_tenant_idx ON orders(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders(customer_id)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS order_items (
			id       TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			garment  TEXT NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			price    NUMERIC(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items(order_id)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS order_item_extras (
			id      TEXT PRIMARY KEY,
			item_id TEXT NOT NULL REFERENCES order_items(id) ON DELETE CASCADE,
			name    TEXT NOT NULL,
			price   NUMERIC(12,2) NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS order_item_extras_item_idx ON order_item_extras(item_id)`,

		/*language=postgresql*/ `CREATE TABLE IF NOT EXISTS payments (
			id          TEXT PRIMARY KEY,
			tenant_id   TEXT NOT NULL,
			order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			customer_id TEXT NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
			amount      NUMERIC(12,2) NOT NULL,
			method      TEXT NOT NULL,
			notes       TEXT NOT NULL DEFAULT '',
			paid_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS payments_tenant_idx ON payments(tenant_id)`,
		`CREATE INDEX IF NOT EXISTS payments_order_idx ON payments(order_id)`,
	}

	for i, migration := range migrations {
		if _, err := tx.Exec(ctx, migration); err != nil {
			return fmt.Errorf("schema migration %d failed: %w", i+1, err)
		}
	}
	s.logger.Info("Business schema initialized successfully", "migrations", len(migrations))

	return nil
}
