// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend is the authoritative store behind the sync gateway: a
// tenant-scoped CRUD service over Postgres. It assigns every record its
// permanent id; clients never submit ids on create.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// ErrNotFound is returned when a record does not exist within the tenant.
var ErrNotFound = errors.New("record not found")

// RefError reports a create/update whose foreign reference does not resolve
// within the tenant. Handlers map it to 422 so clients can tell a rejected
// record from a transport problem.
type RefError struct {
	Field string
	Value string
}

func (e *RefError) Error() string {
	return fmt.Sprintf("unknown %s reference: %s", e.Field, e.Value)
}

// Service provides tenant-scoped CRUD over the business tables.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a service from an existing pool and initializes the
// database schema.
func NewService(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{pool: pool, logger: logger}
	if err := s.initializeSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// newID mints a server-assigned id with a collection prefix, e.g.
// "cust_1d8a...". The prefix is cosmetic; ids are opaque to clients.
func newID(prefix string) ledger.RecordID {
	return ledger.RemoteID(prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("bad numeric value %q: %w", s, err)
	}
	return d, nil
}

// refExists checks that the referenced row exists within the tenant.
func (s *Service) refExists(ctx context.Context, table, id, tenantID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM `+table+` WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// --- Customers ---

func (s *Service) ListCustomers(ctx context.Context, tenantID string) ([]ledger.Customer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, phone, address, notes, created_at
		 FROM customers WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	recs := []ledger.Customer{}
	for rows.Next() {
		var c ledger.Customer
		var id string
		if err := rows.Scan(&id, &c.Name, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.ID = ledger.RemoteID(id)
		recs = append(recs, c)
	}
	return recs, rows.Err()
}

func (s *Service) CreateCustomer(ctx context.Context, tenantID string, c ledger.Customer) (ledger.Customer, error) {
	c.ID = newID("cust")
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customers (id, tenant_id, name, phone, address, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID.Token(), tenantID, c.Name, c.Phone, c.Address, c.Notes, c.CreatedAt)
	if err != nil {
		return ledger.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, tenantID, id string, c ledger.Customer) (ledger.Customer, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET name = $3, phone = $4, address = $5, notes = $6
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, c.Name, c.Phone, c.Address, c.Notes)
	if err != nil {
		return ledger.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Customer{}, ErrNotFound
	}
	c.ID = ledger.RemoteID(id)
	return c, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM customers WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Employees ---

func (s *Service) ListEmployees(ctx context.Context, tenantID string) ([]ledger.Employee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, phone, role, created_at
		 FROM employees WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	recs := []ledger.Employee{}
	for rows.Next() {
		var e ledger.Employee
		var id string
		if err := rows.Scan(&id, &e.Name, &e.Phone, &e.Role, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		e.ID = ledger.RemoteID(id)
		recs = append(recs, e)
	}
	return recs, rows.Err()
}

func (s *Service) CreateEmployee(ctx context.Context, tenantID string, e ledger.Employee) (ledger.Employee, error) {
	e.ID = newID("emp")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO employees (id, tenant_id, name, phone, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID.Token(), tenantID, e.Name, e.Phone, e.Role, e.CreatedAt)
	if err != nil {
		return ledger.Employee{}, fmt.Errorf("create employee: %w", err)
	}
	return e, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, tenantID, id string, e ledger.Employee) (ledger.Employee, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE employees SET name = $3, phone = $4, role = $5
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, e.Name, e.Phone, e.Role)
	if err != nil {
		return ledger.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Employee{}, ErrNotFound
	}
	e.ID = ledger.RemoteID(id)
	return e, nil
}

func (s *Service) DeleteEmployee(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM employees WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Extras presets ---

func (s *Service) ListPresets(ctx context.Context, tenantID string) ([]ledger.ExtrasPreset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, extras, created_at
		 FROM extras_presets WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	recs := []ledger.ExtrasPreset{}
	for rows.Next() {
		var p ledger.ExtrasPreset
		var id string
		var extras []byte
		if err := rows.Scan(&id, &p.Name, &extras, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		if err := json.Unmarshal(extras, &p.Extras); err != nil {
			return nil, fmt.Errorf("decode preset extras: %w", err)
		}
		p.ID = ledger.RemoteID(id)
		recs = append(recs, p)
	}
	return recs, rows.Err()
}

func (s *Service) CreatePreset(ctx context.Context, tenantID string, p ledger.ExtrasPreset) (ledger.ExtrasPreset, error) {
	p.ID = newID("prs")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	extras, err := json.Marshal(p.Extras)
	if err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("encode preset extras: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO extras_presets (id, tenant_id, name, extras, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID.Token(), tenantID, p.Name, extras, p.CreatedAt)
	if err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("create preset: %w", err)
	}
	return p, nil
}

func (s *Service) UpdatePreset(ctx context.Context, tenantID, id string, p ledger.ExtrasPreset) (ledger.ExtrasPreset, error) {
	extras, err := json.Marshal(p.Extras)
	if err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("encode preset extras: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE extras_presets SET name = $3, extras = $4
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, p.Name, extras)
	if err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("update preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ExtrasPreset{}, ErrNotFound
	}
	p.ID = ledger.RemoteID(id)
	return p, nil
}

func (s *Service) DeletePreset(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM extras_presets WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Orders ---

// validateOrderRefs resolves the order's customer and optional employee
// references within the tenant.
func (s *Service) validateOrderRefs(ctx context.Context, tenantID string, o ledger.Order) error {
	ok, err := s.refExists(ctx, "customers", o.CustomerID.Token(), tenantID)
	if err != nil {
		return fmt.Errorf("check customer reference: %w", err)
	}
	if !ok {
		return &RefError{Field: "customer_id", Value: o.CustomerID.String()}
	}
	if !o.AssignedEmployeeID.IsZero() {
		ok, err := s.refExists(ctx, "employees", o.AssignedEmployeeID.Token(), tenantID)
		if err != nil {
			return fmt.Errorf("check employee reference: %w", err)
		}
		if !ok {
			return &RefError{Field: "assigned_employee_id", Value: o.AssignedEmployeeID.String()}
		}
	}
	return nil
}

// ListOrders returns full orders with nested line items and extras.
func (s *Service) ListOrders(ctx context.Context, tenantID string) ([]ledger.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, assigned_employee_id, status, due_date, notes, created_at
		 FROM orders WHERE tenant_id = $1 ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []ledger.Order{}
	index := map[string]int{}
	for rows.Next() {
		var o ledger.Order
		var id, custID string
		var empID *string
		var due *time.Time
		if err := rows.Scan(&id, &custID, &empID, &o.Status, &due, &o.Notes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.ID = ledger.RemoteID(id)
		o.CustomerID = ledger.RemoteID(custID)
		if empID != nil {
			o.AssignedEmployeeID = ledger.RemoteID(*empID)
		}
		if due != nil {
			o.DueDate = *due
		}
		index[id] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	itemIndex := map[string][2]int{} // item id -> (order index, item index)
	itemRows, err := s.pool.Query(ctx,
		`SELECT i.id, i.order_id, i.garment, i.quantity, i.price::text
		 FROM order_items i JOIN orders o ON o.id = i.order_id
		 WHERE o.tenant_id = $1 ORDER BY i.id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it ledger.OrderItem
		var id, orderID, price string
		if err := itemRows.Scan(&id, &orderID, &it.Garment, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.ID = ledger.RemoteID(id)
		it.OrderID = ledger.RemoteID(orderID)
		if it.Price, err = parseMoney(price); err != nil {
			return nil, err
		}
		oi, ok := index[orderID]
		if !ok {
			continue
		}
		itemIndex[id] = [2]int{oi, len(orders[oi].Items)}
		orders[oi].Items = append(orders[oi].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}
	itemRows.Close()

	extraRows, err := s.pool.Query(ctx,
		`SELECT e.id, e.item_id, e.name, e.price::text
		 FROM order_item_extras e
		 JOIN order_items i ON i.id = e.item_id
		 JOIN orders o ON o.id = i.order_id
		 WHERE o.tenant_id = $1 ORDER BY e.id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list item extras: %w", err)
	}
	defer extraRows.Close()
	for extraRows.Next() {
		var ex ledger.OrderItemExtra
		var id, itemID, price string
		if err := extraRows.Scan(&id, &itemID, &ex.Name, &price); err != nil {
			return nil, fmt.Errorf("scan item extra: %w", err)
		}
		ex.ID = ledger.RemoteID(id)
		ex.ItemID = ledger.RemoteID(itemID)
		if ex.Price, err = parseMoney(price); err != nil {
			return nil, err
		}
		pos, ok := itemIndex[itemID]
		if !ok {
			continue
		}
		item := &orders[pos[0]].Items[pos[1]]
		item.Extras = append(item.Extras, ex)
	}
	return orders, extraRows.Err()
}

// CreateOrder inserts the order header only. Line items arrive as separate
// CreateOrderItem requests once the client knows the new order id.
func (s *Service) CreateOrder(ctx context.Context, tenantID string, o ledger.Order) (ledger.Order, error) {
	if err := s.validateOrderRefs(ctx, tenantID, o); err != nil {
		return ledger.Order{}, err
	}
	o.ID = newID("ord")
	o.Items = nil
	if o.Status == "" {
		o.Status = ledger.OrderStatusOpen
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	var empID *string
	if !o.AssignedEmployeeID.IsZero() {
		v := o.AssignedEmployeeID.Token()
		empID = &v
	}
	var due *time.Time
	if !o.DueDate.IsZero() {
		due = &o.DueDate
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, tenant_id, customer_id, assigned_employee_id, status, due_date, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID.Token(), tenantID, o.CustomerID.Token(), empID, o.Status, due, o.Notes, o.CreatedAt)
	if err != nil {
		return ledger.Order{}, fmt.Errorf("create order: %w", err)
	}
	return o, nil
}

// UpdateOrder replaces the order header; items are managed through their own
// endpoints and are untouched here.
func (s *Service) UpdateOrder(ctx context.Context, tenantID, id string, o ledger.Order) (ledger.Order, error) {
	if err := s.validateOrderRefs(ctx, tenantID, o); err != nil {
		return ledger.Order{}, err
	}
	var empID *string
	if !o.AssignedEmployeeID.IsZero() {
		v := o.AssignedEmployeeID.Token()
		empID = &v
	}
	var due *time.Time
	if !o.DueDate.IsZero() {
		due = &o.DueDate
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET customer_id = $3, assigned_employee_id = $4, status = $5, due_date = $6, notes = $7
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, o.CustomerID.Token(), empID, o.Status, due, o.Notes)
	if err != nil {
		return ledger.Order{}, fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Order{}, ErrNotFound
	}
	o.ID = ledger.RemoteID(id)
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM orders WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOrderItem adds a line item to an existing order.
func (s *Service) CreateOrderItem(ctx context.Context, tenantID, orderID string, it ledger.OrderItem) (ledger.OrderItem, error) {
	ok, err := s.refExists(ctx, "orders", orderID, tenantID)
	if err != nil {
		return ledger.OrderItem{}, fmt.Errorf("check order: %w", err)
	}
	if !ok {
		return ledger.OrderItem{}, ErrNotFound
	}
	it.ID = newID("itm")
	it.OrderID = ledger.RemoteID(orderID)
	it.Extras = nil
	if it.Quantity == 0 {
		it.Quantity = 1
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO order_items (id, order_id, garment, quantity, price)
		 VALUES ($1, $2, $3, $4, $5)`,
		it.ID.Token(), orderID, it.Garment, it.Quantity, it.Price.String())
	if err != nil {
		return ledger.OrderItem{}, fmt.Errorf("create order item: %w", err)
	}
	return it, nil
}

// CreateOrderItemExtra adds an extra to an existing line item.
func (s *Service) CreateOrderItemExtra(ctx context.Context, tenantID, itemID string, ex ledger.OrderItemExtra) (ledger.OrderItemExtra, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM order_items i JOIN orders o ON o.id = i.order_id
		 WHERE i.id = $1 AND o.tenant_id = $2`, itemID, tenantID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.OrderItemExtra{}, ErrNotFound
	}
	if err != nil {
		return ledger.OrderItemExtra{}, fmt.Errorf("check order item: %w", err)
	}
	ex.ID = newID("ext")
	ex.ItemID = ledger.RemoteID(itemID)
	_, err = s.pool.Exec(ctx,
		`INSERT INTO order_item_extras (id, item_id, name, price)
		 VALUES ($1, $2, $3, $4)`,
		ex.ID.Token(), itemID, ex.Name, ex.Price.String())
	if err != nil {
		return ledger.OrderItemExtra{}, fmt.Errorf("create item extra: %w", err)
	}
	return ex, nil
}

// --- Payments ---

func (s *Service) ListPayments(ctx context.Context, tenantID string) ([]ledger.Payment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, order_id, customer_id, amount::text, method, notes, paid_at
		 FROM payments WHERE tenant_id = $1 ORDER BY paid_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	recs := []ledger.Payment{}
	for rows.Next() {
		var p ledger.Payment
		var id, orderID, custID, amount string
		if err := rows.Scan(&id, &orderID, &custID, &amount, &p.Method, &p.Notes, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.ID = ledger.RemoteID(id)
		p.OrderID = ledger.RemoteID(orderID)
		p.CustomerID = ledger.RemoteID(custID)
		if p.Amount, err = parseMoney(amount); err != nil {
			return nil, err
		}
		recs = append(recs, p)
	}
	return recs, rows.Err()
}

func (s *Service) validatePaymentRefs(ctx context.Context, tenantID string, p ledger.Payment) error {
	ok, err := s.refExists(ctx, "orders", p.OrderID.Token(), tenantID)
	if err != nil {
		return fmt.Errorf("check order reference: %w", err)
	}
	if !ok {
		return &RefError{Field: "order_id", Value: p.OrderID.String()}
	}
	ok, err = s.refExists(ctx, "customers", p.CustomerID.Token(), tenantID)
	if err != nil {
		return fmt.Errorf("check customer reference: %w", err)
	}
	if !ok {
		return &RefError{Field: "customer_id", Value: p.CustomerID.String()}
	}
	return nil
}

func (s *Service) CreatePayment(ctx context.Context, tenantID string, p ledger.Payment) (ledger.Payment, error) {
	if err := s.validatePaymentRefs(ctx, tenantID, p); err != nil {
		return ledger.Payment{}, err
	}
	p.ID = newID("pay")
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payments (id, tenant_id, order_id, customer_id, amount, method, notes, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID.Token(), tenantID, p.OrderID.Token(), p.CustomerID.Token(),
		p.Amount.String(), p.Method, p.Notes, p.PaidAt)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (s *Service) UpdatePayment(ctx context.Context, tenantID, id string, p ledger.Payment) (ledger.Payment, error) {
	if err := s.validatePaymentRefs(ctx, tenantID, p); err != nil {
		return ledger.Payment{}, err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE payments SET order_id = $3, customer_id = $4, amount = $5, method = $6, notes = $7, paid_at = $8
		 WHERE id = $1 AND tenant_id = $2`,
		id, tenantID, p.OrderID.Token(), p.CustomerID.Token(),
		p.Amount.String(), p.Method, p.Notes, p.PaidAt)
	if err != nil {
		return ledger.Payment{}, fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Payment{}, ErrNotFound
	}
	p.ID = ledger.RemoteID(id)
	return p, nil
}

func (s *Service) DeletePayment(ctx context.Context, tenantID, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM payments WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
