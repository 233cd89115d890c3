// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a person the shop takes orders from.
type Customer struct {
	ID        RecordID  `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (c Customer) Key() RecordID      { return c.ID }
func (c *Customer) SetKey(id RecordID) { c.ID = id }

// Employee is a staff member orders can be assigned to.
type Employee struct {
	ID        RecordID  `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (e Employee) Key() RecordID      { return e.ID }
func (e *Employee) SetKey(id RecordID) { e.ID = id }

// OrderStatus tracks an order through the shop workflow.
type OrderStatus string

const (
	OrderStatusOpen       OrderStatus = "open"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusReady      OrderStatus = "ready"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Order is a stitching order placed by a customer. CustomerID and
// AssignedEmployeeID may reference local ids of not-yet-promoted records;
// the sync coordinator rewrites them before the order itself goes remote.
type Order struct {
	ID                 RecordID    `json:"id"`
	CustomerID         RecordID    `json:"customer_id"`
	AssignedEmployeeID RecordID    `json:"assigned_employee_id,omitzero"`
	Status             OrderStatus `json:"status"`
	DueDate            time.Time   `json:"due_date,omitzero"`
	Notes              string      `json:"notes,omitempty"`
	Items              []OrderItem `json:"items,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

func (o Order) Key() RecordID      { return o.ID }
func (o *Order) SetKey(id RecordID) { o.ID = id }

// OrderItem is a garment line on an order.
type OrderItem struct {
	ID       RecordID         `json:"id"`
	OrderID  RecordID         `json:"order_id,omitzero"`
	Garment  string           `json:"garment"`
	Quantity int              `json:"quantity"`
	Price    decimal.Decimal  `json:"price"`
	Extras   []OrderItemExtra `json:"extras,omitempty"`
}

// OrderItemExtra is an add-on (lining, embroidery, rush charge) on a line item.
type OrderItemExtra struct {
	ID     RecordID        `json:"id"`
	ItemID RecordID        `json:"item_id,omitzero"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
}

// PaymentMethod is how a payment was taken.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Payment records money received against an order. It references both the
// order and the customer, so it is promoted last during a drain pass.
type Payment struct {
	ID         RecordID        `json:"id"`
	OrderID    RecordID        `json:"order_id"`
	CustomerID RecordID        `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     PaymentMethod   `json:"method"`
	Notes      string          `json:"notes,omitempty"`
	PaidAt     time.Time       `json:"paid_at"`
}

func (p Payment) Key() RecordID      { return p.ID }
func (p *Payment) SetKey(id RecordID) { p.ID = id }

// PresetExtra is one entry in a reusable extras preset.
type PresetExtra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ExtrasPreset is a named bundle of extras the UI offers as a shortcut when
// composing order items. Presets have no foreign references.
type ExtrasPreset struct {
	ID        RecordID      `json:"id"`
	Name      string        `json:"name"`
	Extras    []PresetExtra `json:"extras,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (p ExtrasPreset) Key() RecordID      { return p.ID }
func (p *ExtrasPreset) SetKey(id RecordID) { p.ID = id }

// ActivityKind classifies activity log entries.
type ActivityKind string

const (
	ActivitySync   ActivityKind = "sync"
	ActivityStatus ActivityKind = "status"
	ActivityRecord ActivityKind = "record"
)

// ActivityEntry is a local-only log line shown by the UI next to the
// online/syncing indicator. Activity entries are never synced.
type ActivityEntry struct {
	ID       int64        `json:"id"`
	Kind     ActivityKind `json:"kind"`
	Message  string       `json:"message"`
	DeviceID string       `json:"device_id,omitempty"`
	At       time.Time    `json:"at"`
}
