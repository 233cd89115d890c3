// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package syncer is the offline-first sync coordinator: the single decision
// point for whether a read or write goes to the remote store or the local
// cache. Remote failures never reach callers as errors; they degrade the
// device to offline mode and the operation falls back to the local path.
// Only local-storage failures propagate, since there is no further fallback.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
	"github.com/Aakash1702/TailorFlow-sub000/localstore"
)

// Session is the authentication collaborator. Requests are only issued when
// a session and a tenant scope are both available.
type Session interface {
	Authenticated() bool
	TenantScope() string
}

// StaticSession is a fixed session, useful for tools and tests.
type StaticSession struct {
	User   string
	Tenant string
}

func (s StaticSession) Authenticated() bool { return s.User != "" }
func (s StaticSession) TenantScope() string { return s.Tenant }

// CollectionGateway is the uniform remote CRUD contract per collection.
// *gateway.Collection[T] satisfies it.
type CollectionGateway[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id ledger.RecordID, rec T) (T, error)
	Delete(ctx context.Context, id ledger.RecordID) error
}

// OrderGateway extends the uniform contract with the item sub-requests.
// *gateway.Orders satisfies it.
type OrderGateway interface {
	CollectionGateway[ledger.Order]
	CreateItem(ctx context.Context, orderID ledger.RecordID, item ledger.OrderItem) (ledger.OrderItem, error)
	CreateItemExtra(ctx context.Context, itemID ledger.RecordID, extra ledger.OrderItemExtra) (ledger.OrderItemExtra, error)
}

// Gateways bundles the per-collection remote clients.
type Gateways struct {
	Customers CollectionGateway[ledger.Customer]
	Employees CollectionGateway[ledger.Employee]
	Orders    OrderGateway
	Payments  CollectionGateway[ledger.Payment]
	Presets   CollectionGateway[ledger.ExtrasPreset]
}

// Coordinator owns the sync state and exposes the unified read/write API.
// All operations are serialized on writeMu, so a drain pass never interleaves
// with another operation; the syncing flag additionally guards against
// re-entrant drains from within a pass.
type Coordinator struct {
	store   *localstore.Store
	cache   *localstore.Collections
	gw      Gateways
	session Session
	logger  *slog.Logger
	now     func() time.Time

	writeMu sync.Mutex // serializes public operations

	mu      sync.Mutex // guards online/syncing
	online  bool
	syncing bool

	remap *IDMap
}

// New creates a coordinator. The device starts optimistically online; the
// first failed remote attempt flips it offline until the next ForceResync.
func New(store *localstore.Store, gw Gateways, session Session, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:   store,
		cache:   store.Collections(),
		gw:      gw,
		session: session,
		logger:  logger,
		now:     time.Now,
		online:  true,
		remap:   NewIDMap(),
	}
}

// Online reports whether the coordinator currently routes to the remote store.
func (c *Coordinator) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Syncing reports whether a drain pass is in flight.
func (c *Coordinator) Syncing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncing
}

// RecentActivity exposes the local activity log for the UI status panel.
func (c *Coordinator) RecentActivity(ctx context.Context, limit int) ([]ledger.ActivityEntry, error) {
	return c.store.RecentActivity(ctx, limit)
}

// authenticated requires both a signed-in session and a tenant scope.
func (c *Coordinator) authenticated() bool {
	return c.session.Authenticated() && c.session.TenantScope() != ""
}

// canUseRemote gates every remote attempt.
func (c *Coordinator) canUseRemote() bool {
	if !c.authenticated() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// setOnline flips the routing state, logging transitions.
func (c *Coordinator) setOnline(online bool) {
	c.mu.Lock()
	changed := c.online != online
	c.online = online
	c.mu.Unlock()
	if !changed {
		return
	}
	if online {
		c.logger.Info("back online")
		c.logActivity(ledger.ActivityStatus, "back online")
	} else {
		c.logger.Info("switched to offline mode")
		c.logActivity(ledger.ActivityStatus, "switched to offline mode")
	}
}

// degrade absorbs a remote failure during a directly-routed operation:
// log it, go offline, let the caller fall back to the local path.
func (c *Coordinator) degrade(op string, err error) {
	c.logger.Warn("remote operation failed, falling back to local store", "op", op, "error", err)
	c.setOnline(false)
}

// logActivity appends to the local activity log, best effort.
func (c *Coordinator) logActivity(kind ledger.ActivityKind, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.store.AppendActivity(ctx, string(kind), message, "", c.now()); err != nil {
		c.logger.Warn("failed to append activity", "error", err)
	}
}

// --- generic local-cache helpers ---

type keyed interface {
	Key() ledger.RecordID
}

func appendTo[T any](ctx context.Context, col *localstore.Collection[T], rec T) error {
	recs, err := col.Load(ctx)
	if err != nil {
		return err
	}
	return col.Replace(ctx, append(recs, rec))
}

func replaceIn[T keyed](ctx context.Context, col *localstore.Collection[T], rec T) error {
	recs, err := col.Load(ctx)
	if err != nil {
		return err
	}
	found := false
	for i := range recs {
		if recs[i].Key().Equal(rec.Key()) {
			recs[i] = rec
			found = true
			break
		}
	}
	if !found {
		recs = append(recs, rec)
	}
	return col.Replace(ctx, recs)
}

func removeFrom[T keyed](ctx context.Context, col *localstore.Collection[T], id ledger.RecordID) error {
	recs, err := col.Load(ctx)
	if err != nil {
		return err
	}
	kept := recs[:0]
	for _, rec := range recs {
		if !rec.Key().Equal(id) {
			kept = append(kept, rec)
		}
	}
	return col.Replace(ctx, kept)
}

func hasPending[T keyed](ctx context.Context, col *localstore.Collection[T]) (bool, error) {
	recs, err := col.Load(ctx)
	if err != nil {
		return false, err
	}
	for _, rec := range recs {
		if rec.Key().IsLocal() {
			return true, nil
		}
	}
	return false, nil
}

// --- generic remote routing helpers ---

// listVia attempts the remote list and mirrors the result into the cache.
// ok=false means the caller should fall back to the local snapshot.
func listVia[T any](ctx context.Context, c *Coordinator, g CollectionGateway[T], col *localstore.Collection[T], name string) ([]T, bool) {
	if err := c.ensureSynced(ctx); err != nil {
		return nil, false
	}
	recs, err := g.List(ctx)
	if err != nil {
		c.degrade("list "+name, err)
		return nil, false
	}
	if err := col.Replace(ctx, recs); err != nil {
		c.logger.Warn("failed to mirror remote list into cache", "collection", name, "error", err)
	}
	return recs, true
}

// createVia attempts the remote create and appends the result to the cache.
func createVia[T any](ctx context.Context, c *Coordinator, g CollectionGateway[T], col *localstore.Collection[T], name string, rec T) (T, bool) {
	var zero T
	if err := c.ensureSynced(ctx); err != nil {
		return zero, false
	}
	created, err := g.Create(ctx, rec)
	if err != nil {
		c.degrade("create "+name, err)
		return zero, false
	}
	if err := appendTo(ctx, col, created); err != nil {
		c.logger.Warn("failed to mirror created record into cache", "collection", name, "error", err)
	}
	return created, true
}

// --- Customers ---

// ListCustomers returns the customer collection, remote-first when possible.
// It never fails on remote/transport problems; only a local-storage failure
// on the fallback path surfaces.
func (c *Coordinator) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.canUseRemote() {
		if recs, ok := listVia(ctx, c, c.gw.Customers, c.cache.Customers, "customers"); ok {
			return recs, nil
		}
	}
	return c.cache.Customers.Load(ctx)
}

// CreateCustomer creates a customer remotely when possible, otherwise locally
// with a fresh local id. It degrades instead of raising.
func (c *Coordinator) CreateCustomer(ctx context.Context, cust ledger.Customer) (ledger.Customer, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if cust.CreatedAt.IsZero() {
		cust.CreatedAt = c.now()
	}
	if c.canUseRemote() {
		if created, ok := createVia(ctx, c, c.gw.Customers, c.cache.Customers, "customers", cust); ok {
			return created, nil
		}
	}
	cust.ID = ledger.NewLocalID()
	if err := appendTo(ctx, c.cache.Customers, cust); err != nil {
		return ledger.Customer{}, fmt.Errorf("failed to store customer locally: %w", err)
	}
	return cust, nil
}

// UpdateCustomer writes remote-first for remote ids; local-id records have
// nothing remote to update yet and are written to the cache only.
func (c *Coordinator) UpdateCustomer(ctx context.Context, cust ledger.Customer) (ledger.Customer, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !cust.ID.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if updated, err := c.gw.Customers.Update(ctx, cust.ID, cust); err != nil {
				c.degrade("update customers", err)
			} else {
				cust = updated
			}
		}
	}
	if err := replaceIn(ctx, c.cache.Customers, cust); err != nil {
		return ledger.Customer{}, fmt.Errorf("failed to store customer locally: %w", err)
	}
	return cust, nil
}

// DeleteCustomer mirrors the delete locally regardless of the remote
// outcome; a failed remote delete is logged, not retried inline.
func (c *Coordinator) DeleteCustomer(ctx context.Context, id ledger.RecordID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !id.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if err := c.gw.Customers.Delete(ctx, id); err != nil {
				c.degrade("delete customers", err)
			}
		}
	}
	return removeFrom(ctx, c.cache.Customers, id)
}

// --- Employees ---

func (c *Coordinator) ListEmployees(ctx context.Context) ([]ledger.Employee, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.canUseRemote() {
		if recs, ok := listVia(ctx, c, c.gw.Employees, c.cache.Employees, "employees"); ok {
			return recs, nil
		}
	}
	return c.cache.Employees.Load(ctx)
}

func (c *Coordinator) CreateEmployee(ctx context.Context, emp ledger.Employee) (ledger.Employee, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = c.now()
	}
	if c.canUseRemote() {
		if created, ok := createVia(ctx, c, c.gw.Employees, c.cache.Employees, "employees", emp); ok {
			return created, nil
		}
	}
	emp.ID = ledger.NewLocalID()
	if err := appendTo(ctx, c.cache.Employees, emp); err != nil {
		return ledger.Employee{}, fmt.Errorf("failed to store employee locally: %w", err)
	}
	return emp, nil
}

func (c *Coordinator) UpdateEmployee(ctx context.Context, emp ledger.Employee) (ledger.Employee, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !emp.ID.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if updated, err := c.gw.Employees.Update(ctx, emp.ID, emp); err != nil {
				c.degrade("update employees", err)
			} else {
				emp = updated
			}
		}
	}
	if err := replaceIn(ctx, c.cache.Employees, emp); err != nil {
		return ledger.Employee{}, fmt.Errorf("failed to store employee locally: %w", err)
	}
	return emp, nil
}

func (c *Coordinator) DeleteEmployee(ctx context.Context, id ledger.RecordID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !id.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if err := c.gw.Employees.Delete(ctx, id); err != nil {
				c.degrade("delete employees", err)
			}
		}
	}
	return removeFrom(ctx, c.cache.Employees, id)
}

// --- Orders ---

func (c *Coordinator) ListOrders(ctx context.Context) ([]ledger.Order, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.canUseRemote() {
		if recs, ok := listVia(ctx, c, c.gw.Orders, c.cache.Orders, "orders"); ok {
			return recs, nil
		}
	}
	return c.cache.Orders.Load(ctx)
}

// CreateOrder creates the order remotely (header plus per-item requests)
// when possible. References to records promoted by the preceding
// ensureSynced pass are rewritten through the session remap table first.
func (c *Coordinator) CreateOrder(ctx context.Context, order ledger.Order) (ledger.Order, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = c.now()
	}
	if order.Status == "" {
		order.Status = ledger.OrderStatusOpen
	}
	if c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			// Rewrite references through the pass that ensureSynced may just
			// have run; the rewrite sticks even if the create falls back to
			// the local path below.
			order.CustomerID = c.remap.Resolve(order.CustomerID)
			order.AssignedEmployeeID = c.remap.Resolve(order.AssignedEmployeeID)
			created, err := c.createOrderRemote(ctx, order)
			if err != nil {
				c.degrade("create orders", err)
			} else {
				if err := appendTo(ctx, c.cache.Orders, created); err != nil {
					c.logger.Warn("failed to mirror created order into cache", "error", err)
				}
				return created, nil
			}
		}
	}
	order.ID = ledger.NewLocalID()
	for i := range order.Items {
		order.Items[i].ID = ledger.NewLocalID()
		order.Items[i].OrderID = order.ID
		for j := range order.Items[i].Extras {
			order.Items[i].Extras[j].ID = ledger.NewLocalID()
			order.Items[i].Extras[j].ItemID = order.Items[i].ID
		}
	}
	if err := appendTo(ctx, c.cache.Orders, order); err != nil {
		return ledger.Order{}, fmt.Errorf("failed to store order locally: %w", err)
	}
	return order, nil
}

func (c *Coordinator) UpdateOrder(ctx context.Context, order ledger.Order) (ledger.Order, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !order.ID.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if updated, err := c.gw.Orders.Update(ctx, order.ID, order); err != nil {
				c.degrade("update orders", err)
			} else {
				// The backend's update response carries the header only;
				// keep the caller's item view for the cache mirror.
				updated.Items = order.Items
				order = updated
			}
		}
	}
	if err := replaceIn(ctx, c.cache.Orders, order); err != nil {
		return ledger.Order{}, fmt.Errorf("failed to store order locally: %w", err)
	}
	return order, nil
}

func (c *Coordinator) DeleteOrder(ctx context.Context, id ledger.RecordID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !id.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if err := c.gw.Orders.Delete(ctx, id); err != nil {
				c.degrade("delete orders", err)
			}
		}
	}
	return removeFrom(ctx, c.cache.Orders, id)
}

// --- Payments ---

func (c *Coordinator) ListPayments(ctx context.Context) ([]ledger.Payment, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.canUseRemote() {
		if recs, ok := listVia(ctx, c, c.gw.Payments, c.cache.Payments, "payments"); ok {
			return recs, nil
		}
	}
	return c.cache.Payments.Load(ctx)
}

// CreatePayment refuses to send a payment whose order or customer reference
// is still local after remapping, since that would dangle on the server. Such
// payments are created locally and promoted by a later pass.
func (c *Coordinator) CreatePayment(ctx context.Context, payment ledger.Payment) (ledger.Payment, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if payment.PaidAt.IsZero() {
		payment.PaidAt = c.now()
	}
	if c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			payment.OrderID = c.remap.Resolve(payment.OrderID)
			payment.CustomerID = c.remap.Resolve(payment.CustomerID)
			if !payment.OrderID.IsLocal() && !payment.CustomerID.IsLocal() {
				created, err := c.gw.Payments.Create(ctx, payment)
				if err != nil {
					c.degrade("create payments", err)
				} else {
					if err := appendTo(ctx, c.cache.Payments, created); err != nil {
						c.logger.Warn("failed to mirror created payment into cache", "error", err)
					}
					return created, nil
				}
			}
		}
	}
	payment.ID = ledger.NewLocalID()
	if err := appendTo(ctx, c.cache.Payments, payment); err != nil {
		return ledger.Payment{}, fmt.Errorf("failed to store payment locally: %w", err)
	}
	return payment, nil
}

func (c *Coordinator) UpdatePayment(ctx context.Context, payment ledger.Payment) (ledger.Payment, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !payment.ID.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if updated, err := c.gw.Payments.Update(ctx, payment.ID, payment); err != nil {
				c.degrade("update payments", err)
			} else {
				payment = updated
			}
		}
	}
	if err := replaceIn(ctx, c.cache.Payments, payment); err != nil {
		return ledger.Payment{}, fmt.Errorf("failed to store payment locally: %w", err)
	}
	return payment, nil
}

func (c *Coordinator) DeletePayment(ctx context.Context, id ledger.RecordID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !id.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if err := c.gw.Payments.Delete(ctx, id); err != nil {
				c.degrade("delete payments", err)
			}
		}
	}
	return removeFrom(ctx, c.cache.Payments, id)
}

// --- Extras presets ---

func (c *Coordinator) ListPresets(ctx context.Context) ([]ledger.ExtrasPreset, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.canUseRemote() {
		if recs, ok := listVia(ctx, c, c.gw.Presets, c.cache.Presets, "extras-presets"); ok {
			return recs, nil
		}
	}
	return c.cache.Presets.Load(ctx)
}

func (c *Coordinator) CreatePreset(ctx context.Context, preset ledger.ExtrasPreset) (ledger.ExtrasPreset, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = c.now()
	}
	if c.canUseRemote() {
		if created, ok := createVia(ctx, c, c.gw.Presets, c.cache.Presets, "extras-presets", preset); ok {
			return created, nil
		}
	}
	preset.ID = ledger.NewLocalID()
	if err := appendTo(ctx, c.cache.Presets, preset); err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("failed to store preset locally: %w", err)
	}
	return preset, nil
}

func (c *Coordinator) UpdatePreset(ctx context.Context, preset ledger.ExtrasPreset) (ledger.ExtrasPreset, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !preset.ID.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if updated, err := c.gw.Presets.Update(ctx, preset.ID, preset); err != nil {
				c.degrade("update extras-presets", err)
			} else {
				preset = updated
			}
		}
	}
	if err := replaceIn(ctx, c.cache.Presets, preset); err != nil {
		return ledger.ExtrasPreset{}, fmt.Errorf("failed to store preset locally: %w", err)
	}
	return preset, nil
}

func (c *Coordinator) DeletePreset(ctx context.Context, id ledger.RecordID) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if !id.IsLocal() && c.canUseRemote() {
		if err := c.ensureSynced(ctx); err == nil {
			if err := c.gw.Presets.Delete(ctx, id); err != nil {
				c.degrade("delete extras-presets", err)
			}
		}
	}
	return removeFrom(ctx, c.cache.Presets, id)
}
