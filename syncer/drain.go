// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"fmt"

	"github.com/Aakash1702/TailorFlow-sub000/gateway"
	"github.com/Aakash1702/TailorFlow-sub000/ledger"
	"github.com/Aakash1702/TailorFlow-sub000/localstore"
)

// ensureSynced is the idempotent pre-flight guard inserted before every
// remote read/write: if the device is online, no pass is already running and
// pending (local-id) records exist, it runs a full drain pass so stale
// pending records never shadow freshly fetched remote state.
// Callers hold writeMu.
func (c *Coordinator) ensureSynced(ctx context.Context) error {
	c.mu.Lock()
	if !c.online || c.syncing {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	pending, err := c.anyPending(ctx)
	if err != nil {
		return err
	}
	if !pending {
		return nil
	}
	return c.drain(ctx)
}

func (c *Coordinator) anyPending(ctx context.Context) (bool, error) {
	if ok, err := hasPending(ctx, c.cache.Customers); err != nil || ok {
		return ok, err
	}
	if ok, err := hasPending(ctx, c.cache.Employees); err != nil || ok {
		return ok, err
	}
	if ok, err := hasPending(ctx, c.cache.Presets); err != nil || ok {
		return ok, err
	}
	if ok, err := hasPending(ctx, c.cache.Orders); err != nil || ok {
		return ok, err
	}
	return hasPending(ctx, c.cache.Payments)
}

// ForceResync re-runs the drain pass regardless of the current online flag
// and, on success, re-pulls every collection from the remote store to
// overwrite the local cache. This is the explicit recovery entry point, and
// the only way back online after a connectivity failure.
func (c *Coordinator) ForceResync(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if !c.authenticated() {
		return fmt.Errorf("cannot resync: no authenticated session with tenant scope")
	}

	if err := c.drain(ctx); err != nil {
		return fmt.Errorf("resync drain failed: %w", err)
	}

	if err := c.pullAll(ctx); err != nil {
		c.setOnline(false)
		return fmt.Errorf("resync pull failed: %w", err)
	}

	c.logActivity(ledger.ActivitySync, "full resync completed")
	return nil
}

// pullAll overwrites every local collection with the remote snapshot.
// Records whose promotion failed during the preceding drain still carry a
// local id; they are re-appended so the overwrite cannot silently drop them.
func (c *Coordinator) pullAll(ctx context.Context) error {
	if err := pullInto(ctx, c.gw.Customers, c.cache.Customers); err != nil {
		return err
	}
	if err := pullInto(ctx, c.gw.Employees, c.cache.Employees); err != nil {
		return err
	}
	if err := pullInto(ctx, c.gw.Presets, c.cache.Presets); err != nil {
		return err
	}
	if err := pullInto(ctx, c.gw.Orders, c.cache.Orders); err != nil {
		return err
	}
	return pullInto(ctx, c.gw.Payments, c.cache.Payments)
}

func pullInto[T keyed](ctx context.Context, g CollectionGateway[T], col *localstore.Collection[T]) error {
	recs, err := g.List(ctx)
	if err != nil {
		return err
	}
	cached, err := col.Load(ctx)
	if err != nil {
		return err
	}
	for _, rec := range cached {
		if rec.Key().IsLocal() {
			recs = append(recs, rec)
		}
	}
	return col.Replace(ctx, recs)
}

// drain promotes every pending local-id record to a remote id, in
// foreign-key dependency order (customers/employees/presets, then orders,
// then payments), rewriting references as it goes. A per-record server
// rejection leaves that record pending and the pass continues; a
// transport/auth failure aborts the pass and flips the device offline.
// Progress made before an abort is persisted, so a promoted record is never
// promoted twice. Callers hold writeMu.
func (c *Coordinator) drain(ctx context.Context) error {
	c.mu.Lock()
	if c.syncing {
		c.mu.Unlock()
		return nil
	}
	c.syncing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.syncing = false
		c.mu.Unlock()
	}()

	c.remap.Reset()

	promoted := 0
	skipped := 0

	n, err := promoteSimple[ledger.Customer](ctx, c, c.gw.Customers, c.cache.Customers, "customers")
	promoted += n
	if err != nil {
		c.setOnline(false)
		return err
	}

	n, err = promoteSimple[ledger.Employee](ctx, c, c.gw.Employees, c.cache.Employees, "employees")
	promoted += n
	if err != nil {
		c.setOnline(false)
		return err
	}

	n, err = promoteSimple[ledger.ExtrasPreset](ctx, c, c.gw.Presets, c.cache.Presets, "extras-presets")
	promoted += n
	if err != nil {
		c.setOnline(false)
		return err
	}

	n, err = c.promoteOrders(ctx)
	promoted += n
	if err != nil {
		c.setOnline(false)
		return err
	}

	n, s, err := c.promotePayments(ctx)
	promoted += n
	skipped += s
	if err != nil {
		c.setOnline(false)
		return err
	}

	c.setOnline(true)
	if promoted > 0 || skipped > 0 {
		c.logActivity(ledger.ActivitySync,
			fmt.Sprintf("sync pass completed: %d promoted, %d still pending", promoted, skipped))
	}
	return nil
}

// promoteSimple promotes pending records of a collection with no foreign
// dependencies. The promoted record replaces its local-id entry wholesale,
// because the identifier itself changed.
func promoteSimple[T keyed, PT interface {
	*T
	SetKey(ledger.RecordID)
}](ctx context.Context, c *Coordinator, g CollectionGateway[T], col *localstore.Collection[T], name string) (int, error) {
	recs, err := col.Load(ctx)
	if err != nil {
		return 0, err
	}

	promoted := 0
	var abort error
	for i := range recs {
		localID := recs[i].Key()
		if !localID.IsLocal() {
			continue
		}
		payload := recs[i]
		PT(&payload).SetKey(ledger.RecordID{})
		created, err := g.Create(ctx, payload)
		if err != nil {
			if gateway.IsConnectivity(err) {
				abort = err
				break
			}
			c.logger.Warn("record promotion rejected, will retry next pass",
				"collection", name, "id", localID, "error", err)
			continue
		}
		c.remap.Record(localID, created.Key())
		recs[i] = created
		promoted++
	}

	// Persist even on abort so completed promotions survive.
	if err := col.Replace(ctx, recs); err != nil {
		return promoted, err
	}
	return promoted, abort
}

// promoteOrders promotes pending orders, rewriting customer and employee
// references through the remap table (falling back to the original id when
// no mapping exists, e.g. the referenced record was already remote).
func (c *Coordinator) promoteOrders(ctx context.Context) (int, error) {
	orders, err := c.cache.Orders.Load(ctx)
	if err != nil {
		return 0, err
	}

	promoted := 0
	var abort error
	for i := range orders {
		localID := orders[i].ID
		if !localID.IsLocal() {
			continue
		}
		// Persist resolved references on the cached record even when the
		// promotion below fails: the remap table does not survive into the
		// next pass, but a rewritten reference does.
		orders[i].CustomerID = c.remap.Resolve(orders[i].CustomerID)
		orders[i].AssignedEmployeeID = c.remap.Resolve(orders[i].AssignedEmployeeID)
		created, err := c.createOrderRemote(ctx, orders[i])
		if err != nil {
			if gateway.IsConnectivity(err) {
				abort = err
				break
			}
			c.logger.Warn("order promotion rejected, will retry next pass",
				"id", localID, "error", err)
			continue
		}
		c.remap.Record(localID, created.ID)
		orders[i] = created
		promoted++
	}

	if err := c.cache.Orders.Replace(ctx, orders); err != nil {
		return promoted, err
	}
	return promoted, abort
}

// createOrderRemote creates the order header, then each line item and each
// item extra as individual requests scoped to the new parent ids. If a
// sub-request fails, the just-created remote order is deleted (best effort)
// so the remote store is not left with an orphaned parent, and the whole
// order stays local-pending.
func (c *Coordinator) createOrderRemote(ctx context.Context, order ledger.Order) (ledger.Order, error) {
	header := order
	header.ID = ledger.RecordID{}
	header.Items = nil
	created, err := c.gw.Orders.Create(ctx, header)
	if err != nil {
		return ledger.Order{}, err
	}
	created.Items = nil

	for _, item := range order.Items {
		item.ID = ledger.RecordID{}
		item.OrderID = created.ID
		extras := item.Extras
		item.Extras = nil

		createdItem, err := c.gw.Orders.CreateItem(ctx, created.ID, item)
		if err != nil {
			c.compensateOrder(ctx, created.ID)
			return ledger.Order{}, fmt.Errorf("order item creation failed: %w", err)
		}
		createdItem.Extras = nil

		for _, extra := range extras {
			extra.ID = ledger.RecordID{}
			extra.ItemID = createdItem.ID
			createdExtra, err := c.gw.Orders.CreateItemExtra(ctx, createdItem.ID, extra)
			if err != nil {
				c.compensateOrder(ctx, created.ID)
				return ledger.Order{}, fmt.Errorf("item extra creation failed: %w", err)
			}
			createdItem.Extras = append(createdItem.Extras, createdExtra)
		}
		created.Items = append(created.Items, createdItem)
	}
	return created, nil
}

func (c *Coordinator) compensateOrder(ctx context.Context, orderID ledger.RecordID) {
	if err := c.gw.Orders.Delete(ctx, orderID); err != nil {
		c.logger.Warn("compensating order delete failed; remote order may be orphaned",
			"id", orderID, "error", err)
	}
}

// promotePayments promotes pending payments last. A payment whose order or
// customer reference could not be resolved to a remote id is skipped, not
// submitted with a dangling reference; it stays pending for the next pass.
func (c *Coordinator) promotePayments(ctx context.Context) (int, int, error) {
	payments, err := c.cache.Payments.Load(ctx)
	if err != nil {
		return 0, 0, err
	}

	promoted := 0
	skipped := 0
	var abort error
	for i := range payments {
		localID := payments[i].ID
		if !localID.IsLocal() {
			continue
		}
		// Resolved references are written back to the cached record even for
		// skipped payments, so a reference promoted this pass is not lost
		// when the remap table resets before the next one.
		payments[i].OrderID = c.remap.Resolve(payments[i].OrderID)
		payments[i].CustomerID = c.remap.Resolve(payments[i].CustomerID)
		if payments[i].OrderID.IsLocal() || payments[i].CustomerID.IsLocal() {
			skipped++
			c.logger.Info("payment references unpromoted records, skipping this pass",
				"id", localID, "order_id", payments[i].OrderID, "customer_id", payments[i].CustomerID)
			continue
		}
		attempt := payments[i]
		attempt.ID = ledger.RecordID{}
		created, err := c.gw.Payments.Create(ctx, attempt)
		if err != nil {
			if gateway.IsConnectivity(err) {
				abort = err
				break
			}
			c.logger.Warn("payment promotion rejected, will retry next pass",
				"id", localID, "error", err)
			continue
		}
		c.remap.Record(localID, created.ID)
		payments[i] = created
		promoted++
	}

	if err := c.cache.Payments.Replace(ctx, payments); err != nil {
		return promoted, skipped, err
	}
	return promoted, skipped, abort
}
