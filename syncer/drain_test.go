// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// buildOfflineLedger creates a customer, employee, order (one item with one
// extra) and payment while the gateway is unreachable, leaving all of them
// local-pending with cross-references between their local ids.
func buildOfflineLedger(t *testing.T, coord *Coordinator, f *fakes) (ledger.Customer, ledger.Employee, ledger.Order, ledger.Payment) {
	t.Helper()
	ctx := context.Background()
	f.setErrAll(transportErr())

	cust, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "Asha", Phone: "9999"})
	require.NoError(t, err)
	emp, err := coord.CreateEmployee(ctx, ledger.Employee{Name: "Ravi", Role: "master"})
	require.NoError(t, err)

	order, err := coord.CreateOrder(ctx, ledger.Order{
		CustomerID:         cust.ID,
		AssignedEmployeeID: emp.ID,
		Items: []ledger.OrderItem{{
			Garment:  "sherwani",
			Quantity: 1,
			Price:    decimal.RequireFromString("1250.50"),
			Extras: []ledger.OrderItemExtra{{
				Name:  "embroidery",
				Price: decimal.RequireFromString("300"),
			}},
		}},
	})
	require.NoError(t, err)
	require.True(t, order.ID.IsLocal())

	payment, err := coord.CreatePayment(ctx, ledger.Payment{
		OrderID:    order.ID,
		CustomerID: cust.ID,
		Amount:     decimal.RequireFromString("500"),
		Method:     ledger.PaymentCash,
	})
	require.NoError(t, err)
	require.True(t, payment.ID.IsLocal())

	require.False(t, coord.Online())
	f.setErrAll(nil)
	return cust, emp, order, payment
}

func TestForceResyncPromotesInDependencyOrder(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	cust, _, _, _ := buildOfflineLedger(t, coord, f)

	require.NoError(t, coord.ForceResync(ctx))
	require.True(t, coord.Online())
	require.False(t, coord.Syncing())

	// Customer promoted first; the order's reference was rewritten to the id
	// returned by that promotion, never a stale local id.
	require.Len(t, f.customers.recs, 1)
	require.Equal(t, "cust_1", f.customers.recs[0].ID.Token())
	require.Len(t, f.orders.recs, 1)
	remoteOrder := f.orders.recs[0]
	require.Equal(t, "cust_1", remoteOrder.CustomerID.Token())
	require.False(t, remoteOrder.CustomerID.IsLocal())
	require.Equal(t, "emp_1", remoteOrder.AssignedEmployeeID.Token())

	// Line item and extra created as sub-records under the new parent ids.
	require.Len(t, remoteOrder.Items, 1)
	require.Equal(t, "itm_1", remoteOrder.Items[0].ID.Token())
	require.Equal(t, remoteOrder.ID, remoteOrder.Items[0].OrderID)

	// Payment promoted last, with both references resolved.
	require.Len(t, f.payments.recs, 1)
	require.Equal(t, "ord_1", f.payments.recs[0].OrderID.Token())
	require.Equal(t, "cust_1", f.payments.recs[0].CustomerID.Token())

	// The local cache now holds only remote-id records; the old local-id
	// entries are gone, not merely updated.
	cachedCustomers, err := store.Collections().Customers.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cachedCustomers, 1)
	require.False(t, cachedCustomers[0].ID.IsLocal())
	require.False(t, cachedCustomers[0].ID.Equal(cust.ID))

	cachedOrders, err := store.Collections().Orders.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cachedOrders, 1)
	require.False(t, cachedOrders[0].ID.IsLocal())
	require.Equal(t, "cust_1", cachedOrders[0].CustomerID.Token())
}

func TestDrainIsIdempotent(t *testing.T) {
	coord, f, _ := newTestCoordinator(t)
	ctx := context.Background()
	buildOfflineLedger(t, coord, f)

	require.NoError(t, coord.ForceResync(ctx))
	custCreates := f.customers.creates
	orderCreates := f.orders.creates
	payCreates := f.payments.creates

	// Second pass with nothing pending must not create anything remotely.
	require.NoError(t, coord.ForceResync(ctx))
	require.Equal(t, custCreates, f.customers.creates)
	require.Equal(t, orderCreates, f.orders.creates)
	require.Equal(t, payCreates, f.payments.creates)
	require.Len(t, f.customers.recs, 1)
	require.Len(t, f.orders.recs, 1)
	require.Len(t, f.payments.recs, 1)
}

func TestPartialFailureIsolation(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	f.setErrAll(transportErr())

	_, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "Alpha"})
	require.NoError(t, err)
	beta, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "Beta"})
	require.NoError(t, err)
	_, err = coord.CreateOrder(ctx, ledger.Order{CustomerID: beta.ID})
	require.NoError(t, err)

	f.setErrAll(nil)
	f.customers.rejectCreate = func(c ledger.Customer) error {
		if c.Name == "Alpha" {
			return serverErr("validation failed")
		}
		return nil
	}

	require.NoError(t, coord.ForceResync(ctx), "per-record rejections do not fail the pass")
	require.True(t, coord.Online(), "server rejections are not connectivity failures")

	// Beta promoted, Alpha still pending, and the order referencing Beta
	// was not blocked by Alpha's failure.
	require.Len(t, f.customers.recs, 1)
	require.Equal(t, "Beta", f.customers.recs[0].Name)
	require.Len(t, f.orders.recs, 1)
	require.Equal(t, f.customers.recs[0].ID, f.orders.recs[0].CustomerID)

	cached, err := store.Collections().Customers.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 2)
	var alphaStillLocal bool
	for _, c := range cached {
		if c.Name == "Alpha" {
			alphaStillLocal = c.ID.IsLocal()
		}
	}
	require.True(t, alphaStillLocal, "failed promotion leaves the record local-pending")
}

func TestPaymentSkippedWhenOrderStillPending(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	buildOfflineLedger(t, coord, f)

	f.orders.rejectCreate = func(ledger.Order) error { return serverErr("order rejected") }

	require.NoError(t, coord.ForceResync(ctx))
	require.True(t, coord.Online())

	require.Equal(t, 0, f.payments.creates, "payment with a dangling order ref must not be submitted")
	require.Empty(t, f.payments.recs)

	cachedPayments, err := store.Collections().Payments.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cachedPayments, 1)
	require.True(t, cachedPayments[0].ID.IsLocal(), "skipped payment stays pending for the next pass")

	cachedOrders, err := store.Collections().Orders.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cachedOrders, 1)
	require.True(t, cachedOrders[0].ID.IsLocal())

	// Next pass with the rejection lifted promotes both.
	f.orders.rejectCreate = nil
	require.NoError(t, coord.ForceResync(ctx))
	require.Len(t, f.orders.recs, 1)
	require.Len(t, f.payments.recs, 1)
	require.Equal(t, f.orders.recs[0].ID, f.payments.recs[0].OrderID)
}

func TestCompensatingDeleteOnItemFailure(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	buildOfflineLedger(t, coord, f)

	f.orders.failItem = func(ledger.OrderItem) error { return serverErr("item rejected") }

	require.NoError(t, coord.ForceResync(ctx))

	// The just-created parent was deleted so the remote store holds no
	// orphaned order, and the order remains local-pending.
	require.Len(t, f.orders.deletes, 1)
	require.Empty(t, f.orders.recs)

	cachedOrders, err := store.Collections().Orders.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cachedOrders, 1)
	require.True(t, cachedOrders[0].ID.IsLocal())
}

func TestTransportFailureAbortsPass(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	buildOfflineLedger(t, coord, f)

	f.customers.err = transportErr()

	err := coord.ForceResync(ctx)
	require.Error(t, err)
	require.False(t, coord.Online())
	require.False(t, coord.Syncing(), "sync mutex must be released on abort")

	// Nothing was promoted past the failure point.
	require.Empty(t, f.orders.recs)
	require.Empty(t, f.payments.recs)

	cached, err := store.Collections().Customers.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	require.True(t, cached[0].ID.IsLocal())
}

func TestPromotionProgressSurvivesMidPassAbort(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()
	f.setErrAll(transportErr())

	_, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "First"})
	require.NoError(t, err)
	_, err = coord.CreateCustomer(ctx, ledger.Customer{Name: "Second"})
	require.NoError(t, err)

	f.setErrAll(nil)
	// Fail with a connectivity error on the second create only.
	calls := 0
	f.customers.rejectCreate = func(ledger.Customer) error {
		calls++
		if calls == 2 {
			return transportErr()
		}
		return nil
	}

	require.Error(t, coord.ForceResync(ctx))
	require.False(t, coord.Online())

	// The first promotion is durable; the second record is still pending.
	cached, err := store.Collections().Customers.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 2)
	promoted := 0
	for _, c := range cached {
		if !c.ID.IsLocal() {
			promoted++
		}
	}
	require.Equal(t, 1, promoted, "completed promotions must persist across an aborted pass")

	// Re-running after recovery does not double-promote the first record.
	f.customers.rejectCreate = nil
	require.NoError(t, coord.ForceResync(ctx))
	require.Len(t, f.customers.recs, 2)
}

func TestReferencesToAlreadyRemoteRecordsPassThrough(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()

	// A customer that already lives remotely.
	remoteCust := ledger.Customer{ID: ledger.RemoteID("cust_77"), Name: "Existing"}
	f.customers.recs = []ledger.Customer{remoteCust}
	require.NoError(t, store.Collections().Customers.Replace(ctx, []ledger.Customer{remoteCust}))

	f.setErrAll(transportErr())
	_, err := coord.CreateOrder(ctx, ledger.Order{CustomerID: remoteCust.ID})
	require.NoError(t, err)
	f.setErrAll(nil)

	require.NoError(t, coord.ForceResync(ctx))
	require.Len(t, f.orders.recs, 1)
	require.Equal(t, "cust_77", f.orders.recs[0].CustomerID.Token(),
		"an unmapped reference falls through the remapper unchanged")
}

func TestForceResyncOverwritesCacheButKeepsPending(t *testing.T) {
	coord, f, store := newTestCoordinator(t)
	ctx := context.Background()

	// A peer device created a customer we have never seen.
	f.customers.recs = []ledger.Customer{{ID: ledger.RemoteID("cust_50"), Name: "FromServer"}}

	f.setErrAll(transportErr())
	_, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "Mine"})
	require.NoError(t, err)
	f.setErrAll(nil)
	f.customers.rejectCreate = func(ledger.Customer) error { return serverErr("rejected") }

	require.NoError(t, coord.ForceResync(ctx))

	cached, err := store.Collections().Customers.Load(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 2, "remote snapshot plus the still-pending record")
	names := map[string]bool{}
	for _, c := range cached {
		names[c.Name] = true
	}
	require.True(t, names["FromServer"])
	require.True(t, names["Mine"])
}

func TestResyncLeavesActivityLogIntact(t *testing.T) {
	coord, f, _ := newTestCoordinator(t)
	ctx := context.Background()
	buildOfflineLedger(t, coord, f)

	before, err := coord.RecentActivity(ctx, 50)
	require.NoError(t, err)
	require.NotEmpty(t, before, "the offline transition was recorded")

	require.NoError(t, coord.ForceResync(ctx))

	after, err := coord.RecentActivity(ctx, 50)
	require.NoError(t, err)
	require.Greater(t, len(after), len(before), "resync appends, never rewrites")

	// Entries are newest first; everything recorded before the resync is
	// still present, byte for byte, at the tail.
	require.Equal(t, before, after[len(after)-len(before):])

	msgs := make([]string, 0, len(after))
	for _, e := range after {
		msgs = append(msgs, e.Message)
	}
	require.Contains(t, msgs, "switched to offline mode")
	require.Contains(t, msgs, "full resync completed")
}

func TestAshaScenario(t *testing.T) {
	// Local-only customer {name: "Asha", phone: "9999"} created while
	// offline; after resync every order that referenced the local id shows
	// the gateway-assigned id instead.
	coord, f, _ := newTestCoordinator(t)
	ctx := context.Background()
	f.setErrAll(transportErr())

	asha, err := coord.CreateCustomer(ctx, ledger.Customer{Name: "Asha", Phone: "9999"})
	require.NoError(t, err)
	require.True(t, asha.ID.IsLocal())

	order, err := coord.CreateOrder(ctx, ledger.Order{CustomerID: asha.ID})
	require.NoError(t, err)
	require.True(t, order.CustomerID.IsLocal())

	f.setErrAll(nil)
	require.NoError(t, coord.ForceResync(ctx))

	orders, err := coord.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Equal(t, "cust_1", orders[0].CustomerID.Token())
	require.False(t, orders[0].CustomerID.IsLocal())
}
