package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// testService connects to the Postgres named by TAILORFLOW_TEST_DB and
// returns a service scoped to a fresh throwaway tenant, so runs don't
// interfere with each other and no cleanup is needed.
func testService(t *testing.T) (*Service, string) {
	t.Helper()
	dsn := os.Getenv("TAILORFLOW_TEST_DB")
	if dsn == "" {
		t.Skip("TAILORFLOW_TEST_DB not set; skipping Postgres integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService(ctx, pool, logger)
	require.NoError(t, err)

	return svc, "shop-test-" + uuid.NewString()[:8]
}

func TestCustomerCRUD(t *testing.T) {
	svc, tenant := testService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, tenant, ledger.Customer{
		Name:  "Asha",
		Phone: "555-0101",
	})
	require.NoError(t, err)
	require.False(t, created.ID.IsLocal())
	require.True(t, strings.HasPrefix(created.ID.Token(), "cust_"))
	require.False(t, created.CreatedAt.IsZero())

	listed, err := svc.ListCustomers(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "Asha", listed[0].Name)

	created.Notes = "prefers silk"
	updated, err := svc.UpdateCustomer(ctx, tenant, created.ID.Token(), created)
	require.NoError(t, err)
	require.Equal(t, "prefers silk", updated.Notes)
	require.True(t, updated.ID.Equal(created.ID))

	_, err = svc.UpdateCustomer(ctx, tenant, "cust_missing", created)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.DeleteCustomer(ctx, tenant, created.ID.Token()))
	require.ErrorIs(t, svc.DeleteCustomer(ctx, tenant, created.ID.Token()), ErrNotFound)
}

func TestOrderWithItemsAndExtras(t *testing.T) {
	svc, tenant := testService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, tenant, ledger.Customer{Name: "Asha"})
	require.NoError(t, err)
	emp, err := svc.CreateEmployee(ctx, tenant, ledger.Employee{Name: "Ravi", Role: "tailor"})
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, tenant, ledger.Order{
		CustomerID:         cust.ID,
		AssignedEmployeeID: emp.ID,
		DueDate:            time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(order.ID.Token(), "ord_"))
	require.Equal(t, ledger.OrderStatusOpen, order.Status)

	item, err := svc.CreateOrderItem(ctx, tenant, order.ID.Token(), ledger.OrderItem{
		Garment:  "sherwani",
		Quantity: 1,
		Price:    decimal.NewFromInt(240),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(item.ID.Token(), "itm_"))

	extra, err := svc.CreateOrderItemExtra(ctx, tenant, item.ID.Token(), ledger.OrderItemExtra{
		Name:  "embroidery",
		Price: decimal.NewFromInt(35),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(extra.ID.Token(), "ext_"))

	orders, err := svc.ListOrders(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 1)
	require.Len(t, orders[0].Items[0].Extras, 1)
	require.True(t, orders[0].Items[0].Price.Equal(decimal.NewFromInt(240)))
	require.True(t, orders[0].Items[0].Extras[0].Price.Equal(decimal.NewFromInt(35)))

	// Item creation under a foreign order must not leak across tenants.
	_, err = svc.CreateOrderItem(ctx, "other-tenant", order.ID.Token(), ledger.OrderItem{Garment: "kurta"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentReferenceValidation(t *testing.T) {
	svc, tenant := testService(t)
	ctx := context.Background()

	cust, err := svc.CreateCustomer(ctx, tenant, ledger.Customer{Name: "Asha"})
	require.NoError(t, err)

	_, err = svc.CreatePayment(ctx, tenant, ledger.Payment{
		OrderID:    ledger.RemoteID("ord_missing"),
		CustomerID: cust.ID,
		Amount:     decimal.NewFromInt(50),
		Method:     ledger.PaymentCash,
	})
	var refErr *RefError
	require.True(t, errors.As(err, &refErr))
	require.Equal(t, "order_id", refErr.Field)

	order, err := svc.CreateOrder(ctx, tenant, ledger.Order{CustomerID: cust.ID})
	require.NoError(t, err)

	pay, err := svc.CreatePayment(ctx, tenant, ledger.Payment{
		OrderID:    order.ID,
		CustomerID: cust.ID,
		Amount:     decimal.NewFromInt(50),
		Method:     ledger.PaymentCash,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(pay.ID.Token(), "pay_"))
	require.False(t, pay.PaidAt.IsZero())

	payments, err := svc.ListPayments(ctx, tenant)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.True(t, payments[0].Amount.Equal(decimal.NewFromInt(50)))
}

func TestTenantIsolation(t *testing.T) {
	svc, tenant := testService(t)
	ctx := context.Background()

	created, err := svc.CreateCustomer(ctx, tenant, ledger.Customer{Name: "Asha"})
	require.NoError(t, err)

	other, err := svc.ListCustomers(ctx, "some-other-shop")
	require.NoError(t, err)
	require.Empty(t, other)

	_, err = svc.UpdateCustomer(ctx, "some-other-shop", created.ID.Token(), created)
	require.ErrorIs(t, err, ErrNotFound)
}
