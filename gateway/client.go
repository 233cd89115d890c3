// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is the thin client for the authoritative remote store.
// Each operation is a single HTTP request per collection with no client-side
// multi-step transactions; every failure is reported as a typed *Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// TokenFunc returns a bearer token for the current session. The tenant scope
// is carried inside the token; the gateway never sends it separately.
type TokenFunc func(ctx context.Context) (string, error)

// Client performs CRUD operations against the remote backend.
type Client struct {
	BaseURL string
	Token   TokenFunc
	HTTP    *http.Client
	logger  *slog.Logger
}

// NewClient creates a gateway client for the given backend base URL.
func NewClient(baseURL string, tok TokenFunc, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		BaseURL: baseURL,
		Token:   tok,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// errorEnvelope matches the backend's JSON error body.
type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// do performs one JSON request. body may be nil; out may be nil for
// operations without a response payload.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return &Error{Kind: KindAuth, Op: op, Err: fmt.Errorf("token callback: %w", err)}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindServer, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", op, "error", err)
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("request rejected", "op", op, "status", resp.StatusCode)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &Error{Kind: KindAuth, Op: op, Status: resp.StatusCode, Err: decodeEnvelope(resp.Body)}
		}
		return &Error{Kind: KindServer, Op: op, Status: resp.StatusCode, Err: decodeEnvelope(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func decodeEnvelope(r io.Reader) error {
	var envelope errorEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil || envelope.Error == "" {
		return fmt.Errorf("request rejected")
	}
	return fmt.Errorf("%s: %s", envelope.Error, envelope.Message)
}

// stripFields re-encodes rec as a JSON object without the named fields.
// Create payloads must never carry an id; the backend assigns one.
func stripFields(rec any, fields ...string) (map[string]any, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil, err
	}
	for _, f := range fields {
		delete(obj, f)
	}
	return obj, nil
}

// Collection is the typed CRUD client for one entity collection.
type Collection[T any] struct {
	client *Client
	path   string // URL segment, e.g. "customers"
}

// List fetches the full collection for the session's tenant.
func (cc *Collection[T]) List(ctx context.Context) ([]T, error) {
	var recs []T
	if err := cc.client.do(ctx, "list "+cc.path, http.MethodGet, "/api/"+cc.path, nil, &recs); err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []T{}
	}
	return recs, nil
}

// Create submits a new record and returns it with its server-assigned id.
func (cc *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var created T
	obj, err := stripFields(rec, "id")
	if err != nil {
		return created, &Error{Kind: KindServer, Op: "create " + cc.path, Err: err}
	}
	if err := cc.client.do(ctx, "create "+cc.path, http.MethodPost, "/api/"+cc.path, obj, &created); err != nil {
		return created, err
	}
	return created, nil
}

// Update replaces the record with the given remote id.
func (cc *Collection[T]) Update(ctx context.Context, id ledger.RecordID, rec T) (T, error) {
	var updated T
	err := cc.client.do(ctx, "update "+cc.path, http.MethodPut, "/api/"+cc.path+"/"+id.Token(), rec, &updated)
	if err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete removes the record with the given remote id.
func (cc *Collection[T]) Delete(ctx context.Context, id ledger.RecordID) error {
	return cc.client.do(ctx, "delete "+cc.path, http.MethodDelete, "/api/"+cc.path+"/"+id.Token(), nil, nil)
}

// Customers returns the customers collection client.
func (c *Client) Customers() *Collection[ledger.Customer] {
	return &Collection[ledger.Customer]{client: c, path: "customers"}
}

// Employees returns the employees collection client.
func (c *Client) Employees() *Collection[ledger.Employee] {
	return &Collection[ledger.Employee]{client: c, path: "employees"}
}

// Payments returns the payments collection client.
func (c *Client) Payments() *Collection[ledger.Payment] {
	return &Collection[ledger.Payment]{client: c, path: "payments"}
}

// Presets returns the extras presets collection client.
func (c *Client) Presets() *Collection[ledger.ExtrasPreset] {
	return &Collection[ledger.ExtrasPreset]{client: c, path: "extras-presets"}
}

// Orders is the orders collection client. Line items and their extras are
// sub-records created with individual requests scoped to the parent id;
// they are not wrapped in any server-side transaction.
type Orders struct {
	Collection[ledger.Order]
}

// Orders returns the orders collection client.
func (c *Client) Orders() *Orders {
	return &Orders{Collection[ledger.Order]{client: c, path: "orders"}}
}

// Create submits the order header only. Items travel as separate
// CreateItem/CreateItemExtra requests after the parent id is known.
func (o *Orders) Create(ctx context.Context, rec ledger.Order) (ledger.Order, error) {
	var created ledger.Order
	obj, err := stripFields(rec, "id", "items")
	if err != nil {
		return created, &Error{Kind: KindServer, Op: "create orders", Err: err}
	}
	if err := o.client.do(ctx, "create orders", http.MethodPost, "/api/orders", obj, &created); err != nil {
		return created, err
	}
	return created, nil
}

// CreateItem adds a line item to an existing remote order.
func (o *Orders) CreateItem(ctx context.Context, orderID ledger.RecordID, item ledger.OrderItem) (ledger.OrderItem, error) {
	var created ledger.OrderItem
	obj, err := stripFields(item, "id", "order_id", "extras")
	if err != nil {
		return created, &Error{Kind: KindServer, Op: "create order item", Err: err}
	}
	err = o.client.do(ctx, "create order item", http.MethodPost,
		"/api/orders/"+orderID.Token()+"/items", obj, &created)
	if err != nil {
		return created, err
	}
	return created, nil
}

// CreateItemExtra adds an extra to an existing remote line item.
func (o *Orders) CreateItemExtra(ctx context.Context, itemID ledger.RecordID, extra ledger.OrderItemExtra) (ledger.OrderItemExtra, error) {
	var created ledger.OrderItemExtra
	obj, err := stripFields(extra, "id", "item_id")
	if err != nil {
		return created, &Error{Kind: KindServer, Op: "create item extra", Err: err}
	}
	err = o.client.do(ctx, "create item extra", http.MethodPost,
		"/api/order-items/"+itemID.Token()+"/extras", obj, &created)
	if err != nil {
		return created, err
	}
	return created, nil
}
