// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

func staticToken(tok string) TokenFunc {
	return func(ctx context.Context) (string, error) { return tok, nil }
}

func TestListAndCreateHappyPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/customers", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]ledger.Customer{{ID: ledger.RemoteID("cust_1"), Name: "Asha"}})
	})
	mux.HandleFunc("POST /api/customers", func(w http.ResponseWriter, r *http.Request) {
		var obj map[string]any
		if err := json.NewDecoder(r.Body).Decode(&obj); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if _, ok := obj["id"]; ok {
			t.Errorf("create payload must not carry an id, got %v", obj)
		}
		json.NewEncoder(w).Encode(ledger.Customer{ID: ledger.RemoteID("cust_2"), Name: obj["name"].(string)})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok-1"), nil)
	ctx := context.Background()

	recs, err := client.Customers().List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Name != "Asha" {
		t.Fatalf("unexpected list result: %+v", recs)
	}

	created, err := client.Customers().Create(ctx, ledger.Customer{ID: ledger.NewLocalID(), Name: "Binod"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID.Token() != "cust_2" || created.ID.IsLocal() {
		t.Fatalf("expected server-assigned remote id, got %#v", created.ID)
	}
}

func TestOrderCreateStripsItems(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var obj map[string]any
		json.NewDecoder(r.Body).Decode(&obj)
		if _, ok := obj["items"]; ok {
			t.Errorf("order create must not embed items, got %v", obj)
		}
		json.NewEncoder(w).Encode(ledger.Order{ID: ledger.RemoteID("ord_1")})
	})
	mux.HandleFunc("POST /api/orders/ord_1/items", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ledger.OrderItem{ID: ledger.RemoteID("itm_1"), OrderID: ledger.RemoteID("ord_1")})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, staticToken("tok"), nil)
	ctx := context.Background()

	order := ledger.Order{
		ID:         ledger.NewLocalID(),
		CustomerID: ledger.RemoteID("cust_1"),
		Items:      []ledger.OrderItem{{ID: ledger.NewLocalID(), Garment: "saree blouse"}},
	}
	created, err := client.Orders().Create(ctx, order)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if created.ID.Token() != "ord_1" {
		t.Fatalf("expected ord_1, got %#v", created.ID)
	}

	item, err := client.Orders().CreateItem(ctx, created.ID, order.Items[0])
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if item.ID.Token() != "itm_1" {
		t.Fatalf("expected itm_1, got %#v", item.ID)
	}
}

func TestErrorClassification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/customers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "authentication_failed", "message": "token expired"})
	})
	mux.HandleFunc("POST /api/customers", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request", "message": "name required"})
	})
	srv := httptest.NewServer(mux)
	client := NewClient(srv.URL, staticToken("tok"), nil)
	ctx := context.Background()

	_, err := client.Customers().List(ctx)
	if !IsAuth(err) || !IsConnectivity(err) {
		t.Fatalf("expected auth error, got %v", err)
	}

	_, err = client.Customers().Create(ctx, ledger.Customer{})
	if !IsServer(err) || IsConnectivity(err) {
		t.Fatalf("expected server error, got %v", err)
	}

	// Transport: server gone.
	srv.Close()
	_, err = client.Customers().List(ctx)
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTokenCallbackFailureIsAuth(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", func(ctx context.Context) (string, error) {
		return "", context.DeadlineExceeded
	}, nil)

	_, err := client.Customers().List(context.Background())
	if !IsAuth(err) {
		t.Fatalf("expected auth error from token callback, got %v", err)
	}
}
