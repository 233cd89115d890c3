// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"testing"

	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

func TestIDMapResolve(t *testing.T) {
	m := NewIDMap()
	local := ledger.NewLocalID()
	remote := ledger.RemoteID("cust_42")
	m.Record(local, remote)

	if got := m.Resolve(local); !got.Equal(remote) {
		t.Fatalf("expected %#v, got %#v", remote, got)
	}

	// Unmapped ids fall through unchanged, whether local or remote.
	other := ledger.NewLocalID()
	if got := m.Resolve(other); !got.Equal(other) {
		t.Fatalf("unmapped local id must pass through, got %#v", got)
	}
	already := ledger.RemoteID("ord_7")
	if got := m.Resolve(already); !got.Equal(already) {
		t.Fatalf("remote id must pass through, got %#v", got)
	}
}

func TestIDMapIgnoresNonLocalKeys(t *testing.T) {
	m := NewIDMap()
	m.Record(ledger.RemoteID("cust_1"), ledger.RemoteID("cust_2"))
	if m.Len() != 0 {
		t.Fatalf("remote keys must not be recorded, len=%d", m.Len())
	}
}

func TestIDMapReset(t *testing.T) {
	m := NewIDMap()
	local := ledger.NewLocalID()
	m.Record(local, ledger.RemoteID("emp_1"))
	m.Reset()
	if m.Len() != 0 {
		t.Fatalf("reset must clear all entries, len=%d", m.Len())
	}
	if got := m.Resolve(local); !got.Equal(local) {
		t.Fatalf("after reset the id must pass through, got %#v", got)
	}
}
