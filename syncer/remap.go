// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package syncer

import (
	"github.com/Aakash1702/TailorFlow-sub000/ledger"
)

// IDMap is the session-scoped forward mapping from locally-generated ids to
// the ids the remote store assigned during promotion. It is rebuilt at the
// start of each drain pass and is append-only while the pass runs.
type IDMap struct {
	forward map[string]ledger.RecordID
}

// NewIDMap returns an empty mapping.
func NewIDMap() *IDMap {
	return &IDMap{forward: make(map[string]ledger.RecordID)}
}

// Reset clears all entries. Called once at the start of a drain pass.
func (m *IDMap) Reset() {
	m.forward = make(map[string]ledger.RecordID)
}

// Record stores the promotion local -> remote. Non-local keys are ignored.
func (m *IDMap) Record(local, remote ledger.RecordID) {
	if !local.IsLocal() || remote.IsZero() {
		return
	}
	m.forward[local.Token()] = remote
}

// Resolve rewrites a reference through the mapping. When no mapping exists
// the input is returned unchanged, which covers both "already remote" and
// "promotion failed this pass"; callers that must distinguish check
// IsLocal() on the result.
func (m *IDMap) Resolve(id ledger.RecordID) ledger.RecordID {
	if !id.IsLocal() {
		return id
	}
	if remote, ok := m.forward[id.Token()]; ok {
		return remote
	}
	return id
}

// Len returns the number of recorded promotions.
func (m *IDMap) Len() int { return len(m.forward) }
