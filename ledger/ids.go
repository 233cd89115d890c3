// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger defines the business record types shared by the local
// entity store, the remote gateway and the sync coordinator.
package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Namespace identifies which identifier space a record currently lives in.
// A record holds exactly one id at a time; promotion from local to remote
// replaces the id, it never adds a second one.
type Namespace uint8

const (
	// NamespaceRemote ids are assigned by the authoritative store on the
	// first successful remote write. The zero RecordID is an empty remote id.
	NamespaceRemote Namespace = iota
	// NamespaceLocal ids are generated on-device while offline or
	// unauthenticated, and exist only until the record is promoted.
	NamespaceLocal
)

// localPrefix tags local ids in their serialized form so cached snapshots
// round-trip across restarts. The prefix exists only at the JSON/storage
// boundary; in-memory code matches on the namespace tag, never the string.
const localPrefix = "local-"

// RecordID is a tagged identifier: Local(token) or Remote(token).
type RecordID struct {
	ns    Namespace
	token string
}

// NewLocalID generates a fresh device-local identifier.
func NewLocalID() RecordID {
	return RecordID{ns: NamespaceLocal, token: uuid.NewString()}
}

// RemoteID wraps an identifier assigned by the authoritative store.
func RemoteID(token string) RecordID {
	return RecordID{ns: NamespaceRemote, token: token}
}

// ParseID reconstructs a RecordID from its serialized form.
func ParseID(s string) RecordID {
	if rest, ok := strings.CutPrefix(s, localPrefix); ok {
		return RecordID{ns: NamespaceLocal, token: rest}
	}
	return RecordID{ns: NamespaceRemote, token: s}
}

// IsLocal reports whether the id belongs to the device-local namespace.
func (id RecordID) IsLocal() bool { return id.ns == NamespaceLocal }

// IsZero reports whether the id is unset. Used by json's omitzero.
func (id RecordID) IsZero() bool { return id.token == "" }

// Namespace returns the namespace tag of the id.
func (id RecordID) Namespace() Namespace { return id.ns }

// Token returns the raw identifier token without any namespace prefix.
func (id RecordID) Token() string { return id.token }

// String returns the serialized form ("local-<token>" or the bare token).
func (id RecordID) String() string {
	if id.ns == NamespaceLocal {
		return localPrefix + id.token
	}
	return id.token
}

// Equal reports whether two ids name the same record in the same namespace.
func (id RecordID) Equal(other RecordID) bool {
	return id.ns == other.ns && id.token == other.token
}

// MarshalText implements encoding.TextMarshaler so RecordID works both as a
// JSON value and as a JSON map key.
func (id RecordID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *RecordID) UnmarshalText(data []byte) error {
	*id = ParseID(string(data))
	return nil
}

// GoString helps test failure output distinguish namespaces.
func (id RecordID) GoString() string {
	if id.ns == NamespaceLocal {
		return fmt.Sprintf("ledger.ParseID(%q)", localPrefix+id.token)
	}
	return fmt.Sprintf("ledger.RemoteID(%q)", id.token)
}
