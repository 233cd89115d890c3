// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"errors"
	"fmt"
)

// Kind classifies a gateway failure. The sync coordinator routes on this:
// transport and auth failures flip the device offline, server failures are
// per-record rejections that leave the record pending.
type Kind int

const (
	// KindTransport covers dial failures, timeouts and broken bodies.
	KindTransport Kind = iota
	// KindAuth covers token rejection (401/403) and token callback failures.
	KindAuth
	// KindServer covers any other non-2xx response (validation, conflict).
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	}
	return "unknown"
}

// Error is the typed failure raised by every gateway operation.
type Error struct {
	Kind   Kind
	Op     string // e.g. "create customers"
	Status int    // HTTP status, 0 for transport failures
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway %s: %s error (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("gateway %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func isKind(err error, kind Kind) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Kind == kind
}

// IsTransport reports whether err is a connectivity-level failure.
func IsTransport(err error) bool { return isKind(err, KindTransport) }

// IsAuth reports whether err is a session/token failure.
func IsAuth(err error) bool { return isKind(err, KindAuth) }

// IsServer reports whether err is a remote-store rejection.
func IsServer(err error) bool { return isKind(err, KindServer) }

// IsConnectivity reports whether err should flip the device offline.
func IsConnectivity(err error) bool { return IsTransport(err) || IsAuth(err) }
