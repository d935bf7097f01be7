// Package store persists the append-only operation log that the sync engine
// folds into the CRDT document, plus a best-effort projection of current
// tab/window state that is written but never read back by this module. The
// log is the single source of truth: the projection tables may be dropped
// and rebuilt from it at any time without losing correctness.
package store

import (
	"errors"

	"github.com/amaydixit11/tabsync/internal/ops"
)

// ErrNotFound is returned by GetDeviceState for a device with no stored
// operations.
var ErrNotFound = errors.New("store: not found")

// OperationStore is the operation log's persistence contract. Every method
// is safe for concurrent use.
type OperationStore interface {
	// Store appends one operation to the log under the given server clock
	// and originating device. Storing is idempotent on the synthetic id
	// `{clock}_{device_id}_{target_id}`: a retried write of the same
	// operation at the same clock is a no-op, not a duplicate row.
	Store(op ops.Operation, clock uint64, deviceID string) error

	// GetSince returns every operation with clock > sinceClock that was NOT
	// authored by deviceID, in ascending clock order. This is the normal
	// incremental sync path.
	GetSince(deviceID string, sinceClock uint64) ([]ops.Stored, error)

	// GetAll returns the entire log, excluding deviceID's own operations,
	// in ascending clock order. Used for a device's first sync: the
	// response must be untruncated.
	GetAll(deviceID string) ([]ops.Stored, error)

	// GetRecent returns at most limit of the most recent operations NOT
	// authored by deviceID, in ascending clock order. Bounded diagnostic
	// counterpart to GetAll/GetSince: used by the health endpoint's
	// ?recent= enrichment, never by the sync path itself.
	GetRecent(deviceID string, limit int) ([]ops.Stored, error)

	// GetMaxClock returns the highest clock value ever stored, or 0 if the
	// log is empty. Used once at bootstrap to seed the Lamport clock.
	GetMaxClock() (uint64, error)

	// GetDeviceState returns the highest clock among deviceID's own stored
	// operations, their count, and the last-write time, or ErrNotFound if
	// the device has no stored operations (a device that has only pulled
	// changes counts as unknown). Purely diagnostic: the health endpoint's optional
	// ?device_id= enrichment is the only caller.
	GetDeviceState(deviceID string) (DeviceState, error)

	Close() error
}

// DeviceState is a diagnostic snapshot of one device's position in the log.
type DeviceState struct {
	DeviceID       string `json:"device_id"`
	LastClock      uint64 `json:"last_clock"`
	OperationCount int    `json:"operation_count"`
	LastSyncAt     int64  `json:"last_sync_at"`
}
