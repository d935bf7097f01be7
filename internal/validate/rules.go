// Package validate implements the structural and size constraints spec.md
// §4.6 places on incoming sync requests and operations.
package validate

import (
	"fmt"

	"github.com/amaydixit11/tabsync/internal/apperr"
	"github.com/amaydixit11/tabsync/internal/ops"
)

const (
	// MaxDeviceIDLength bounds device_id; fixed, not configurable.
	MaxDeviceIDLength = 128
	// MaxTargetIDLength bounds tab_id/window_id; fixed, not configurable.
	MaxTargetIDLength = 256
	// MaxOperationsPerBatch bounds operations per sync request.
	MaxOperationsPerBatch = 1000
	// SentinelDeviceID is the reserved auth-context device id that must
	// never appear as a request body device_id (see spec §9).
	SentinelDeviceID = "auth-validated"
)

// Limits holds the configurable size bounds validation enforces alongside
// the fixed structural ones above, sourced from sync.max_url_length and
// sync.max_title_length.
type Limits struct {
	MaxURLLength   int
	MaxTitleLength int
}

// Request validates the outer SyncRequest shape: device_id, clock
// ordering, batch size. Per-operation validation is separate (see
// Operation) because it must run against the decoded operation list.
func Request(deviceID string, clock uint64, sinceClock *uint64, opCount int) error {
	if deviceID == "" {
		return apperr.Validation("device_id", "device_id must not be empty")
	}
	if len(deviceID) > MaxDeviceIDLength {
		return apperr.Validation("device_id", fmt.Sprintf("device_id must be at most %d characters", MaxDeviceIDLength))
	}
	if deviceID == SentinelDeviceID {
		return apperr.Validation("device_id", "device_id must not be the reserved sentinel value")
	}
	if sinceClock != nil && *sinceClock > clock {
		return apperr.Validation("since_clock", "since_clock must not exceed clock")
	}
	if opCount > MaxOperationsPerBatch {
		return apperr.Validation("operations", fmt.Sprintf("operations batch must contain at most %d operations", MaxOperationsPerBatch))
	}
	return nil
}

// Operation validates a single operation's field constraints (§4.6:
// common target-id rule plus per-variant rules for UpsertTab, MoveTab, and
// ChangeUrl).
func Operation(op ops.Operation, limits Limits) error {
	targetID := op.TargetID()
	if targetID == "" {
		return apperr.Validation(targetIDField(op), "target id must not be empty")
	}
	if len(targetID) > MaxTargetIDLength {
		return apperr.Validation(targetIDField(op), fmt.Sprintf("target id must be at most %d characters", MaxTargetIDLength))
	}

	switch v := op.(type) {
	case ops.UpsertTab:
		if v.WindowID == "" {
			return apperr.Validation("window_id", "window_id must not be empty")
		}
		if v.URL == "" {
			return apperr.Validation("url", "url must not be empty")
		}
		if len(v.URL) > limits.MaxURLLength {
			return apperr.Validation("url", fmt.Sprintf("url must be at most %d characters", limits.MaxURLLength))
		}
		if len(v.Title) > limits.MaxTitleLength {
			return apperr.Validation("title", fmt.Sprintf("title must be at most %d characters", limits.MaxTitleLength))
		}
		if v.Index < 0 {
			return apperr.Validation("index", "index must be non-negative")
		}
	case ops.MoveTab:
		if v.WindowID == "" {
			return apperr.Validation("window_id", "window_id must not be empty")
		}
		if v.Index < 0 {
			return apperr.Validation("index", "index must be non-negative")
		}
	case ops.ChangeUrl:
		if v.URL == "" {
			return apperr.Validation("url", "url must not be empty")
		}
		if len(v.URL) > limits.MaxURLLength {
			return apperr.Validation("url", fmt.Sprintf("url must be at most %d characters", limits.MaxURLLength))
		}
	case ops.CloseTab, ops.SetActive, ops.TrackWindow, ops.UntrackWindow, ops.SetWindowFocus:
		// target id check above is the only rule these variants carry.
	default:
		return apperr.Validation("type", fmt.Sprintf("unrecognized operation type %q", op.OperationType()))
	}
	return nil
}

func targetIDField(op ops.Operation) string {
	switch op.(type) {
	case ops.TrackWindow, ops.UntrackWindow, ops.SetWindowFocus:
		return "window_id"
	default:
		return "tab_id"
	}
}
