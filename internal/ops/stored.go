package ops

import "fmt"

// Stored wraps an Operation with the envelope assigned by the sync engine
// when it was accepted: a globally-unique id, the server clock it was
// stamped with, the originating device, and a wall-clock record of when it
// was written. Immutable once constructed.
type Stored struct {
	ID        string
	Clock     uint64
	DeviceID  string
	Operation Operation
	CreatedAt int64 // unix seconds
}

// NewStoredID builds the synthetic id `{clock}_{device_id}_{target_id}`
// used as the operation log's primary key.
func NewStoredID(clock uint64, deviceID, targetID string) string {
	return fmt.Sprintf("%d_%s_%s", clock, deviceID, targetID)
}
