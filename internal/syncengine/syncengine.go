// Package syncengine implements the single sync operation spec.md §4.5
// describes, taking only the request (authentication is checked beforehand
// by internal/httpapi and never reaches the engine): validate, stamp and persist each
// inbound operation against the Lamport clock, fold it into the CRDT
// document, then select the outbound operations the caller hasn't seen.
package syncengine

import (
	"github.com/rs/zerolog"

	"github.com/amaydixit11/tabsync/internal/apperr"
	"github.com/amaydixit11/tabsync/internal/core"
	"github.com/amaydixit11/tabsync/internal/crdtdoc"
	"github.com/amaydixit11/tabsync/internal/ops"
	"github.com/amaydixit11/tabsync/internal/store"
	"github.com/amaydixit11/tabsync/internal/validate"
)

// Request is the wire shape of a sync call's body.
type Request struct {
	Clock      uint64     `json:"clock"`
	DeviceID   string     `json:"device_id"`
	SinceClock *uint64    `json:"since_clock,omitempty"`
	Operations ops.List   `json:"operations"`
}

// Response is the wire shape of a sync call's reply.
type Response struct {
	Clock      uint64   `json:"clock"`
	Operations ops.List `json:"operations"`
}

// Engine owns the single default clock, document, and log this process
// serves. It is safe for concurrent use: the clock is lock-free, the
// document guards itself, and the log is backed by a connection pool of
// size 1 (see internal/store).
type Engine struct {
	clock  *core.Clock
	doc    *crdtdoc.Document
	log    store.OperationStore
	limits validate.Limits
	logger zerolog.Logger
}

// New wires an Engine around an already-recovered clock and document (see
// internal/bootstrap).
func New(clock *core.Clock, doc *crdtdoc.Document, log store.OperationStore, limits validate.Limits, logger zerolog.Logger) *Engine {
	return &Engine{clock: clock, doc: doc, log: log, limits: limits, logger: logger}
}

// Sync runs the full procedure in spec.md §4.5: request-shape validation,
// per-operation validation, clock update, per-operation tick/store/apply,
// then outbound selection. Any step's failure aborts before the next
// step runs; operations already stored and applied earlier in the loop
// remain committed (§5's partial-commit tolerance).
func (e *Engine) Sync(req Request) (*Response, error) {
	if err := validate.Request(req.DeviceID, req.Clock, req.SinceClock, len(req.Operations)); err != nil {
		return nil, err
	}
	for _, op := range req.Operations {
		if err := validate.Operation(op, e.limits); err != nil {
			return nil, err
		}
	}

	e.clock.Update(req.Clock)

	for _, op := range req.Operations {
		opClock := e.clock.Tick()
		if err := e.log.Store(op, opClock, req.DeviceID); err != nil {
			e.logger.Error().Err(err).Str("device_id", req.DeviceID).Msg("sync: failed to persist operation")
			return nil, apperr.DatabaseTransient(err)
		}
		e.doc.Apply(op, opClock)
	}

	outbound, err := e.selectOutbound(req.DeviceID, req.SinceClock)
	if err != nil {
		return nil, apperr.DatabaseTransient(err)
	}

	out := make(ops.List, len(outbound))
	for i, s := range outbound {
		out[i] = s.Operation
	}

	return &Response{Clock: e.clock.Now(), Operations: out}, nil
}

// selectOutbound implements step 5: since_clock present -> incremental
// fetch; absent -> the complete, untruncated log excluding the caller's
// own operations (initial sync).
func (e *Engine) selectOutbound(deviceID string, sinceClock *uint64) ([]ops.Stored, error) {
	if sinceClock != nil {
		return e.log.GetSince(deviceID, *sinceClock)
	}
	return e.log.GetAll(deviceID)
}
