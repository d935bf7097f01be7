// Package httpapi exposes the sync engine over HTTP: POST /sync and
// GET /health, matching spec.md §6's external interface. Structure and the
// ServeHTTP CORS wrapper are adapted from the teacher's pkg/api/api.go.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/amaydixit11/tabsync/internal/apperr"
	"github.com/amaydixit11/tabsync/internal/auth"
	"github.com/amaydixit11/tabsync/internal/ops"
	"github.com/amaydixit11/tabsync/internal/ratelimit"
	"github.com/amaydixit11/tabsync/internal/store"
	"github.com/amaydixit11/tabsync/internal/syncengine"
	"github.com/amaydixit11/tabsync/internal/validate"
)

// Server is the HTTP surface over one syncengine.Engine.
type Server struct {
	engine  *syncengine.Engine
	auth    *auth.Checker
	limiter *ratelimit.Limiter
	log     store.OperationStore
	schemas *validate.SchemaRegistry
	logger  zerolog.Logger
	version string

	maxPayloadSize int64
	corsOrigins    []string

	mux *http.ServeMux
}

// New builds a Server and registers its routes. schemas may be nil to skip
// the schema pre-validation pass (e.g. in tests exercising only field-level
// validation).
func New(engine *syncengine.Engine, checker *auth.Checker, limiter *ratelimit.Limiter, log store.OperationStore, schemas *validate.SchemaRegistry, logger zerolog.Logger, version string, maxPayloadSize int64, corsOrigins []string) *Server {
	s := &Server{
		engine:         engine,
		auth:           checker,
		limiter:        limiter,
		log:            log,
		schemas:        schemas,
		logger:         logger,
		version:        version,
		maxPayloadSize: maxPayloadSize,
		corsOrigins:    corsOrigins,
		mux:            http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// validateOperationShapes runs the JSON Schema registered for each
// operation's "type" tag against its raw bytes, before any of it is decoded
// into a concrete Go struct. This catches malformed wire shapes with one
// schema error instead of a generic unmarshal failure or a silently
// zero-valued field.
func validateOperationShapes(schemas *validate.SchemaRegistry, raw []byte) error {
	var envelope struct {
		Operations []json.RawMessage `json:"operations"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil // malformed JSON surfaces later as a clearer decode error
	}
	for _, opRaw := range envelope.Operations {
		var tag struct {
			Type ops.Type `json:"type"`
		}
		if err := json.Unmarshal(opRaw, &tag); err != nil {
			continue
		}
		if err := schemas.ValidateRaw(tag.Type, opRaw); err != nil {
			return apperr.Validation("operations", err.Error())
		}
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/sync", enforceJSON(s.logger, s.handleSync))
	s.mux.HandleFunc("/health", s.handleHealth)
}

// ServeHTTP sets CORS headers then dispatches to the route mux, matching
// the teacher's pkg/api/api.go wrapper.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := "*"
	if len(s.corsOrigins) > 0 {
		origin = s.corsOrigins[0]
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	authCtx, err := s.auth.Check(r)
	if err != nil {
		apperr.WriteJSON(w, s.logger, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxPayloadSize)
	raw, err := io.ReadAll(body)
	if err != nil {
		apperr.WriteJSON(w, s.logger, apperr.PayloadTooLarge())
		return
	}

	if s.schemas != nil {
		if err := validateOperationShapes(s.schemas, raw); err != nil {
			apperr.WriteJSON(w, s.logger, err)
			return
		}
	}

	var req syncengine.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		apperr.WriteJSON(w, s.logger, apperr.Validation("body", "malformed JSON request body"))
		return
	}

	if s.limiter != nil && !s.limiter.Allow(req.DeviceID) {
		apperr.WriteJSON(w, s.logger, apperr.RateLimited())
		return
	}

	resp, err := s.engine.Sync(req)
	if err != nil {
		apperr.WriteJSON(w, s.logger, err)
		return
	}

	_ = authCtx // validated but never used for protocol logic, per spec §9
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	DeviceID         string   `json:"device_id,omitempty"`
	LastClock        uint64   `json:"last_clock,omitempty"`
	OperationCount   int      `json:"operation_count,omitempty"`
	LastSyncAt       int64    `json:"last_sync_at,omitempty"`
	RecentOperations ops.List `json:"recent_operations,omitempty"`
}

// handleHealth always returns 200 when the process is serving. Two optional
// query parameters add diagnostic enrichment, neither part of the sync
// protocol itself: device_id reports the highest clock, count, and last
// write time of that device's own stored operations (omitted if it has none);
// device_id combined with recent=<n> additionally reports the n most recent
// operations not authored by that device (get_recent, bounded history).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}

	deviceID := r.URL.Query().Get("device_id")
	if deviceID != "" {
		state, err := s.log.GetDeviceState(deviceID)
		if err == nil {
			resp.DeviceID = state.DeviceID
			resp.LastClock = state.LastClock
			resp.OperationCount = state.OperationCount
			resp.LastSyncAt = state.LastSyncAt
		}

		if limit, err := strconv.Atoi(r.URL.Query().Get("recent")); err == nil && limit > 0 {
			recent, err := s.log.GetRecent(deviceID, limit)
			if err == nil {
				list := make(ops.List, len(recent))
				for i, st := range recent {
					list[i] = st.Operation
				}
				resp.RecentOperations = list
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
