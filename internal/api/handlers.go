package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ThorvaldLarsen/labstation/internal/sim"
	"github.com/ThorvaldLarsen/labstation/internal/station"
)

// handleLiveSnapshot returns a freshly collected station snapshot.
func (s *Server) handleLiveSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.station.Snapshot()
	if err != nil {
		s.logger.Error("live snapshot failed", "error", err)
		writeInternalError(w, "snapshot failed")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleTakeSnapshot collects a snapshot and persists it.
func (s *Server) handleTakeSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "snapshot persistence is not configured")
		return
	}

	snap, err := s.station.Snapshot()
	if err != nil {
		s.logger.Error("snapshot failed", "error", err)
		writeInternalError(w, "snapshot failed")
		return
	}

	record := &station.SnapshotRecord{
		Station: s.station.Name(),
		Data:    snap,
	}
	if err := s.snapshots.Save(r.Context(), record); err != nil {
		s.logger.Error("saving snapshot failed", "error", err)
		writeInternalError(w, "saving snapshot failed")
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

// handleListSnapshots returns recent persisted snapshots, newest first.
// The limit query parameter caps the result count.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "snapshot persistence is not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	records, err := s.snapshots.List(r.Context(), s.station.Name(), limit)
	if err != nil {
		s.logger.Error("listing snapshots failed", "error", err)
		writeInternalError(w, "listing snapshots failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": records,
		"count":     len(records),
	})
}

// handleGetSnapshot returns one persisted snapshot by ID.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "snapshot persistence is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	record, err := s.snapshots.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, station.ErrSnapshotNotFound) {
			writeNotFound(w, "snapshot not found")
			return
		}
		s.logger.Error("getting snapshot failed", "id", id, "error", err)
		writeInternalError(w, "getting snapshot failed")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// handleListComponents returns the registered component names.
func (s *Server) handleListComponents(w http.ResponseWriter, _ *http.Request) {
	names := s.station.Names()
	writeJSON(w, http.StatusOK, map[string]any{
		"station":    s.station.Name(),
		"components": names,
		"count":      len(names),
	})
}

// handleListResources returns the bus address-to-device bindings.
func (s *Server) handleListResources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": s.bus.Bindings(),
	})
}

// resourceQueryRequest is the body for POST /resources/{address}/query.
type resourceQueryRequest struct {
	Q string `json:"q"`
}

// handleResourceQuery performs a raw bus round trip against a resource.
func (s *Server) handleResourceQuery(w http.ResponseWriter, r *http.Request) {
	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid resource address")
		return
	}

	var req resourceQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Q == "" {
		writeBadRequest(w, "q is required")
		return
	}

	session, err := s.bus.Open(address)
	if err != nil {
		if errors.Is(err, sim.ErrResourceNotFound) {
			writeNotFound(w, "resource not found")
			return
		}
		s.logger.Error("opening resource failed", "address", address, "error", err)
		writeInternalError(w, "opening resource failed")
		return
	}

	response, err := session.QueryTrimmed(req.Q)
	if err != nil {
		s.logger.Error("resource query failed", "address", address, "error", err)
		writeInternalError(w, "resource query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address":  address,
		"q":        req.Q,
		"response": response,
	})
}
