package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ThorvaldLarsen/labstation/internal/driver/b1500"
	"github.com/ThorvaldLarsen/labstation/internal/sim"
)

// maxAcquisitionSamples caps one acquisition request so a single HTTP
// call cannot monopolise the device session.
const maxAcquisitionSamples = 1000

// sourceRequest is the body for POST /resources/{address}/source.
type sourceRequest struct {
	Channel int     `json:"channel"`
	Type    string  `json:"type"` // "voltage" or "current"
	Value   float64 `json:"value"`
}

// acquireRequest is the body for POST /resources/{address}/acquire.
type acquireRequest struct {
	Samples int `json:"samples"`
}

// handleSourceParameter programs a DC source value on one channel and
// publishes the resulting parameter state to the telemetry sinks.
func (s *Server) handleSourceParameter(w http.ResponseWriter, r *http.Request) {
	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid resource address")
		return
	}

	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Channel < 1 {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}
	if req.Type != "voltage" && req.Type != "current" {
		writeBadRequest(w, `type must be "voltage" or "current"`)
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

	driver := b1500.New(session)
	driver.SetLogger(s.logger)

	// A rejected value surfaces on the device error queue, not as a Go
	// error; compare the pending count around the write to detect it.
	pendingBefore := session.Device().PendingErrors()

	switch req.Type {
	case "voltage":
		err = driver.SourceVoltage(req.Channel, req.Value)
	case "current":
		err = driver.SourceCurrent(req.Channel, req.Value)
	}
	if err != nil {
		s.logger.Error("sourcing failed", "address", address, "error", err)
		writeInternalError(w, "sourcing failed")
		return
	}

	if session.Device().PendingErrors() > pendingBefore {
		records, drainErr := driver.ReadErrorQueue()
		if drainErr != nil {
			s.logger.Warn("draining error queue failed", "address", address, "error", drainErr)
		}
		message := "value rejected by instrument"
		if len(records) > 0 {
			message = fmt.Sprintf("value rejected by instrument: %d %s",
				records[len(records)-1].Code, records[len(records)-1].Message)
		}
		writeBadRequest(w, message)
		return
	}

	instrument := session.Device().Name()
	parameter := fmt.Sprintf("source_%s@%d", req.Type, req.Channel)
	s.publishParameterUpdate(instrument, parameter, req.Value)

	writeJSON(w, http.StatusOK, map[string]any{
		"address":    address,
		"instrument": instrument,
		"channel":    req.Channel,
		"type":       req.Type,
		"value":      req.Value,
	})
}

// handleAcquisition triggers a multi-sample acquisition, publishes each
// sample to the telemetry sinks, and returns the decoded samples.
func (s *Server) handleAcquisition(w http.ResponseWriter, r *http.Request) {
	address, err := url.PathUnescape(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid resource address")
		return
	}

	var req acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Samples < 1 {
		req.Samples = 1
	}
	if req.Samples > maxAcquisitionSamples {
		writeBadRequest(w, fmt.Sprintf("samples must be at most %d", maxAcquisitionSamples))
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

	driver := b1500.New(session)
	driver.SetLogger(s.logger)

	samples, err := driver.TriggeredAcquisition(r.Context(), req.Samples)
	if err != nil {
		s.logger.Error("acquisition failed", "address", address, "error", err)
		writeInternalError(w, "acquisition failed")
		return
	}

	instrument := session.Device().Name()
	results := make([]map[string]any, 0, len(samples))
	for _, sample := range samples {
		result := map[string]any{
			"channel": sample.Channel,
			"type":    sample.Type,
			"status":  sample.Status,
			"value":   sample.Value,
		}
		results = append(results, result)
		s.publishAcquisitionSample(instrument, sample)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address":    address,
		"instrument": instrument,
		"count":      len(results),
		"samples":    results,
	})
}

// publishParameterUpdate forwards a parameter state change to the
// configured telemetry sinks. Both sinks are optional.
func (s *Server) publishParameterUpdate(instrument, parameter string, value float64) {
	if s.mqtt != nil {
		if err := s.mqtt.PublishParameterUpdate(instrument, parameter, value); err != nil {
			s.logger.Warn("publishing parameter update failed",
				"instrument", instrument, "parameter", parameter, "error", err)
		}
	}
	if s.influx != nil {
		s.influx.WriteParameterValue(instrument, parameter, value)
	}
}

// publishAcquisitionSample forwards one acquisition sample to the
// configured telemetry sinks.
func (s *Server) publishAcquisitionSample(instrument string, sample b1500.SpotResult) {
	if s.mqtt != nil {
		payload := map[string]any{
			"instrument": instrument,
			"channel":    sample.Channel,
			"type":       sample.Type,
			"status":     sample.Status,
			"value":      sample.Value,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		}
		if err := s.mqtt.PublishAcquisitionSample(instrument, payload); err != nil {
			s.logger.Warn("publishing acquisition sample failed",
				"instrument", instrument, "error", err)
		}
	}
	if s.influx != nil {
		s.influx.WriteSpotSample(instrument, sample.Channel, sample.Type, sample.Status, sample.Value)
	}
}
