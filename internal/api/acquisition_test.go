package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

// smuDescription declares a source/measure unit answering the FLEX
// subset the acquisition endpoints drive.
const smuDescription = `
spec: "1.0"
devices:
  smu:
    eom:
      GPIB INSTR:
        q: "\n"
        r: "\n"
    error:
      error_queue:
        q: "ERR?"
        default: '0,"No error"'
        command_error: '100,"Undefined GPIB command"'
        query_error: '200,"Query error"'
    dialogues:
      - q: "XE"
        r: "NAI+1.000000E-06"
    channels:
      ids: [1, 2]
      properties:
        source_voltage:
          default: 0
          setter:
            q: "DV {ch_id},0,{}"
          specs:
            type: float
            min: -10
            max: 10
        source_current:
          default: 0
          setter:
            q: "DI {ch_id},0,{}"
          specs:
            type: float
            min: -0.1
            max: 0.1
resources:
  GPIB0::17::INSTR:
    device: smu
`

const smuAddress = "/api/v1/resources/GPIB0::17::INSTR"

func TestHandleAcquisition(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]int{"samples": 2})
	rec := doRequest(t, handler, http.MethodPost, smuAddress+"/acquire", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["instrument"] != "smu" {
		t.Errorf("instrument = %v, want smu", resp["instrument"])
	}
	if resp["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", resp["count"])
	}

	samples, _ := resp["samples"].([]any)
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	sample := samples[0].(map[string]any)
	if sample["status"] != "N" || sample["type"] != "I" || sample["channel"] != float64(1) {
		t.Errorf("sample = %v", sample)
	}
	if sample["value"] != 1e-06 {
		t.Errorf("sample value = %v, want 1e-06", sample["value"])
	}
}

func TestHandleAcquisition_DefaultsToOneSample(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodPost, smuAddress+"/acquire", []byte(`{}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["count"] != float64(1) {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestHandleAcquisition_Validation(t *testing.T) {
	_, handler := newTestServer(t)

	// Unknown resource.
	body, _ := json.Marshal(map[string]int{"samples": 1})
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::99::INSTR/acquire", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown resource status = %d, want 404", rec.Code)
	}

	// Sample count over the cap.
	body, _ = json.Marshal(map[string]int{"samples": maxAcquisitionSamples + 1})
	rec = doRequest(t, handler, http.MethodPost, smuAddress+"/acquire", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("oversized request status = %d, want 400", rec.Code)
	}

	// Invalid JSON.
	rec = doRequest(t, handler, http.MethodPost, smuAddress+"/acquire", []byte("{"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}
}

func TestHandleSourceParameter(t *testing.T) {
	srv, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"channel": 1, "type": "voltage", "value": 2.5})
	rec := doRequest(t, handler, http.MethodPost, smuAddress+"/source", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["instrument"] != "smu" || resp["value"] != 2.5 {
		t.Errorf("response = %v", resp)
	}

	// The sourced value is applied to the simulated device.
	session, err := srv.bus.Open("GPIB0::17::INSTR")
	if err != nil {
		t.Fatalf("opening resource: %v", err)
	}
	value, ok := session.Device().PropertyValue("source_voltage", "1")
	if !ok || value != 2.5 {
		t.Errorf("device source_voltage@1 = %v (ok=%v), want 2.5", value, ok)
	}
}

func TestHandleSourceParameter_RejectedValue(t *testing.T) {
	_, handler := newTestServer(t)

	// 999 V is outside the declared range; the device records the
	// rejection on its error queue and the stored value stays put.
	body, _ := json.Marshal(map[string]any{"channel": 1, "type": "voltage", "value": 999})
	rec := doRequest(t, handler, http.MethodPost, smuAddress+"/source", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "rejected") {
		t.Errorf("body = %s, want rejection message", rec.Body.String())
	}
}

func TestHandleSourceParameter_Validation(t *testing.T) {
	_, handler := newTestServer(t)

	// Bad type.
	body, _ := json.Marshal(map[string]any{"channel": 1, "type": "resistance", "value": 1.0})
	rec := doRequest(t, handler, http.MethodPost, smuAddress+"/source", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad type status = %d, want 400", rec.Code)
	}

	// Bad channel.
	body, _ = json.Marshal(map[string]any{"channel": 0, "type": "voltage", "value": 1.0})
	rec = doRequest(t, handler, http.MethodPost, smuAddress+"/source", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad channel status = %d, want 400", rec.Code)
	}

	// Unknown resource.
	body, _ = json.Marshal(map[string]any{"channel": 1, "type": "voltage", "value": 1.0})
	rec = doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::99::INSTR/source", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown resource status = %d, want 404", rec.Code)
	}
}
