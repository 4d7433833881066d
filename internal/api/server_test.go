package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThorvaldLarsen/labstation/internal/bus"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/config"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/logging"
	"github.com/ThorvaldLarsen/labstation/internal/sim"
	"github.com/ThorvaldLarsen/labstation/internal/station"
)

const testDescription = `
spec: "1.0"
devices:
  dmm:
    eom:
      GPIB INSTR:
        q: "\n"
        r: "\n"
    error:
      error_queue:
        q: "ERR?"
        default: '0,"No error"'
        command_error: '102,"Command error"'
        query_error: '103,"Query error"'
    dialogues:
      - q: "*IDN?"
        r: "labstation,dmm,0,1.0"
    properties:
      voltage:
        default: 0
        getter:
          q: "VOLT?"
          r: "{:+.6E}"
        setter:
          q: "VOLT {}"
        specs:
          type: float
          min: -10
          max: 10
resources:
  GPIB0::9::INSTR:
    device: dmm
`

// mockSnapshotRepo is an in-memory SnapshotRepository for handler tests.
type mockSnapshotRepo struct {
	records map[string]*station.SnapshotRecord
	order   []string
}

func newMockSnapshotRepo() *mockSnapshotRepo {
	return &mockSnapshotRepo{records: make(map[string]*station.SnapshotRecord)}
}

func (m *mockSnapshotRepo) Save(_ context.Context, record *station.SnapshotRecord) error {
	if record.ID == "" {
		record.ID = "snap-" + time.Now().Format("150405.000000000")
	}
	if record.TakenAt.IsZero() {
		record.TakenAt = time.Now().UTC()
	}
	m.records[record.ID] = record
	m.order = append(m.order, record.ID)
	return nil
}

func (m *mockSnapshotRepo) GetByID(_ context.Context, id string) (*station.SnapshotRecord, error) {
	record, ok := m.records[id]
	if !ok {
		return nil, station.ErrSnapshotNotFound
	}
	return record, nil
}

func (m *mockSnapshotRepo) List(_ context.Context, _ string, _ int) ([]station.SnapshotRecord, error) {
	records := make([]station.SnapshotRecord, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		records = append(records, *m.records[m.order[i]])
	}
	return records, nil
}

func (m *mockSnapshotRepo) Prune(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

// newTestServer builds a server with a one-device simulated bus. The
// returned handler serves the full route table without a listener.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	registry := sim.NewRegistry()
	for _, description := range []string{testDescription, smuDescription} {
		desc, err := sim.ParseDescription(strings.NewReader(description))
		if err != nil {
			t.Fatalf("parsing test description: %v", err)
		}
		if err := registry.AddDescription(desc); err != nil {
			t.Fatalf("adding test description: %v", err)
		}
	}

	b := bus.New(registry)

	device, err := registry.Device("dmm")
	if err != nil {
		t.Fatalf("looking up device: %v", err)
	}

	st, err := station.New("bench", map[string]station.Snapshotter{"dmm": device})
	if err != nil {
		t.Fatalf("creating station: %v", err)
	}

	srv, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 8820},
		Logger:    logging.Default(),
		Station:   st,
		Bus:       b,
		Snapshots: newMockSnapshotRepo(),
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv.hub = NewHub(config.WebSocketConfig{}, logging.Default())
	return srv, srv.buildRouter()
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" || resp["station"] != "bench" {
		t.Errorf("health response = %v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHandleLiveSnapshot(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/station/snapshot", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var snap map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap["station"] != "bench" {
		t.Errorf("snapshot station = %v", snap["station"])
	}
	components, ok := snap["components"].(map[string]any)
	if !ok {
		t.Fatal("snapshot missing components")
	}
	if _, ok := components["dmm"]; !ok {
		t.Error("snapshot missing dmm component")
	}
}

func TestSnapshotPersistence(t *testing.T) {
	_, handler := newTestServer(t)

	// Take a snapshot.
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/station/snapshots", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("take snapshot status = %d, want 201", rec.Code)
	}

	var record station.SnapshotRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatalf("decoding record: %v", err)
	}
	if record.ID == "" {
		t.Fatal("record has no ID")
	}

	// Fetch it back.
	rec = doRequest(t, handler, http.MethodGet, "/api/v1/station/snapshots/"+record.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get snapshot status = %d, want 200", rec.Code)
	}

	// List includes it.
	rec = doRequest(t, handler, http.MethodGet, "/api/v1/station/snapshots", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list snapshots status = %d, want 200", rec.Code)
	}
	var list map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if list["count"] != float64(1) {
		t.Errorf("count = %v, want 1", list["count"])
	}
}

func TestGetSnapshot_NotFound(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/station/snapshots/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestListSnapshots_BadLimit(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/station/snapshots?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleListComponents(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/components", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	components, _ := resp["components"].([]any)
	if len(components) != 1 || components[0] != "dmm" {
		t.Errorf("components = %v, want [dmm]", components)
	}
}

func TestHandleListResources(t *testing.T) {
	_, handler := newTestServer(t)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/resources", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	resources, _ := resp["resources"].(map[string]any)
	if resources["GPIB0::9::INSTR"] != "dmm" {
		t.Errorf("resources = %v", resources)
	}
}

func TestHandleResourceQuery(t *testing.T) {
	_, handler := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"q": "*IDN?"})
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::9::INSTR/query", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["response"] != "labstation,dmm,0,1.0" {
		t.Errorf("response = %v", resp["response"])
	}
}

func TestHandleResourceQuery_Validation(t *testing.T) {
	_, handler := newTestServer(t)

	// Missing q.
	body, _ := json.Marshal(map[string]string{})
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::9::INSTR/query", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", rec.Code)
	}

	// Unknown resource.
	body, _ = json.Marshal(map[string]string{"q": "*IDN?"})
	rec = doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::99::INSTR/query", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown resource status = %d, want 404", rec.Code)
	}

	// Invalid JSON.
	rec = doRequest(t, handler, http.MethodPost, "/api/v1/resources/GPIB0::9::INSTR/query", []byte("{"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}
}

func TestNew_MissingDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps returned nil error")
	}
	if _, err := New(Deps{Logger: logging.Default()}); err == nil {
		t.Error("New() without station returned nil error")
	}
}
