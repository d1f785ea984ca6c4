// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/memory"
	"github.com/aqea/go-extractor/restdata"
)

type fixture struct {
	store  coordinate.Store
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	store := memory.New()
	server := httptest.NewServer(NewRouter(store))
	t.Cleanup(server.Close)
	t.Cleanup(func() { store.Close() })
	return &fixture{store: store, server: server}
}

func (f *fixture) installUnits(t *testing.T) {
	plan := coordinate.LanguagePlan{
		Language:         "deu",
		Source:           "wiktionary",
		EstimatedEntries: 100,
		AlphabetRanges: []coordinate.AlphabetRange{
			{Start: "A", End: "M", Weight: 1},
			{Start: "N", End: "Z", Weight: 1},
		},
	}
	units, err := plan.BuildWorkUnits()
	require.NoError(t, err)
	require.NoError(t, f.store.CreateWorkUnits(units))
}

func (f *fixture) do(t *testing.T, method, path string, in, out interface{}) *http.Response {
	var body *bytes.Buffer
	if in != nil {
		body = &bytes.Buffer{}
		require.NoError(t, restdata.Encode(body, in))
	} else {
		body = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, f.server.URL+path, body)
	require.NoError(t, err)
	if in != nil {
		req.Header.Set("Content-Type", restdata.V1JSONMediaType)
	}
	req.Header.Set("Accept", restdata.V1JSONMediaType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, restdata.Decode(resp.Header.Get("Content-Type"), resp.Body, out))
	}
	return resp
}

func TestRootDocument(t *testing.T) {
	f := newFixture(t)
	var root restdata.RootData
	resp := f.do(t, "GET", "/", nil, &root)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/api/register", root.RegisterURL)
	assert.Equal(t, "/api/work{?worker_id}", root.WorkURL)
	assert.Equal(t, "/api/work/{work_id}/progress", root.ProgressURL)
	assert.Equal(t, "/api/work/{work_id}/complete", root.CompleteURL)
	assert.Equal(t, "/api/entries/{address}", root.EntryURL)
}

func TestRegister(t *testing.T) {
	f := newFixture(t)

	var reg restdata.RegistrationResponse
	resp := f.do(t, "POST", "/api/register",
		restdata.RegistrationRequest{WorkerID: "w1", IP: "10.0.0.1"}, &reg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "w1", reg.WorkerID)
	assert.Equal(t, 30, reg.HeartbeatInterval)

	// Empty worker id gets one generated.
	resp = f.do(t, "POST", "/api/register", restdata.RegistrationRequest{}, &reg)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, reg.WorkerID)
	assert.NotEqual(t, "w1", reg.WorkerID)
}

func TestClaimLifecycle(t *testing.T) {
	f := newFixture(t)
	f.installUnits(t)
	f.do(t, "POST", "/api/register", restdata.RegistrationRequest{WorkerID: "w1"}, nil)

	// Claim.
	var unit restdata.WorkUnit
	resp := f.do(t, "GET", "/api/work?worker_id=w1", nil, &unit)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "wiktionary_deu_00", unit.WorkID)
	assert.Equal(t, "assigned", unit.Status)

	// A second claim while busy conflicts.
	var errResp restdata.ErrorResponse
	resp = f.do(t, "GET", "/api/work?worker_id=w1", nil, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ErrWorkerBusy", errResp.Error)

	// Progress.
	resp = f.do(t, "POST", "/api/work/"+unit.WorkID+"/progress",
		restdata.ProgressRequest{WorkerID: "w1", EntriesProcessed: 10, Rate: 2.0}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Progress from the wrong worker conflicts.
	resp = f.do(t, "POST", "/api/work/"+unit.WorkID+"/progress",
		restdata.ProgressRequest{WorkerID: "w2", EntriesProcessed: 5, Rate: 1.0}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ErrWrongWorker", errResp.Error)

	// Progress against an unknown unit is 404.
	resp = f.do(t, "POST", "/api/work/nope/progress",
		restdata.ProgressRequest{WorkerID: "w1", EntriesProcessed: 1}, &errResp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ErrNoSuchWorkUnit", errResp.Error)

	// Complete.
	resp = f.do(t, "POST", "/api/work/"+unit.WorkID+"/complete",
		restdata.CompleteRequest{WorkerID: "w1", FinalCount: 12, Success: true}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Claim the second unit, then drain the queue.
	resp = f.do(t, "GET", "/api/work?worker_id=w1", nil, &unit)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = f.do(t, "POST", "/api/work/"+unit.WorkID+"/complete",
		restdata.CompleteRequest{WorkerID: "w1", FinalCount: 3, Success: true}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Empty queue: 204.
	resp = f.do(t, "GET", "/api/work?worker_id=w1", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Missing worker_id: 400.
	resp = f.do(t, "GET", "/api/work", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "POST", "/api/heartbeat",
		restdata.HeartbeatRequest{WorkerID: "w1", Status: "working", CurrentWorkID: "u"}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var errResp restdata.ErrorResponse
	resp = f.do(t, "POST", "/api/heartbeat", restdata.HeartbeatRequest{}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	f.installUnits(t)
	f.do(t, "POST", "/api/register", restdata.RegistrationRequest{WorkerID: "w1"}, nil)
	var unit restdata.WorkUnit
	f.do(t, "GET", "/api/work?worker_id=w1", nil, &unit)
	f.do(t, "POST", "/api/work/"+unit.WorkID+"/progress",
		restdata.ProgressRequest{
			WorkerID:         "w1",
			EntriesProcessed: 10,
			Rate:             2.0,
			Errors: []coordinate.UnitError{
				{Kind: "convert_error", Detail: "empty lemma"},
			},
		}, nil)

	var status restdata.StatusResponse
	resp := f.do(t, "GET", "/api/status", nil, &status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, status.TotalUnits)
	assert.Equal(t, 1, status.UnitsPending)
	assert.Equal(t, 1, status.UnitsActive)
	assert.Equal(t, 10, status.EntriesProcessed)
	assert.Equal(t, 100, status.EstimatedTotal)
	assert.Equal(t, 2.0, status.OverallRate)
	// 90 entries left at 2 per minute is 45 minutes.
	assert.Equal(t, 2700, status.ETASeconds)
	assert.Equal(t, 1, status.SoftErrors)
	assert.Equal(t, 0, status.HardErrors)
	require.Len(t, status.Languages, 1)
	assert.Equal(t, "deu", status.Languages[0].Language)
	require.Len(t, status.Workers, 1)
	assert.Equal(t, "w1", status.Workers[0].WorkerID)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var health restdata.HealthResponse
	resp := f.do(t, "GET", "/api/health", nil, &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health.Status)
}

// deadStore fails its liveness ping.
type deadStore struct {
	coordinate.Store
}

func (s *deadStore) Ping() error {
	return errors.New("connection refused")
}

func TestHealthUnreachableStore(t *testing.T) {
	store := memory.New()
	server := httptest.NewServer(NewRouter(&deadStore{Store: store}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { store.Close() })
	f := &fixture{store: store, server: server}

	var errResp restdata.ErrorResponse
	resp := f.do(t, "GET", "/api/health", nil, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "connection refused", errResp.Message)
}

func TestEntries(t *testing.T) {
	f := newFixture(t)

	batch := restdata.EntryBatch{Entries: []restdata.Entry{
		{
			Address: "0xA0:01:10:2B",
			Label:   "Apfel",
			Domain:  "0xA0",
			Status:  "active",
			Meta:    map[string]interface{}{"lemma": "Apfel", "pos": "noun"},
		},
	}}
	var stats restdata.UpsertStats
	resp := f.do(t, "POST", "/api/entries", batch, &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, restdata.UpsertStats{Inserted: 1, Updated: 0}, stats)

	// Replay updates.
	resp = f.do(t, "POST", "/api/entries", batch, &stats)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, restdata.UpsertStats{Inserted: 0, Updated: 1}, stats)

	var entry restdata.Entry
	resp = f.do(t, "GET", "/api/entries/0xA0:01:10:2B", nil, &entry)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Apfel", entry.Label)

	resp = f.do(t, "GET", "/api/entries/0xA0:01:10:7F", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var list restdata.EntryList
	resp = f.do(t, "GET", "/api/entries?pattern=0xA0:01:*:*", nil, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list.Entries, 1)

	var errResp restdata.ErrorResponse
	resp = f.do(t, "GET", "/api/entries?pattern=banana", nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// An invalid entry rejects the batch.
	bad := restdata.EntryBatch{Entries: []restdata.Entry{{Address: "0xA0:01:10:2C"}}}
	resp = f.do(t, "POST", "/api/entries", bad, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// flakyStore fails operations until its counter drains.
type flakyStore struct {
	coordinate.Store
	failures int32
}

func (s *flakyStore) Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return errors.New("backend down")
	}
	return s.Store.Heartbeat(workerID, status, currentWorkID)
}

func newFlakyFixture(t *testing.T, failures int32) *fixture {
	store := memory.New()
	flaky := &flakyStore{Store: store, failures: failures}
	server := httptest.NewServer(NewRouter(flaky))
	t.Cleanup(server.Close)
	t.Cleanup(func() { store.Close() })
	return &fixture{store: flaky, server: server}
}

func TestTransientStoreErrorsRetry(t *testing.T) {
	f := newFlakyFixture(t, 2)
	resp := f.do(t, "POST", "/api/heartbeat",
		restdata.HeartbeatRequest{WorkerID: "w1", Status: "idle"}, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPersistentStoreErrorsUnavailable(t *testing.T) {
	f := newFlakyFixture(t, 100)
	var errResp restdata.ErrorResponse
	resp := f.do(t, "POST", "/api/heartbeat",
		restdata.HeartbeatRequest{WorkerID: "w1", Status: "idle"}, &errResp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "backend down", errResp.Message)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, "POST", "/api/status", struct{}{}, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
