// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/memory"
	"github.com/aqea/go-extractor/restserver"
)

func newClient(t *testing.T) (*Client, coordinate.Store) {
	store := memory.New()
	server := httptest.NewServer(restserver.NewRouter(store))
	t.Cleanup(server.Close)
	t.Cleanup(func() { store.Close() })
	client, err := New(server.URL)
	require.NoError(t, err)
	client.BackoffBase = time.Millisecond
	return client, store
}

func installUnits(t *testing.T, store coordinate.Store) {
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
	require.NoError(t, store.CreateWorkUnits(units))
}

func TestRegisterAndHeartbeat(t *testing.T) {
	client, _ := newClient(t)

	reg, err := client.Register("w1", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "w1", reg.WorkerID)
	assert.Equal(t, 30, reg.HeartbeatInterval)

	reg, err = client.Register("", "")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.WorkerID)

	err = client.Heartbeat("w1", coordinate.WorkerIdle, "")
	assert.NoError(t, err)
}

func TestWorkLifecycle(t *testing.T) {
	client, store := newClient(t)
	installUnits(t, store)

	_, err := client.Register("w1", "")
	require.NoError(t, err)

	unit, err := client.ClaimWork("w1")
	require.NoError(t, err)
	require.NotNil(t, unit)
	assert.Equal(t, "wiktionary_deu_00", unit.WorkID)
	assert.Equal(t, coordinate.UnitAssigned, unit.Status)

	// Claiming again while holding a unit conflicts.  The worker id
	// does not survive the wire round trip; the work id does.
	_, err = client.ClaimWork("w1")
	busy, isBusy := err.(coordinate.ErrWorkerBusy)
	require.True(t, isBusy)
	assert.Equal(t, unit.WorkID, busy.WorkID)

	err = client.Progress(unit.WorkID, "w1", 10, 2.0, nil)
	assert.NoError(t, err)

	// The wrong worker cannot report.
	err = client.Progress(unit.WorkID, "w2", 5, 1.0, nil)
	assert.Equal(t, coordinate.ErrWrongWorker, err)

	// Unknown units surface as such.
	err = client.Progress("nope", "w1", 1, 1.0, nil)
	assert.Equal(t, coordinate.ErrNoSuchWorkUnit{WorkID: "nope"}, err)

	err = client.Complete(unit.WorkID, "w1", 12, true)
	assert.NoError(t, err)

	unit, err = client.ClaimWork("w1")
	require.NoError(t, err)
	require.NotNil(t, unit)
	err = client.Complete(unit.WorkID, "w1", 3, true)
	require.NoError(t, err)

	// Drained queue: nil, no error.
	unit, err = client.ClaimWork("w1")
	assert.NoError(t, err)
	assert.Nil(t, unit)

	status, err := client.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, status.UnitsCompleted)
	assert.Equal(t, 15, status.EntriesProcessed)
}

func TestEntries(t *testing.T) {
	client, _ := newClient(t)

	addr := aqea.Address{0xA0, 0x01, 0x10, 0x2B}
	entry := &aqea.Entry{
		Address: addr,
		Label:   "Apfel",
		Domain:  "0xA0",
		Status:  "active",
		Meta:    aqea.Meta{"lemma": "Apfel", "pos": "noun"},
	}

	stats, err := client.UpsertEntries([]*aqea.Entry{entry})
	require.NoError(t, err)
	assert.Equal(t, coordinate.UpsertStats{Inserted: 1}, stats)

	stats, err = client.UpsertEntries([]*aqea.Entry{entry})
	require.NoError(t, err)
	assert.Equal(t, coordinate.UpsertStats{Updated: 1}, stats)

	stored, err := client.GetEntry(addr)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "Apfel", stored.Label)

	missing, err := client.GetEntry(aqea.Address{0xA0, 0x01, 0x10, 0x7F})
	assert.NoError(t, err)
	assert.Nil(t, missing)

	pattern, err := aqea.ParsePattern("0xA0:01:*:*")
	require.NoError(t, err)
	entries, err := client.QueryEntries(pattern)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, addr, entries[0].Address)
}

func TestHealth(t *testing.T) {
	client, _ := newClient(t)
	health, err := client.Health()
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestRetriesServerErrors(t *testing.T) {
	store := memory.New()
	defer store.Close()
	router := restserver.NewRouter(store)

	var failures int32 = 2
	flaky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&failures, -1) >= 0 {
			http.Error(w, "transient", http.StatusInternalServerError)
			return
		}
		router.ServeHTTP(w, r)
	})
	server := httptest.NewServer(flaky)
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	client.BackoffBase = time.Millisecond

	atomic.StoreInt32(&failures, 2)
	_, err = client.Register("w1", "")
	assert.NoError(t, err)
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"register_url": "/api/register"}`))
			return
		}
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "error", "message": "bad"}`))
	}))
	defer server.Close()

	client, err := New(server.URL)
	require.NoError(t, err)
	client.BackoffBase = time.Millisecond

	_, err = client.Register("w1", "")
	require.Error(t, err)
	assert.Equal(t, "bad", err.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
