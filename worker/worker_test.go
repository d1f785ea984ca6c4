// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package worker

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/memory"
	"github.com/aqea/go-extractor/restclient"
	"github.com/aqea/go-extractor/restserver"
	"github.com/aqea/go-extractor/source"
)

type fixture struct {
	store  coordinate.Store
	client *restclient.Client
}

func newFixture(t *testing.T) *fixture {
	store := memory.New()
	server := httptest.NewServer(restserver.NewRouter(store))
	t.Cleanup(server.Close)
	t.Cleanup(func() { store.Close() })

	plan := coordinate.LanguagePlan{
		Language:         "deu",
		Source:           "static",
		EstimatedEntries: 100,
		AlphabetRanges: []coordinate.AlphabetRange{
			{Start: "A", End: "M", Weight: 1},
			{Start: "N", End: "Z", Weight: 1},
		},
	}
	units, err := plan.BuildWorkUnits()
	require.NoError(t, err)
	require.NoError(t, store.CreateWorkUnits(units))

	client, err := restclient.New(server.URL)
	require.NoError(t, err)
	return &fixture{store: store, client: client}
}

func testRecords() []aqea.Record {
	return []aqea.Record{
		{Word: "Apfel", Language: "deu", POS: "noun",
			Definitions: []string{"rundliche Frucht des Apfelbaums"}, IPA: "ˈap͡fl̩"},
		{Word: "Haus", Language: "deu", POS: "noun",
			Definitions: []string{"Gebäude zum Wohnen"}},
		{Word: "Bad\x01", Language: "deu", POS: "noun"},
		{Word: "Zebra", Language: "deu", POS: "noun",
			Definitions: []string{"gestreiftes Huftier"}},
	}
}

func newWorker(t *testing.T, f *fixture, config Config, records []aqea.Record) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = "w1"
	}
	config.FallbackDir = t.TempDir()
	config.ExitOnIdle = true
	w := New(config, f.client, f.store)
	w.NewExtractor = func(sourceName, language string) (source.Extractor, error) {
		return source.NewStatic(records), nil
	}
	return w
}

func fallbackPaths(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "aqea_entries_*.json"))
}

func unitByID(t *testing.T, store coordinate.Store, workID string) *coordinate.WorkUnit {
	units, err := store.WorkUnits()
	require.NoError(t, err)
	for _, u := range units {
		if u.WorkID == workID {
			return u
		}
	}
	t.Fatalf("no unit %q", workID)
	return nil
}

func TestFullPipeline(t *testing.T) {
	f := newFixture(t)
	w := newWorker(t, f, Config{BatchSize: 2}, testRecords())

	require.NoError(t, w.Run(context.Background()))

	// Both units completed with the counts of their ranges: the
	// control-character record is a soft failure, not an entry.
	first := unitByID(t, f.store, "static_deu_00")
	assert.Equal(t, coordinate.UnitCompleted, first.Status)
	assert.Equal(t, 2, first.EntriesProcessed)
	second := unitByID(t, f.store, "static_deu_01")
	assert.Equal(t, coordinate.UnitCompleted, second.Status)
	assert.Equal(t, 1, second.EntriesProcessed)

	foundKinds := []string{}
	for _, unitErr := range first.Errors {
		foundKinds = append(foundKinds, unitErr.Kind)
	}
	assert.Contains(t, foundKinds, "convert_error")

	pattern, err := aqea.ParsePattern("0xA0:01:*:*")
	require.NoError(t, err)
	entries, err := f.store.QueryEntries(pattern)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	labels := []string{}
	for _, entry := range entries {
		labels = append(labels, entry.Label)
		assert.Equal(t, "active", entry.Status)
		assert.Equal(t, "deu", entry.Meta["language"])
	}
	assert.ElementsMatch(t, []string{"Apfel", "Haus", "Zebra"}, labels)
}

func TestRerunKeepsAddressesStable(t *testing.T) {
	f := newFixture(t)
	w := newWorker(t, f, Config{}, testRecords())
	require.NoError(t, w.Run(context.Background()))

	pattern, err := aqea.ParsePattern("0xA0:*:*:*")
	require.NoError(t, err)
	before, err := f.store.QueryEntries(pattern)
	require.NoError(t, err)
	require.Len(t, before, 3)

	// A second pass over the same lemmas (fresh units, same store)
	// updates in place rather than minting new addresses.
	plan := coordinate.LanguagePlan{
		Language:         "deu",
		Source:           "rerun",
		EstimatedEntries: 100,
		AlphabetRanges:   []coordinate.AlphabetRange{{Start: "A", End: "Z", Weight: 1}},
	}
	units, err := plan.BuildWorkUnits()
	require.NoError(t, err)
	require.NoError(t, f.store.CreateWorkUnits(units))

	w2 := newWorker(t, f, Config{WorkerID: "w2"}, testRecords())
	require.NoError(t, w2.Run(context.Background()))

	after, err := f.store.QueryEntries(pattern)
	require.NoError(t, err)
	require.Len(t, after, 3)
	for i := range before {
		assert.Equal(t, before[i].Address, after[i].Address)
		assert.True(t, after[i].CreatedAt.Equal(before[i].CreatedAt))
	}
}

// flakySink fails a configured number of upserts before recovering.
type flakySink struct {
	coordinate.Store
	failures int32
}

func (s *flakySink) UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error) {
	if atomic.AddInt32(&s.failures, -1) >= 0 {
		return coordinate.UpsertStats{}, errors.New("store down")
	}
	return s.Store.UpsertEntries(entries)
}

func TestStoreRetryRecovers(t *testing.T) {
	f := newFixture(t)
	sink := &flakySink{Store: f.store, failures: 2}
	w := NewWithClock(Config{
		WorkerID:    "w1",
		FallbackDir: t.TempDir(),
		ExitOnIdle:  true,
	}, f.client, sink, clock.New())
	w.NewExtractor = func(sourceName, language string) (source.Extractor, error) {
		return source.NewStatic(testRecords()), nil
	}

	require.NoError(t, w.Run(context.Background()))

	pattern, err := aqea.ParsePattern("0xA0:*:*:*")
	require.NoError(t, err)
	entries, err := f.store.QueryEntries(pattern)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// brokenSink never accepts a batch.
type brokenSink struct {
	coordinate.Store
}

func (s *brokenSink) UpsertEntries([]*aqea.Entry) (coordinate.UpsertStats, error) {
	return coordinate.UpsertStats{}, errors.New("store down")
}

func TestFallbackFile(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	sink := &brokenSink{Store: f.store}
	w := NewWithClock(Config{
		WorkerID:    "w1",
		FallbackDir: dir,
		ExitOnIdle:  true,
	}, f.client, sink, clock.New())
	records := testRecords()[:2]
	w.NewExtractor = func(sourceName, language string) (source.Extractor, error) {
		return source.NewStatic(records), nil
	}

	require.NoError(t, w.Run(context.Background()))

	// The unit still completes: extracted entries are preserved in
	// the fallback file and counted.
	first := unitByID(t, f.store, "static_deu_00")
	assert.Equal(t, coordinate.UnitCompleted, first.Status)
	assert.Equal(t, 2, first.EntriesProcessed)

	kinds := []string{}
	for _, unitErr := range first.Errors {
		kinds = append(kinds, unitErr.Kind)
	}
	assert.Contains(t, kinds, "store_failure")

	// The fallback file re-ingests cleanly.
	paths, err := fallbackPaths(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	entries, err := ReadFallback(paths[0])
	require.NoError(t, err)
	require.Len(t, entries, 2)
	stats, err := f.store.UpsertEntries(entries)
	require.NoError(t, err)
	assert.Equal(t, coordinate.UpsertStats{Inserted: 2}, stats)
}

// cancelExtractor cancels the worker's context mid-stream.
type cancelExtractor struct {
	records []aqea.Record
	after   int
	cancel  context.CancelFunc
}

func (e *cancelExtractor) ExtractRange(ctx context.Context, start, end string, emit func(aqea.Record) error) error {
	for i, rec := range e.records {
		if i == e.after {
			e.cancel()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

func (e *cancelExtractor) Close() error { return nil }

func TestCooperativeShutdown(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := newWorker(t, f, Config{}, nil)
	w.NewExtractor = func(sourceName, language string) (source.Extractor, error) {
		return &cancelExtractor{
			records: []aqea.Record{
				{Word: "Apfel", Language: "deu", POS: "noun"},
				{Word: "Birne", Language: "deu", POS: "noun"},
			},
			after:  2,
			cancel: cancel,
		}, nil
	}

	require.NoError(t, w.Run(ctx))

	// The batch was flushed and progress reported, but the unit is
	// not complete; the master's sweep will recycle it.
	unit := unitByID(t, f.store, "static_deu_00")
	assert.Equal(t, coordinate.UnitProcessing, unit.Status)
	assert.Equal(t, 2, unit.EntriesProcessed)
	kinds := []string{}
	for _, unitErr := range unit.Errors {
		kinds = append(kinds, unitErr.Kind)
	}
	assert.Contains(t, kinds, "aborting")

	pattern, err := aqea.ParsePattern("0xA0:*:*:*")
	require.NoError(t, err)
	entries, err := f.store.QueryEntries(pattern)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRestartWhileOwningUnit(t *testing.T) {
	f := newFixture(t)

	// A previous run with this id claimed a unit and died without
	// completing or timing out.
	_, err := f.store.RegisterWorker(coordinate.WorkerInfo{WorkerID: "w1"})
	require.NoError(t, err)
	held, err := f.store.ClaimNextPending("w1")
	require.NoError(t, err)
	require.NotNil(t, held)

	w := newWorker(t, f, Config{}, testRecords())
	require.NoError(t, w.Run(context.Background()))

	// The held unit was released, reissued, and finished; the
	// release burned one retry.
	first := unitByID(t, f.store, held.WorkID)
	assert.Equal(t, coordinate.UnitCompleted, first.Status)
	assert.Equal(t, 1, first.RetryCount)
	second := unitByID(t, f.store, "static_deu_01")
	assert.Equal(t, coordinate.UnitCompleted, second.Status)
}

func TestRegisterAdoptsGeneratedID(t *testing.T) {
	f := newFixture(t)
	w := newWorker(t, f, Config{WorkerID: " "}, nil)
	w.config.WorkerID = ""
	require.NoError(t, w.Run(context.Background()))
	assert.NotEmpty(t, w.WorkerID())
}
