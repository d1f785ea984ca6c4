// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory implementation of
// the Store interface.  There is no persistence; a master restart
// loses all coordination state and entries.  The entire store is
// behind a single mutex, which is tuned for correctness rather than
// throughput.
//
// This backend is the reference implementation for the generic store
// tests and the default fallback when no database is reachable.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

type memStore struct {
	mutex   sync.Mutex
	clk     clock.Clock
	entries map[aqea.Address]*aqea.Entry
	units   map[string]*coordinate.WorkUnit
	workers map[string]*coordinate.WorkerInfo

	// allocations maps an (aa, qq, ee) tuple to the lemma keys it
	// has handed ids to; allocated is the reverse occupancy map.
	allocations map[[3]byte]map[string]byte
	allocated   map[[3]byte]map[byte]bool
}

// New creates a new in-memory store on the wall clock.
func New() coordinate.Store {
	return NewWithClock(clock.New())
}

// NewWithClock creates a new in-memory store with an explicit time
// source, for tests.
func NewWithClock(clk clock.Clock) coordinate.Store {
	return &memStore{
		clk:         clk,
		entries:     make(map[aqea.Address]*aqea.Entry),
		units:       make(map[string]*coordinate.WorkUnit),
		workers:     make(map[string]*coordinate.WorkerInfo),
		allocations: make(map[[3]byte]map[string]byte),
		allocated:   make(map[[3]byte]map[byte]bool),
	}
}

// EntryStore:

func (m *memStore) UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var stats coordinate.UpsertStats
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return coordinate.UpsertStats{}, err
		}
	}
	now := m.clk.Now()
	for _, entry := range entries {
		stored, present := m.entries[entry.Address]
		copied := *entry
		if present {
			copied.CreatedAt = stored.CreatedAt
			copied.Meta = aqea.MergeMeta(stored.Meta, entry.Meta)
			stats.Updated++
		} else {
			copied.CreatedAt = now
			copied.Meta = aqea.MergeMeta(nil, entry.Meta)
			stats.Inserted++
		}
		copied.UpdatedAt = now
		m.entries[entry.Address] = &copied
	}
	return stats, nil
}

func (m *memStore) GetEntry(addr aqea.Address) (*aqea.Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored, present := m.entries[addr]
	if !present {
		return nil, nil
	}
	copied := *stored
	return &copied, nil
}

func (m *memStore) QueryEntries(pattern aqea.Pattern) ([]*aqea.Entry, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	matched := []*aqea.Entry{}
	for addr, stored := range m.entries {
		if pattern.Matches(addr) {
			copied := *stored
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Address, matched[j].Address
		for k := 0; k < 4; k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return matched, nil
}

// Coordination:

func (m *memStore) CreateWorkUnits(units []*coordinate.WorkUnit) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, unit := range units {
		if _, present := m.units[unit.WorkID]; present {
			continue
		}
		copied := *unit
		copied.Status = coordinate.UnitPending
		if copied.MaxRetries == 0 {
			copied.MaxRetries = coordinate.DefaultMaxRetries
		}
		m.units[unit.WorkID] = &copied
	}
	return nil
}

func (m *memStore) ClaimNextPending(workerID string) (*coordinate.WorkUnit, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, unit := range m.units {
		if unit.Active() && unit.AssignedWorker == workerID {
			return nil, coordinate.ErrWorkerBusy{WorkerID: workerID, WorkID: unit.WorkID}
		}
	}

	var oldest *coordinate.WorkUnit
	for _, unit := range m.units {
		if unit.Status != coordinate.UnitPending {
			continue
		}
		if oldest == nil || unit.WorkID < oldest.WorkID {
			oldest = unit
		}
	}
	if oldest == nil {
		return nil, nil
	}

	oldest.Status = coordinate.UnitAssigned
	oldest.AssignedWorker = workerID
	oldest.AssignedAt = m.clk.Now()
	oldest.StartedAt = time.Time{}
	oldest.CompletedAt = time.Time{}
	oldest.EntriesProcessed = 0
	oldest.CurrentRate = 0

	worker := m.worker(workerID)
	worker.Status = coordinate.WorkerWorking
	worker.CurrentWorkID = oldest.WorkID

	copied := *oldest
	return &copied, nil
}

func (m *memStore) UpdateProgress(workID, workerID string, entriesProcessed int, rate float64, softErrors []coordinate.UnitError) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	unit, present := m.units[workID]
	if !present {
		return coordinate.ErrNoSuchWorkUnit{WorkID: workID}
	}
	if !unit.Active() {
		return coordinate.ErrUnitNotActive
	}
	if unit.AssignedWorker != workerID {
		return coordinate.ErrWrongWorker
	}
	if entriesProcessed < unit.EntriesProcessed {
		return coordinate.ErrProgressRegression
	}
	if unit.Status == coordinate.UnitAssigned {
		unit.Status = coordinate.UnitProcessing
		unit.StartedAt = m.clk.Now()
	}
	unit.EntriesProcessed = entriesProcessed
	unit.CurrentRate = rate
	unit.Errors = append(unit.Errors, softErrors...)
	if len(softErrors) > 0 {
		last := softErrors[len(softErrors)-1]
		unit.LastError = last.Kind + ": " + last.Detail
	}

	worker := m.worker(workerID)
	worker.TotalProcessed = entriesProcessed
	worker.AverageRate = rate
	return nil
}

func (m *memStore) Complete(workID, workerID string, finalCount int, success bool) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	unit, present := m.units[workID]
	if !present {
		return coordinate.ErrNoSuchWorkUnit{WorkID: workID}
	}
	if unit.Status == coordinate.UnitCompleted {
		// A retried completion.  A differing count wins, noisily.
		if unit.EntriesProcessed != finalCount {
			logrus.WithFields(logrus.Fields{
				"work_id": workID,
				"stored":  unit.EntriesProcessed,
				"final":   finalCount,
			}).Warn("repeated completion changed final count")
			unit.EntriesProcessed = finalCount
		}
		return nil
	}
	if !unit.Active() {
		return coordinate.ErrUnitNotActive
	}
	if unit.AssignedWorker != workerID {
		return coordinate.ErrWrongWorker
	}

	if success {
		unit.Status = coordinate.UnitCompleted
		unit.EntriesProcessed = finalCount
		unit.CompletedAt = m.clk.Now()
	} else {
		m.recycle(unit, "worker_failure")
	}

	if worker, present := m.workers[workerID]; present {
		worker.Status = coordinate.WorkerIdle
		worker.CurrentWorkID = ""
	}
	return nil
}

func (m *memStore) RegisterWorker(info coordinate.WorkerInfo) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if info.WorkerID == "" {
		info.WorkerID = uuid.NewV4().String()
	}
	now := m.clk.Now()
	if existing, present := m.workers[info.WorkerID]; present {
		existing.IP = info.IP
		existing.LastHeartbeat = now
		if existing.Status == coordinate.WorkerOffline {
			existing.Status = coordinate.WorkerIdle
		}
		return info.WorkerID, nil
	}
	copied := info
	copied.Status = coordinate.WorkerIdle
	copied.LastHeartbeat = now
	copied.RegisteredAt = now
	m.workers[info.WorkerID] = &copied
	return info.WorkerID, nil
}

func (m *memStore) Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	worker := m.worker(workerID)
	worker.Status = status
	worker.CurrentWorkID = currentWorkID
	worker.LastHeartbeat = m.clk.Now()
	return nil
}

func (m *memStore) SweepStaleWorkers(timeout time.Duration) ([]string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.clk.Now()
	recycled := []string{}
	for _, worker := range m.workers {
		if worker.Status == coordinate.WorkerOffline {
			continue
		}
		if now.Sub(worker.LastHeartbeat) <= timeout {
			continue
		}
		worker.Status = coordinate.WorkerOffline
		worker.CurrentWorkID = ""
		for _, unit := range m.units {
			if unit.Active() && unit.AssignedWorker == worker.WorkerID {
				m.recycle(unit, "worker_timeout")
				recycled = append(recycled, unit.WorkID)
			}
		}
	}
	sort.Strings(recycled)
	return recycled, nil
}

// recycle returns a lost unit to the pending queue, or fails it when
// its retries are spent.  Callers hold the mutex.
func (m *memStore) recycle(unit *coordinate.WorkUnit, reason string) {
	unit.RetryCount++
	unit.AssignedWorker = ""
	unit.AssignedAt = time.Time{}
	unit.StartedAt = time.Time{}
	unit.EntriesProcessed = 0
	unit.CurrentRate = 0
	unit.LastError = reason
	if unit.RetryCount >= unit.MaxRetries {
		unit.Status = coordinate.UnitFailed
	} else {
		unit.Status = coordinate.UnitPending
	}
}

func (m *memStore) WorkUnits() ([]*coordinate.WorkUnit, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	units := make([]*coordinate.WorkUnit, 0, len(m.units))
	for _, unit := range m.units {
		copied := *unit
		units = append(units, &copied)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].WorkID < units[j].WorkID })
	return units, nil
}

func (m *memStore) Workers() ([]*coordinate.WorkerInfo, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	workers := make([]*coordinate.WorkerInfo, 0, len(m.workers))
	for _, worker := range m.workers {
		copied := *worker
		workers = append(workers, &copied)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerID < workers[j].WorkerID })
	return workers, nil
}

// worker fetches or implicitly registers a worker record.  Callers
// hold the mutex.
func (m *memStore) worker(workerID string) *coordinate.WorkerInfo {
	if worker, present := m.workers[workerID]; present {
		return worker
	}
	now := m.clk.Now()
	worker := &coordinate.WorkerInfo{
		WorkerID:      workerID,
		Status:        coordinate.WorkerIdle,
		LastHeartbeat: now,
		RegisteredAt:  now,
	}
	m.workers[workerID] = worker
	return worker
}

// Allocator:

func (m *memStore) Allocate(aa, qq, ee byte, lemmaKey string) (byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	tuple := [3]byte{aa, qq, ee}
	byKey := m.allocations[tuple]
	if byKey == nil {
		byKey = make(map[string]byte)
		m.allocations[tuple] = byKey
	}
	if a2, present := byKey[lemmaKey]; present {
		return a2, nil
	}
	used := m.allocated[tuple]
	if used == nil {
		used = make(map[byte]bool)
		m.allocated[tuple] = used
	}
	if len(used) >= 0xFE {
		return 0, aqea.ErrAddressSpaceExhausted{AA: aa, QQ: qq, EE: ee}
	}
	a2 := aqea.PreferredElementID(lemmaKey)
	for used[a2] {
		if a2 == 0xFE {
			a2 = 0x01
		} else {
			a2++
		}
	}
	used[a2] = true
	byKey[lemmaKey] = a2
	return a2, nil
}

// Store plumbing:

func (m *memStore) Summarize() ([]coordinate.SummaryRecord, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	type groupKey struct {
		language string
		source   string
		status   coordinate.UnitStatus
	}
	counts := map[groupKey]int{}
	for _, unit := range m.units {
		counts[groupKey{unit.Language, unit.Source, unit.Status}]++
	}
	records := make([]coordinate.SummaryRecord, 0, len(counts))
	for key, count := range counts {
		records = append(records, coordinate.SummaryRecord{
			Language: key.language,
			Source:   key.source,
			Status:   key.status,
			Count:    count,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Language != b.Language {
			return a.Language < b.Language
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Status < b.Status
	})
	return records, nil
}

func (m *memStore) Ping() error { return nil }

func (m *memStore) Close() error { return nil }
