// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package coordinate defines the abstract API between the AQEA
// master, its workers, and the storage backends.
//
// A deployment has exactly one master, any number of stateless
// workers, and one Store implementation shared by everything that
// needs persistent state.  Work is partitioned into WorkUnit objects,
// each covering a lexicographic lemma range for one language and
// source.  Workers claim units, stream entries into the entry store,
// and report progress; the master watches heartbeats and recycles
// units whose workers go quiet.
package coordinate

import (
	"time"

	"github.com/aqea/go-extractor/aqea"
)

// Defaults for coordination timing and retry behavior.
const (
	// HeartbeatTimeout is how long a worker may go without a
	// heartbeat before the master considers it offline.
	HeartbeatTimeout = 120 * time.Second

	// SweepInterval is how often the master scans for stale
	// workers and recyclable units.
	SweepInterval = 30 * time.Second

	// DefaultMaxRetries bounds how many times a unit is handed
	// back to the pending queue after worker failures.
	DefaultMaxRetries = 3
)

// UnitStatus is the lifecycle state of a work unit.
type UnitStatus int

const (
	// AnyUnit is not a real status; queries use it to mean "any".
	AnyUnit UnitStatus = iota

	// UnitPending units are waiting to be claimed.
	UnitPending

	// UnitAssigned units have been claimed but have not yet
	// reported progress.
	UnitAssigned

	// UnitProcessing units have at least one progress report from
	// their assigned worker.
	UnitProcessing

	// UnitCompleted units are done; they receive no further
	// updates.
	UnitCompleted

	// UnitFailed units exhausted their retries.  They are never
	// dispensed again.
	UnitFailed
)

// WorkerStatus is the liveness state of a worker.
type WorkerStatus int

const (
	// WorkerIdle workers are registered but not processing.
	WorkerIdle WorkerStatus = iota

	// WorkerWorking workers own an active unit.
	WorkerWorking

	// WorkerError workers reported a problem in their last
	// heartbeat.
	WorkerError

	// WorkerOffline workers have not heartbeat within
	// HeartbeatTimeout.  The master sets this; workers never
	// report it themselves.
	WorkerOffline
)

// UnitError is one soft error reported against a work unit.
type UnitError struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// WorkUnit is the atomic unit of assignment: a lemma-prefix range for
// one language and source.  A lemma belongs to the unit iff
// RangeStart <= lemma < succ(RangeEnd) in lexicographic order on the
// normalized form.
type WorkUnit struct {
	WorkID           string
	Language         string
	Source           string
	RangeStart       string
	RangeEnd         string
	EstimatedEntries int

	Status         UnitStatus
	AssignedWorker string
	AssignedAt     time.Time
	StartedAt      time.Time
	CompletedAt    time.Time

	EntriesProcessed int
	CurrentRate      float64
	RetryCount       int
	MaxRetries       int
	LastError        string
	Errors           []UnitError
}

// Active reports whether the unit currently belongs to a worker.
func (u *WorkUnit) Active() bool {
	return u.Status == UnitAssigned || u.Status == UnitProcessing
}

// ContainsLemma reports whether a normalized lemma falls in the
// unit's range.  The end prefix is inclusive: "Ende" belongs to a
// unit ending at "E".
func (u *WorkUnit) ContainsLemma(lemma string) bool {
	return lemma >= u.RangeStart && lemma < NextPrefix(u.RangeEnd)
}

// NextPrefix returns the smallest string greater than every string
// with the given prefix, by incrementing the final rune.  An empty
// prefix has no successor; a sentinel past any practical lemma is
// returned.
func NextPrefix(prefix string) string {
	if prefix == "" {
		return "\U0010FFFF"
	}
	runes := []rune(prefix)
	runes[len(runes)-1]++
	return string(runes)
}

// WorkerInfo is the master's record of one registered worker.
type WorkerInfo struct {
	WorkerID       string
	IP             string
	Status         WorkerStatus
	CurrentWorkID  string
	LastHeartbeat  time.Time
	TotalProcessed int
	AverageRate    float64
	RegisteredAt   time.Time
}

// UpsertStats reports what an entry batch upsert actually did.
type UpsertStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// SummaryRecord is one row of a status summary: the number of work
// units for a (language, source) pair in a given status.
type SummaryRecord struct {
	Language string
	Source   string
	Status   UnitStatus
	Count    int
}

// EntryStore holds AQEA entries.  Upserts are idempotent by address;
// entries are never deleted by this system.
type EntryStore interface {
	// UpsertEntries writes a batch atomically.  On an address
	// collision the stored CreatedAt is preserved, UpdatedAt is
	// overwritten, and meta maps merge with incoming keys winning
	// at the top level.
	UpsertEntries(entries []*aqea.Entry) (UpsertStats, error)

	// GetEntry fetches one entry, or nil if the address is
	// unknown (not an error).
	GetEntry(addr aqea.Address) (*aqea.Entry, error)

	// QueryEntries returns all entries matching an address
	// pattern, ordered by address.
	QueryEntries(pattern aqea.Pattern) ([]*aqea.Entry, error)
}

// Coordination holds work units and worker liveness.  All
// state-changing operations on a single work unit are linearizable.
type Coordination interface {
	// CreateWorkUnits installs a plan's units transactionally.
	// Units whose WorkID already exists are left untouched, so a
	// master restart does not reset progress.
	CreateWorkUnits(units []*WorkUnit) error

	// ClaimNextPending atomically assigns the oldest pending unit
	// (ties broken by ascending WorkID) to the worker and returns
	// it.  Returns nil when nothing is pending.  Returns
	// ErrWorkerBusy if the worker already owns an active unit.
	ClaimNextPending(workerID string) (*WorkUnit, error)

	// UpdateProgress records a worker's cumulative progress on
	// its unit.  The first report transitions the unit from
	// assigned to processing.  Returns ErrWrongWorker if the unit
	// is owned by someone else, ErrUnitNotActive if it is not in
	// an updatable state.
	UpdateProgress(workID, workerID string, entriesProcessed int, rate float64, softErrors []UnitError) error

	// Complete finishes a unit.  Repeating a completion with the
	// same final count is accepted silently; a different count
	// wins but is logged.
	Complete(workID, workerID string, finalCount int, success bool) error

	// RegisterWorker creates or refreshes a worker record and
	// returns its id (generating one if the request left it
	// empty).
	RegisterWorker(info WorkerInfo) (string, error)

	// Heartbeat refreshes a worker's liveness.  Unknown workers
	// are registered implicitly.
	Heartbeat(workerID string, status WorkerStatus, currentWorkID string) error

	// SweepStaleWorkers marks workers silent for longer than
	// timeout as offline and recycles their active units:
	// pending with RetryCount incremented while retries remain,
	// failed otherwise.  Returns the ids of recycled units.
	SweepStaleWorkers(timeout time.Duration) ([]string, error)

	// WorkUnits returns all units, ordered by WorkID.
	WorkUnits() ([]*WorkUnit, error)

	// Workers returns all registered workers.
	Workers() ([]*WorkerInfo, error)
}

// Store is a complete storage backend: entries, coordination state,
// and the address allocator, all in one place so a single SQL
// transaction scope can back them.
type Store interface {
	EntryStore
	Coordination
	aqea.Allocator

	// Summarize returns work-unit counts grouped by language,
	// source, and status, for metrics and status reporting.
	Summarize() ([]SummaryRecord, error)

	// Ping reports whether the backend is reachable.
	Ping() error

	// Close releases the backend's resources.
	Close() error
}
