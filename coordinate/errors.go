// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package coordinate

import (
	"errors"
	"fmt"
)

// ErrWrongWorker is returned when a worker reports against a unit it
// does not own.  The REST layer maps this to HTTP 409; the worker
// treats it as a directive to abandon the unit and ask for new work.
var ErrWrongWorker = errors.New("work unit is owned by another worker")

// ErrUnitNotActive is returned from progress and completion calls
// when the unit is not in an updatable state.
var ErrUnitNotActive = errors.New("work unit is not assigned or processing")

// ErrProgressRegression is returned when a progress report would
// decrease EntriesProcessed within a single assignment.
var ErrProgressRegression = errors.New("entries_processed may not decrease")

// ErrNoSuchWorkUnit is returned when a work id is unknown.
type ErrNoSuchWorkUnit struct {
	WorkID string
}

func (err ErrNoSuchWorkUnit) Error() string {
	return fmt.Sprintf("no such work unit %q", err.WorkID)
}

// ErrNoSuchWorker is returned when a worker id is unknown.
type ErrNoSuchWorker struct {
	WorkerID string
}

func (err ErrNoSuchWorker) Error() string {
	return fmt.Sprintf("no such worker %q", err.WorkerID)
}

// ErrWorkerBusy is returned from ClaimNextPending when the worker
// already owns an active unit.
type ErrWorkerBusy struct {
	WorkerID string
	WorkID   string
}

func (err ErrWorkerBusy) Error() string {
	return fmt.Sprintf("worker %q already owns active unit %q", err.WorkerID, err.WorkID)
}
