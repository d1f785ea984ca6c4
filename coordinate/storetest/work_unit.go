// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package storetest

import (
	"time"

	"github.com/aqea/go-extractor/coordinate"
)

// TestCreateWorkUnitsIdempotent validates that re-installing a plan
// leaves existing units, and their progress, untouched.
func (s *Suite) TestCreateWorkUnitsIdempotent() {
	s.installUnits()

	unit := s.claim("w1")
	s.NoError(s.Store.UpdateProgress(unit.WorkID, "w1", 42, 3.5, nil))

	// A master restart replays the same plan.
	s.NoError(s.Store.CreateWorkUnits(germanUnits()))

	again := s.unitByID(unit.WorkID)
	s.Equal(coordinate.UnitProcessing, again.Status)
	s.Equal(42, again.EntriesProcessed)
	s.Equal("w1", again.AssignedWorker)

	units, err := s.Store.WorkUnits()
	s.NoError(err)
	s.Len(units, 4)
}

// TestClaimOrder validates that units are dispensed oldest first with
// ties broken by ascending work id, and that an empty queue yields
// nil rather than an error.
func (s *Suite) TestClaimOrder() {
	s.installUnits()

	seen := []string{}
	for i, workerID := range []string{"w1", "w2", "w3", "w4"} {
		unit := s.claim(workerID)
		seen = append(seen, unit.WorkID)
		s.Equal(coordinate.UnitAssigned, unit.Status)
		s.Equal(workerID, unit.AssignedWorker)
		if i > 0 {
			s.True(seen[i-1] < seen[i], "claims out of order: %v", seen)
		}
	}

	s.registerWorker("w5")
	unit, err := s.Store.ClaimNextPending("w5")
	s.NoError(err)
	s.Nil(unit)
}

// TestClaimWhileBusy validates that a worker holding an active unit
// cannot claim a second one.
func (s *Suite) TestClaimWhileBusy() {
	s.installUnits()

	unit := s.claim("w1")
	_, err := s.Store.ClaimNextPending("w1")
	s.Equal(coordinate.ErrWorkerBusy{WorkerID: "w1", WorkID: unit.WorkID}, err)

	// Completion releases the worker.
	s.NoError(s.Store.Complete(unit.WorkID, "w1", 10, true))
	next, err := s.Store.ClaimNextPending("w1")
	s.NoError(err)
	if s.NotNil(next) {
		s.NotEqual(unit.WorkID, next.WorkID)
	}
}

// TestProgressLifecycle validates the assigned-to-processing
// transition and cumulative progress reporting.
func (s *Suite) TestProgressLifecycle() {
	s.installUnits()
	unit := s.claim("w1")

	s.NoError(s.Store.UpdateProgress(unit.WorkID, "w1", 100, 12.5, nil))
	u := s.unitByID(unit.WorkID)
	s.Equal(coordinate.UnitProcessing, u.Status)
	s.Equal(100, u.EntriesProcessed)
	s.Equal(12.5, u.CurrentRate)
	s.False(u.StartedAt.IsZero())

	s.NoError(s.Store.UpdateProgress(unit.WorkID, "w1", 250, 14.0, []coordinate.UnitError{
		{Kind: "parse", Detail: "unparseable wikitext for 'Beispiel'"},
	}))
	u = s.unitByID(unit.WorkID)
	s.Equal(250, u.EntriesProcessed)
	s.Len(u.Errors, 1)

	// Progress is cumulative and may not regress.
	s.Equal(coordinate.ErrProgressRegression,
		s.Store.UpdateProgress(unit.WorkID, "w1", 200, 14.0, nil))
}

// TestProgressOwnership validates the error taxonomy for progress
// reports from the wrong worker or against inactive units.
func (s *Suite) TestProgressOwnership() {
	s.installUnits()
	unit := s.claim("w1")

	s.registerWorker("w2")
	s.Equal(coordinate.ErrWrongWorker,
		s.Store.UpdateProgress(unit.WorkID, "w2", 10, 1.0, nil))

	err := s.Store.UpdateProgress("no_such_unit", "w1", 10, 1.0, nil)
	s.Equal(coordinate.ErrNoSuchWorkUnit{WorkID: "no_such_unit"}, err)

	s.NoError(s.Store.Complete(unit.WorkID, "w1", 10, true))
	s.Equal(coordinate.ErrUnitNotActive,
		s.Store.UpdateProgress(unit.WorkID, "w1", 20, 1.0, nil))
}

// TestCompleteSuccess validates normal completion and its
// idempotence.
func (s *Suite) TestCompleteSuccess() {
	s.installUnits()
	unit := s.claim("w1")
	s.NoError(s.Store.UpdateProgress(unit.WorkID, "w1", 90, 9.0, nil))

	s.NoError(s.Store.Complete(unit.WorkID, "w1", 100, true))
	u := s.unitByID(unit.WorkID)
	s.Equal(coordinate.UnitCompleted, u.Status)
	s.Equal(100, u.EntriesProcessed)
	s.False(u.CompletedAt.IsZero())

	// A retried completion with the same count is accepted.
	s.NoError(s.Store.Complete(unit.WorkID, "w1", 100, true))

	// A differing count wins.
	s.NoError(s.Store.Complete(unit.WorkID, "w1", 101, true))
	s.Equal(101, s.unitByID(unit.WorkID).EntriesProcessed)

	// The worker is idle again.
	w := s.workerByID("w1")
	s.Equal(coordinate.WorkerIdle, w.Status)
	s.Empty(w.CurrentWorkID)
}

// TestCompleteFailure validates the retry path: failed completions
// recycle the unit to pending until retries are exhausted.
func (s *Suite) TestCompleteFailure() {
	s.installUnits()
	unit := s.claim("w1")
	workID := unit.WorkID
	s.Equal(coordinate.DefaultMaxRetries, unit.MaxRetries)

	for retry := 1; retry < unit.MaxRetries; retry++ {
		s.NoError(s.Store.Complete(workID, "w1", 0, false))
		u := s.unitByID(workID)
		s.Equal(coordinate.UnitPending, u.Status)
		s.Equal(retry, u.RetryCount)
		s.Empty(u.AssignedWorker)
		s.Equal("worker_failure", u.LastError)

		// The same unit comes back; it is the oldest pending.
		again, err := s.Store.ClaimNextPending("w1")
		s.Require().NoError(err)
		s.Require().NotNil(again)
		s.Equal(workID, again.WorkID)
	}

	s.NoError(s.Store.Complete(workID, "w1", 0, false))
	u := s.unitByID(workID)
	s.Equal(coordinate.UnitFailed, u.Status)

	// Failed units are never dispensed again.
	for {
		next, err := s.Store.ClaimNextPending("w1")
		s.Require().NoError(err)
		if next == nil {
			break
		}
		s.NotEqual(workID, next.WorkID)
		s.NoError(s.Store.Complete(next.WorkID, "w1", 1, true))
	}
}

// TestSweepStaleWorkers validates heartbeat-based recycling with a
// mock clock.
func (s *Suite) TestSweepStaleWorkers() {
	s.installUnits()
	unit := s.claim("w1")

	// A fresh heartbeat protects the worker.
	s.Clock.Add(60 * time.Second)
	s.NoError(s.Store.Heartbeat("w1", coordinate.WorkerWorking, unit.WorkID))
	s.Clock.Add(90 * time.Second)
	recycled, err := s.Store.SweepStaleWorkers(coordinate.HeartbeatTimeout)
	s.NoError(err)
	s.Empty(recycled)

	// Silence past the timeout recycles the unit.
	s.Clock.Add(coordinate.HeartbeatTimeout + time.Second)
	recycled, err = s.Store.SweepStaleWorkers(coordinate.HeartbeatTimeout)
	s.NoError(err)
	s.Equal([]string{unit.WorkID}, recycled)

	u := s.unitByID(unit.WorkID)
	s.Equal(coordinate.UnitPending, u.Status)
	s.Equal(1, u.RetryCount)
	s.Empty(u.AssignedWorker)
	s.Equal("worker_timeout", u.LastError)

	w := s.workerByID("w1")
	s.Equal(coordinate.WorkerOffline, w.Status)

	// Sweeping again finds nothing new.
	recycled, err = s.Store.SweepStaleWorkers(coordinate.HeartbeatTimeout)
	s.NoError(err)
	s.Empty(recycled)
}

// TestSweepExhaustsRetries validates that repeated recycling
// eventually fails a unit.
func (s *Suite) TestSweepExhaustsRetries() {
	s.installUnits()
	unit := s.claim("w1")
	workID := unit.WorkID

	for retry := 1; retry <= unit.MaxRetries; retry++ {
		if retry > 1 {
			again, err := s.Store.ClaimNextPending("w1")
			s.Require().NoError(err)
			s.Require().NotNil(again)
			s.Require().Equal(workID, again.WorkID)
		}
		s.Clock.Add(coordinate.HeartbeatTimeout + time.Second)
		recycled, err := s.Store.SweepStaleWorkers(coordinate.HeartbeatTimeout)
		s.Require().NoError(err)
		s.Require().Equal([]string{workID}, recycled)
	}

	s.Equal(coordinate.UnitFailed, s.unitByID(workID).Status)
}

// TestSummarize validates the grouped status counts.
func (s *Suite) TestSummarize() {
	s.installUnits()
	unit := s.claim("w1")
	s.NoError(s.Store.Complete(unit.WorkID, "w1", 5, true))

	records, err := s.Store.Summarize()
	s.NoError(err)

	counts := map[coordinate.UnitStatus]int{}
	for _, rec := range records {
		s.Equal("deu", rec.Language)
		s.Equal("wiktionary", rec.Source)
		counts[rec.Status] += rec.Count
	}
	s.Equal(3, counts[coordinate.UnitPending])
	s.Equal(1, counts[coordinate.UnitCompleted])
}
