// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package storetest

import (
	"github.com/aqea/go-extractor/coordinate"
)

// TestRegisterWorker validates explicit and generated worker ids.
func (s *Suite) TestRegisterWorker() {
	id, err := s.Store.RegisterWorker(coordinate.WorkerInfo{WorkerID: "w1", IP: "10.0.0.1"})
	s.NoError(err)
	s.Equal("w1", id)

	w := s.workerByID("w1")
	s.Equal(coordinate.WorkerIdle, w.Status)
	s.Equal("10.0.0.1", w.IP)
	s.False(w.RegisteredAt.IsZero())

	// An empty id gets one generated.
	generated, err := s.Store.RegisterWorker(coordinate.WorkerInfo{})
	s.NoError(err)
	s.NotEmpty(generated)
	s.NotEqual("w1", generated)

	// Re-registering refreshes rather than duplicating.
	_, err = s.Store.RegisterWorker(coordinate.WorkerInfo{WorkerID: "w1", IP: "10.0.0.2"})
	s.NoError(err)
	workers, err := s.Store.Workers()
	s.NoError(err)
	s.Len(workers, 2)
	s.Equal("10.0.0.2", s.workerByID("w1").IP)
}

// TestHeartbeat validates liveness refresh and implicit registration.
func (s *Suite) TestHeartbeat() {
	s.registerWorker("w1")
	before := s.workerByID("w1").LastHeartbeat

	s.Clock.Add(coordinate.SweepInterval)
	s.NoError(s.Store.Heartbeat("w1", coordinate.WorkerIdle, ""))
	s.True(s.workerByID("w1").LastHeartbeat.After(before))

	// Heartbeats from unknown workers register them implicitly, so
	// a master restart does not orphan running workers.
	s.NoError(s.Store.Heartbeat("ghost", coordinate.WorkerWorking, ""))
	s.Equal(coordinate.WorkerWorking, s.workerByID("ghost").Status)
}
