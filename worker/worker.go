// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package worker implements the extraction worker: a stateless loop
// that claims work units from the master, streams records out of a
// source extractor, converts them to addressed entries, and upserts
// them in batches.
//
// The worker talks to the master over its REST API for coordination
// (claim, progress, complete, heartbeat) and writes entries directly
// to a storage backend, which also serves address allocation.  When
// the backend rejects a batch even after retries, the batch is
// preserved in a newline-delimited JSON fallback file for later
// re-ingestion.
package worker

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
	"github.com/aqea/go-extractor/source"
)

// Defaults for the worker pipeline.
const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultFallbackDir   = "extracted_data"

	minBatchSize      = 10
	maxInterBatchWait = 10 * time.Second

	idleWaitMin = 2 * time.Second
	idleWaitMax = 10 * time.Second

	registerBackoffBase = 1 * time.Second
	registerBackoffCap  = 30 * time.Second

	// rateAlpha is the EWMA smoothing factor for the per-minute
	// processing rate.
	rateAlpha = 0.3
)

// Coordinator is the slice of the master client the worker needs.
// restclient.Client implements it.
type Coordinator interface {
	Register(workerID, ip string) (*restdata.RegistrationResponse, error)
	ClaimWork(workerID string) (*coordinate.WorkUnit, error)
	Progress(workID, workerID string, entriesProcessed int, rate float64, unitErrors []coordinate.UnitError) error
	Complete(workID, workerID string, finalCount int, success bool) error
	Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error
}

// EntrySink persists converted entries and allocates element ids.
// Every coordinate.Store implements it.
type EntrySink interface {
	aqea.Allocator
	UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error)
}

// Config holds worker settings.
type Config struct {
	// WorkerID identifies this worker.  Empty asks the master to
	// generate one at registration.
	WorkerID string

	// IP is reported to the master at registration.
	IP string

	// BatchSize is the upsert batch size before backpressure.
	BatchSize int

	// FlushInterval bounds how long a partial batch may sit.
	FlushInterval time.Duration

	// FallbackDir receives NDJSON files for batches the store
	// would not take.
	FallbackDir string

	// ExitOnIdle makes Run return instead of polling when the
	// master has nothing pending.
	ExitOnIdle bool
}

// Worker runs the extraction pipeline.
type Worker struct {
	config Config
	master Coordinator
	sink   EntrySink
	clk    clock.Clock
	log    *logrus.Entry

	// NewExtractor builds the extractor for one work unit.  It
	// defaults to the source package factory; tests replace it.
	NewExtractor func(sourceName, language string) (source.Extractor, error)

	mu            sync.Mutex
	status        coordinate.WorkerStatus
	currentWorkID string
}

// New creates a worker.
func New(config Config, master Coordinator, sink EntrySink) *Worker {
	return NewWithClock(config, master, sink, clock.New())
}

// NewWithClock creates a worker with an injected clock, for tests.
func NewWithClock(config Config, master Coordinator, sink EntrySink, clk clock.Clock) *Worker {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.FallbackDir == "" {
		config.FallbackDir = DefaultFallbackDir
	}
	return &Worker{
		config: config,
		master: master,
		sink:   sink,
		clk:    clk,
		log:    logrus.WithField("component", "worker"),
		NewExtractor: func(sourceName, language string) (source.Extractor, error) {
			return source.New(sourceName, source.Config{Language: language})
		},
		status: coordinate.WorkerIdle,
	}
}

// WorkerID returns the worker's id, which may have been assigned by
// the master during registration.
func (w *Worker) WorkerID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config.WorkerID
}

func (w *Worker) setStatus(status coordinate.WorkerStatus, workID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentWorkID = workID
}

// Run registers with the master and processes work units until the
// context is canceled or, with ExitOnIdle, the queue drains.  On
// cancellation the current batch is flushed and an aborting progress
// report is sent, but the unit is not completed; the master's sweep
// will recycle it.
func (w *Worker) Run(ctx context.Context) error {
	heartbeatInterval, err := w.register(ctx)
	if err != nil {
		return err
	}
	w.log = logrus.WithFields(logrus.Fields{
		"component": "worker",
		"worker_id": w.config.WorkerID,
	})

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.heartbeatLoop(heartbeatCtx, heartbeatInterval)

	for {
		if ctx.Err() != nil {
			return nil
		}
		unit, err := w.master.ClaimWork(w.config.WorkerID)
		if busy, isBusy := err.(coordinate.ErrWorkerBusy); isBusy {
			// A restart with the same id still owns its old unit.
			// Hand it back so it is reissued instead of claiming
			// 409 forever.
			w.log.WithField("work_id", busy.WorkID).Warn("releasing work unit held by a previous run")
			if err := w.master.Complete(busy.WorkID, w.config.WorkerID, 0, false); err != nil {
				w.log.WithError(err).Warn("could not release held work unit")
				if !w.sleep(ctx, idleWait()) {
					return nil
				}
			}
			continue
		}
		if err != nil {
			w.log.WithError(err).Warn("work claim failed")
			if !w.sleep(ctx, idleWait()) {
				return nil
			}
			continue
		}
		if unit == nil {
			if w.config.ExitOnIdle {
				return nil
			}
			if !w.sleep(ctx, idleWait()) {
				return nil
			}
			continue
		}
		w.setStatus(coordinate.WorkerWorking, unit.WorkID)
		err = w.processUnit(ctx, unit)
		w.setStatus(coordinate.WorkerIdle, "")
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.log.WithFields(logrus.Fields{
				"work_id": unit.WorkID,
				"error":   err,
			}).Error("work unit failed")
		}
	}
}

// register announces the worker to the master, retrying with backoff
// until it succeeds or the context ends.  It returns the heartbeat
// interval the master asked for.
func (w *Worker) register(ctx context.Context) (time.Duration, error) {
	backoff := registerBackoffBase
	for {
		resp, err := w.master.Register(w.config.WorkerID, w.config.IP)
		if err == nil {
			w.mu.Lock()
			w.config.WorkerID = resp.WorkerID
			w.mu.Unlock()
			interval := time.Duration(resp.HeartbeatInterval) * time.Second
			if interval <= 0 {
				interval = 30 * time.Second
			}
			return interval, nil
		}
		w.log.WithError(err).Warn("registration failed, will retry")
		if !w.sleep(ctx, backoff) {
			return 0, ctx.Err()
		}
		backoff *= 2
		if backoff > registerBackoffCap {
			backoff = registerBackoffCap
		}
	}
}

// heartbeatLoop reports liveness on the master's cadence, independent
// of pipeline state.
func (w *Worker) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := w.clk.Ticker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			status, workID := w.status, w.currentWorkID
			w.mu.Unlock()
			if err := w.master.Heartbeat(w.config.WorkerID, status, workID); err != nil {
				w.log.WithError(err).Warn("heartbeat failed")
			}
		}
	}
}

// sleep waits using the worker's clock.  Returns false if the context
// ended first.
func (w *Worker) sleep(ctx context.Context, d time.Duration) bool {
	timer := w.clk.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// idleWait is the jittered delay between claim attempts on an empty
// queue.
func idleWait() time.Duration {
	spread := idleWaitMax - idleWaitMin
	return idleWaitMin + time.Duration(rand.Int63n(int64(spread)))
}
