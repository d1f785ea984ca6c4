// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"time"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// Retry schedule for transient storage failures before a request is
// answered 503.
const (
	storeAttempts    = 3
	storeBackoffBase = 100 * time.Millisecond
)

// transient reports whether a store error is worth retrying.
// Coordination outcomes are definitive answers, not failures.
func transient(err error) bool {
	switch err.(type) {
	case coordinate.ErrWorkerBusy, coordinate.ErrNoSuchWorkUnit, coordinate.ErrNoSuchWorker:
		return false
	case restdata.ErrorStatus:
		return false
	}
	switch err {
	case coordinate.ErrWrongWorker, coordinate.ErrUnitNotActive, coordinate.ErrProgressRegression:
		return false
	}
	return true
}

// withStore runs one storage operation, retrying transient failures
// with exponential backoff.  A failure that outlives the retry budget
// comes back as 503 Service Unavailable.
func (api *restAPI) withStore(f func() error) error {
	backoff := storeBackoffBase
	var err error
	for attempt := 0; attempt < storeAttempts; attempt++ {
		if attempt > 0 {
			api.clk.Sleep(backoff)
			backoff *= 2
		}
		err = f()
		if err == nil || !transient(err) {
			return err
		}
	}
	return restdata.ErrUnavailable{Err: err}
}
