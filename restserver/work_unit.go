// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// mapStoreError wraps well-known coordination errors with their HTTP
// statuses.
func mapStoreError(err error) error {
	switch err.(type) {
	case coordinate.ErrWorkerBusy:
		return restdata.ErrConflict{Err: err}
	case coordinate.ErrNoSuchWorkUnit, coordinate.ErrNoSuchWorker:
		return restdata.ErrNotFound{Err: err}
	}
	switch err {
	case coordinate.ErrWrongWorker, coordinate.ErrUnitNotActive:
		return restdata.ErrConflict{Err: err}
	case coordinate.ErrProgressRegression:
		return restdata.ErrBadRequest{Err: err}
	}
	return err
}

// ClaimWork dispenses the oldest pending unit to the calling worker.
// Nothing pending produces 204 No Content; a worker that already owns
// a unit gets 409 Conflict.
func (api *restAPI) ClaimWork(ctx *context) (interface{}, error) {
	workerID := ctx.QueryParams.Get("worker_id")
	if workerID == "" {
		return nil, restdata.ErrBadRequest{Err: errors.New("work claim requires worker_id")}
	}
	var unit *coordinate.WorkUnit
	err := api.withStore(func() error {
		var err error
		unit, err = api.Store.ClaimNextPending(workerID)
		return err
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	if unit == nil {
		return nil, nil
	}
	return restdata.FromWorkUnit(unit), nil
}

// Progress records a worker's cumulative progress on its unit.
func (api *restAPI) Progress(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.ProgressRequest)
	if !valid {
		return nil, errUnmarshal
	}
	err := api.withStore(func() error {
		return api.Store.UpdateProgress(ctx.WorkID, req.WorkerID,
			req.EntriesProcessed, req.Rate, req.Errors)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return nil, nil
}

// Complete finishes a work unit, successfully or not.
func (api *restAPI) Complete(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.CompleteRequest)
	if !valid {
		return nil, errUnmarshal
	}
	err := api.withStore(func() error {
		return api.Store.Complete(ctx.WorkID, req.WorkerID, req.FinalCount, req.Success)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}
	return nil, nil
}
