// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// Register creates or refreshes a worker record.  A request without a
// worker id is answered with a generated one.
func (api *restAPI) Register(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.RegistrationRequest)
	if !valid {
		return nil, errUnmarshal
	}
	var workerID string
	err := api.withStore(func() error {
		var err error
		workerID, err = api.Store.RegisterWorker(coordinate.WorkerInfo{
			WorkerID: req.WorkerID,
			IP:       req.IP,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return restdata.RegistrationResponse{
		WorkerID:          workerID,
		HeartbeatInterval: 30,
	}, nil
}

// Heartbeat refreshes a worker's liveness.  Unknown workers are
// registered implicitly.
func (api *restAPI) Heartbeat(ctx *context, in interface{}) (interface{}, error) {
	req, valid := in.(restdata.HeartbeatRequest)
	if !valid {
		return nil, errUnmarshal
	}
	if req.WorkerID == "" {
		return nil, restdata.ErrBadRequest{Err: errors.New("heartbeat requires worker_id")}
	}
	var status coordinate.WorkerStatus
	if req.Status == "" {
		status = coordinate.WorkerIdle
	} else if err := status.UnmarshalText([]byte(req.Status)); err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	err := api.withStore(func() error {
		return api.Store.Heartbeat(req.WorkerID, status, req.CurrentWorkID)
	})
	return nil, err
}
