// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package restclient provides a worker-side client for the extraction
// master's REST API.
//
// The client discovers the API by fetching the root document and
// following the URI templates it advertises; nothing beyond the root
// URL is hard coded.  Transient failures (network errors and 5xx
// responses) are retried with exponential backoff.  Application
// errors round-trip: a 409 from the work endpoint comes back as
// coordinate.ErrWorkerBusy, a progress conflict as
// coordinate.ErrWrongWorker, and so on.
package restclient

import (
	"net/http"
	"net/url"
	"time"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

const (
	defaultRetries     = 5
	defaultBackoffBase = 200 * time.Millisecond
	maxBackoff         = 10 * time.Second
)

// Client talks to an extraction master.
type Client struct {
	root resource
	data restdata.RootData

	// Retries is the maximum number of attempts for one call.
	Retries int

	// BackoffBase is the delay after the first failed attempt.  It
	// doubles on each subsequent failure, capped at 10 seconds.
	BackoffBase time.Duration
}

// New creates a client talking to the master at baseURL, fetching its
// root document to discover the rest of the API.
func New(baseURL string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		root:        resource{URL: parsed},
		Retries:     defaultRetries,
		BackoffBase: defaultBackoffBase,
	}
	err = c.retry(func() error {
		return c.root.Get(&c.data)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// retry runs f up to c.Retries times, backing off between transient
// failures.  Application errors stop the loop immediately.
func (c *Client) retry(f func() error) error {
	backoff := c.BackoffBase
	var err error
	for attempt := 0; attempt < c.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		err = f()
		if err == nil {
			return nil
		}
		if httpErr, ok := err.(*HTTPError); ok && !httpErr.Retriable() {
			return err
		}
		if _, ok := err.(errNoContent); ok {
			return err
		}
	}
	return err
}

// unwrapHTTP strips the HTTP status wrapper so callers see the
// application error the server originally raised.
func unwrapHTTP(err error) error {
	if httpErr, ok := err.(*HTTPError); ok {
		return httpErr.Err
	}
	return err
}

// Register announces a worker to the master.  An empty workerID asks
// the master to generate one; the response carries the id to use and
// the heartbeat cadence the master expects.
func (c *Client) Register(workerID, ip string) (*restdata.RegistrationResponse, error) {
	var resp restdata.RegistrationResponse
	err := c.retry(func() error {
		return c.root.PostTo(c.data.RegisterURL, nil,
			restdata.RegistrationRequest{WorkerID: workerID, IP: ip}, &resp)
	})
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	return &resp, nil
}

// ClaimWork asks for the oldest pending work unit.  It returns nil
// with no error when the queue is empty, and coordinate.ErrWorkerBusy
// when this worker already holds a unit.
func (c *Client) ClaimWork(workerID string) (*coordinate.WorkUnit, error) {
	var wire restdata.WorkUnit
	err := c.retry(func() error {
		return c.root.GetFrom(c.data.WorkURL,
			map[string]interface{}{"worker_id": workerID}, &wire)
	})
	if _, empty := err.(errNoContent); empty {
		return nil, nil
	}
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	return wire.ToWorkUnit()
}

// Progress reports cumulative progress on a claimed unit.
func (c *Client) Progress(workID, workerID string, entriesProcessed int, rate float64, unitErrors []coordinate.UnitError) error {
	err := c.retry(func() error {
		err := c.root.PostTo(c.data.ProgressURL,
			map[string]interface{}{"work_id": workID},
			restdata.ProgressRequest{
				WorkerID:         workerID,
				EntriesProcessed: entriesProcessed,
				Rate:             rate,
				Errors:           unitErrors,
			}, nil)
		if _, empty := err.(errNoContent); empty {
			return nil
		}
		return err
	})
	return unwrapHTTP(err)
}

// Complete finishes a work unit, successfully or not.
func (c *Client) Complete(workID, workerID string, finalCount int, success bool) error {
	err := c.retry(func() error {
		err := c.root.PostTo(c.data.CompleteURL,
			map[string]interface{}{"work_id": workID},
			restdata.CompleteRequest{
				WorkerID:   workerID,
				FinalCount: finalCount,
				Success:    success,
			}, nil)
		if _, empty := err.(errNoContent); empty {
			return nil
		}
		return err
	})
	return unwrapHTTP(err)
}

// Heartbeat refreshes the worker's liveness with the master.
func (c *Client) Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	err := c.retry(func() error {
		err := c.root.PostTo(c.data.HeartbeatURL, nil,
			restdata.HeartbeatRequest{
				WorkerID:      workerID,
				Status:        status.String(),
				CurrentWorkID: currentWorkID,
			}, nil)
		if _, empty := err.(errNoContent); empty {
			return nil
		}
		return err
	})
	return unwrapHTTP(err)
}

// Status fetches the master's aggregate progress view.
func (c *Client) Status() (*restdata.StatusResponse, error) {
	var resp restdata.StatusResponse
	err := c.retry(func() error {
		return c.root.GetFrom(c.data.StatusURL, nil, &resp)
	})
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	return &resp, nil
}

// Health fetches the master's health report.
func (c *Client) Health() (*restdata.HealthResponse, error) {
	var resp restdata.HealthResponse
	err := c.retry(func() error {
		return c.root.GetFrom(c.data.HealthURL, nil, &resp)
	})
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	return &resp, nil
}

// UpsertEntries sends a batch of entries for idempotent persistence.
func (c *Client) UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error) {
	batch := restdata.EntryBatch{Entries: make([]restdata.Entry, 0, len(entries))}
	for _, entry := range entries {
		batch.Entries = append(batch.Entries, restdata.FromEntry(entry))
	}
	var stats restdata.UpsertStats
	err := c.retry(func() error {
		return c.root.PostTo(c.data.EntriesURL, nil, batch, &stats)
	})
	if err != nil {
		return coordinate.UpsertStats{}, unwrapHTTP(err)
	}
	return coordinate.UpsertStats{Inserted: stats.Inserted, Updated: stats.Updated}, nil
}

// GetEntry fetches a single entry by address.  A missing entry is
// (nil, nil), matching the store interface.
func (c *Client) GetEntry(addr aqea.Address) (*aqea.Entry, error) {
	var wire restdata.Entry
	err := c.retry(func() error {
		return c.root.GetFrom(c.data.EntryURL,
			map[string]interface{}{"address": addr.String()}, &wire)
	})
	if httpErr, ok := err.(*HTTPError); ok && httpErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	return wire.ToEntry()
}

// QueryEntries fetches entries matching an address pattern.
func (c *Client) QueryEntries(pattern aqea.Pattern) ([]*aqea.Entry, error) {
	var list restdata.EntryList
	err := c.retry(func() error {
		return c.root.GetFrom(c.data.EntriesURL,
			map[string]interface{}{"pattern": pattern.String()}, &list)
	})
	if err != nil {
		return nil, unwrapHTTP(err)
	}
	entries := make([]*aqea.Entry, 0, len(list.Entries))
	for _, wire := range list.Entries {
		entry, err := wire.ToEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
