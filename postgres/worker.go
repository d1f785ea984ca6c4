// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/satori/go.uuid"

	"github.com/aqea/go-extractor/coordinate"
)

func workerStatusToSQL(status coordinate.WorkerStatus) string {
	text, err := status.MarshalText()
	if err != nil {
		panic(err)
	}
	return string(text)
}

// upsertWorkerTx creates or refreshes a worker row, setting its
// status, current unit, and heartbeat.
func upsertWorkerTx(tx *sql.Tx, clk clock.Clock, workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	now := clk.Now()
	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "worker_id", workerID)
	fields.Add(&params, "status", workerStatusToSQL(status))
	fields.Add(&params, "current_work_id", currentWorkID)
	fields.Add(&params, "last_heartbeat", now)
	fields.Add(&params, "registered_at", now)
	query := fields.InsertStatement("workers")
	query += ` ON CONFLICT(worker_id) DO UPDATE SET
		status=EXCLUDED.status,
		current_work_id=EXCLUDED.current_work_id,
		last_heartbeat=EXCLUDED.last_heartbeat`
	_, err := tx.Exec(query, params...)
	return err
}

func (s *pgStore) RegisterWorker(info coordinate.WorkerInfo) (string, error) {
	if info.WorkerID == "" {
		info.WorkerID = uuid.NewV4().String()
	}
	err := withTx(s, false, func(tx *sql.Tx) error {
		now := s.clk.Now()
		params := queryParams{}
		fields := fieldList{}
		fields.Add(&params, "worker_id", info.WorkerID)
		fields.Add(&params, "ip", info.IP)
		fields.Add(&params, "status", workerStatusToSQL(coordinate.WorkerIdle))
		fields.Add(&params, "last_heartbeat", now)
		fields.Add(&params, "registered_at", now)
		query := fields.InsertStatement("workers")
		query += ` ON CONFLICT(worker_id) DO UPDATE SET
			ip=EXCLUDED.ip,
			last_heartbeat=EXCLUDED.last_heartbeat,
			status=CASE WHEN workers.status='offline' THEN 'idle' ELSE workers.status END`
		_, err := tx.Exec(query, params...)
		return err
	})
	if err != nil {
		return "", err
	}
	return info.WorkerID, nil
}

func (s *pgStore) Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	return withTx(s, false, func(tx *sql.Tx) error {
		return upsertWorkerTx(tx, s.clk, workerID, status, currentWorkID)
	})
}

func (s *pgStore) SweepStaleWorkers(timeout time.Duration) ([]string, error) {
	recycled := []string{}
	err := withTx(s, false, func(tx *sql.Tx) error {
		recycled = recycled[:0]
		cutoff := s.clk.Now().Add(-timeout)

		params := queryParams{}
		query := buildSelect([]string{"worker_id"}, []string{"workers"}, []string{
			"status <> 'offline'",
			"last_heartbeat < " + params.Param(cutoff),
		})
		query += " FOR UPDATE"
		stale := []string{}
		rows, err := tx.Query(query, params...)
		if err != nil {
			return err
		}
		err = scanRows(rows, func() error {
			var workerID string
			if err := rows.Scan(&workerID); err != nil {
				return err
			}
			stale = append(stale, workerID)
			return nil
		})
		if err != nil {
			return err
		}

		for _, workerID := range stale {
			params := queryParams{}
			fields := fieldList{}
			fields.Add(&params, "status", workerStatusToSQL(coordinate.WorkerOffline))
			fields.AddDirect("current_work_id", "''")
			query := buildUpdate("workers", fields.UpdateChanges(),
				[]string{"worker_id=" + params.Param(workerID)})
			if _, err := tx.Exec(query, params...); err != nil {
				return err
			}

			params = queryParams{}
			query = buildSelect(unitOutputs, []string{"work_units"}, []string{
				"assigned_worker=" + params.Param(workerID),
				"status IN ('assigned', 'processing')",
			})
			query += " FOR UPDATE"
			units := []*coordinate.WorkUnit{}
			rows, err := tx.Query(query, params...)
			if err != nil {
				return err
			}
			err = scanRows(rows, func() error {
				unit, err := scanUnit(rows)
				if err != nil {
					return err
				}
				units = append(units, unit)
				return nil
			})
			if err != nil {
				return err
			}
			for _, unit := range units {
				if err := recycleUnitTx(tx, unit, "worker_timeout"); err != nil {
					return err
				}
				recycled = append(recycled, unit.WorkID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(recycled)
	return recycled, nil
}

var workerOutputs = []string{
	"worker_id", "ip", "status", "current_work_id", "last_heartbeat",
	"total_processed", "average_rate", "registered_at",
}

func scanWorker(rows interface {
	Scan(...interface{}) error
}) (*coordinate.WorkerInfo, error) {
	var (
		worker coordinate.WorkerInfo
		status string
	)
	err := rows.Scan(&worker.WorkerID, &worker.IP, &status,
		&worker.CurrentWorkID, &worker.LastHeartbeat,
		&worker.TotalProcessed, &worker.AverageRate, &worker.RegisteredAt)
	if err != nil {
		return nil, err
	}
	if err = worker.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	return &worker, nil
}

func (s *pgStore) Workers() ([]*coordinate.WorkerInfo, error) {
	query := buildSelect(workerOutputs, []string{"workers"}, nil)
	query += " ORDER BY worker_id"
	workers := []*coordinate.WorkerInfo{}
	err := queryAndScan(s, query, queryParams{}, func(rows *sql.Rows) error {
		worker, err := scanWorker(rows)
		if err != nil {
			return err
		}
		workers = append(workers, worker)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return workers, nil
}
