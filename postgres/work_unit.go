// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/coordinate"
)

func statusToSQL(status coordinate.UnitStatus) string {
	text, err := status.MarshalText()
	if err != nil {
		panic(err)
	}
	return string(text)
}

func sqlToStatus(text string) (coordinate.UnitStatus, error) {
	var status coordinate.UnitStatus
	err := status.UnmarshalText([]byte(text))
	return status, err
}

func (s *pgStore) CreateWorkUnits(units []*coordinate.WorkUnit) error {
	return withTx(s, false, func(tx *sql.Tx) error {
		for _, unit := range units {
			maxRetries := unit.MaxRetries
			if maxRetries == 0 {
				maxRetries = coordinate.DefaultMaxRetries
			}
			params := queryParams{}
			fields := fieldList{}
			fields.Add(&params, "work_id", unit.WorkID)
			fields.Add(&params, "language", unit.Language)
			fields.Add(&params, "source", unit.Source)
			fields.Add(&params, "range_start", unit.RangeStart)
			fields.Add(&params, "range_end", unit.RangeEnd)
			fields.Add(&params, "estimated_entries", unit.EstimatedEntries)
			fields.Add(&params, "max_retries", maxRetries)
			query := fields.InsertStatement("work_units")
			query += " ON CONFLICT(work_id) DO NOTHING"
			if _, err := tx.Exec(query, params...); err != nil {
				return err
			}
		}
		return nil
	})
}

var unitOutputs = []string{
	"work_id", "language", "source", "range_start", "range_end",
	"estimated_entries", "status", "assigned_worker", "assigned_at",
	"started_at", "completed_at", "entries_processed", "current_rate",
	"retry_count", "max_retries", "last_error", "errors",
}

func scanUnit(rows interface {
	Scan(...interface{}) error
}) (*coordinate.WorkUnit, error) {
	var (
		unit                               coordinate.WorkUnit
		status                             string
		assignedAt, startedAt, completedAt pq.NullTime
		unitErrors                         []byte
	)
	err := rows.Scan(&unit.WorkID, &unit.Language, &unit.Source,
		&unit.RangeStart, &unit.RangeEnd, &unit.EstimatedEntries,
		&status, &unit.AssignedWorker, &assignedAt, &startedAt,
		&completedAt, &unit.EntriesProcessed, &unit.CurrentRate,
		&unit.RetryCount, &unit.MaxRetries, &unit.LastError, &unitErrors)
	if err != nil {
		return nil, err
	}
	if unit.Status, err = sqlToStatus(status); err != nil {
		return nil, err
	}
	unit.AssignedAt = nullTimeToTime(assignedAt)
	unit.StartedAt = nullTimeToTime(startedAt)
	unit.CompletedAt = nullTimeToTime(completedAt)
	if err = fromJSON(unitErrors, &unit.Errors); err != nil {
		return nil, err
	}
	return &unit, nil
}

// getUnitTx fetches one unit inside a transaction, locking its row.
func getUnitTx(tx *sql.Tx, workID string) (*coordinate.WorkUnit, error) {
	params := queryParams{}
	query := buildSelect(unitOutputs, []string{"work_units"},
		[]string{"work_id=" + params.Param(workID)})
	query += " FOR UPDATE"
	unit, err := scanUnit(tx.QueryRow(query, params...))
	if err == sql.ErrNoRows {
		return nil, coordinate.ErrNoSuchWorkUnit{WorkID: workID}
	}
	return unit, err
}

func (s *pgStore) ClaimNextPending(workerID string) (*coordinate.WorkUnit, error) {
	var claimed *coordinate.WorkUnit
	err := withTx(s, false, func(tx *sql.Tx) error {
		claimed = nil

		// A worker holds at most one unit at a time.
		params := queryParams{}
		busyQuery := buildSelect([]string{"work_id"}, []string{"work_units"}, []string{
			"assigned_worker=" + params.Param(workerID),
			"status IN ('assigned', 'processing')",
		})
		var busyID string
		err := tx.QueryRow(busyQuery, params...).Scan(&busyID)
		if err == nil {
			return coordinate.ErrWorkerBusy{WorkerID: workerID, WorkID: busyID}
		}
		if err != sql.ErrNoRows {
			return err
		}

		// Oldest pending first, ties broken by work id.  SKIP
		// LOCKED keeps two workers claiming at once from
		// serializing on the same row.
		params = queryParams{}
		query := buildSelect(unitOutputs, []string{"work_units"},
			[]string{"status=" + params.Param(statusToSQL(coordinate.UnitPending))})
		query += " ORDER BY work_id LIMIT 1 FOR UPDATE SKIP LOCKED"
		unit, err := scanUnit(tx.QueryRow(query, params...))
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clk.Now()
		params = queryParams{}
		fields := fieldList{}
		fields.Add(&params, "status", statusToSQL(coordinate.UnitAssigned))
		fields.Add(&params, "assigned_worker", workerID)
		fields.Add(&params, "assigned_at", now)
		fields.AddDirect("started_at", "NULL")
		fields.AddDirect("completed_at", "NULL")
		fields.AddDirect("entries_processed", "0")
		fields.AddDirect("current_rate", "0")
		query = buildUpdate("work_units", fields.UpdateChanges(),
			[]string{"work_id=" + params.Param(unit.WorkID)})
		if _, err = tx.Exec(query, params...); err != nil {
			return err
		}

		if err = upsertWorkerTx(tx, s.clk, workerID, coordinate.WorkerWorking, unit.WorkID); err != nil {
			return err
		}

		unit.Status = coordinate.UnitAssigned
		unit.AssignedWorker = workerID
		unit.AssignedAt = now
		unit.EntriesProcessed = 0
		unit.CurrentRate = 0
		claimed = unit
		return nil
	})
	return claimed, err
}

func (s *pgStore) UpdateProgress(workID, workerID string, entriesProcessed int, rate float64, softErrors []coordinate.UnitError) error {
	return withTx(s, false, func(tx *sql.Tx) error {
		unit, err := getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		if !unit.Active() {
			return coordinate.ErrUnitNotActive
		}
		if unit.AssignedWorker != workerID {
			return coordinate.ErrWrongWorker
		}
		if entriesProcessed < unit.EntriesProcessed {
			return coordinate.ErrProgressRegression
		}

		params := queryParams{}
		fields := fieldList{}
		if unit.Status == coordinate.UnitAssigned {
			fields.Add(&params, "status", statusToSQL(coordinate.UnitProcessing))
			fields.Add(&params, "started_at", s.clk.Now())
		}
		fields.Add(&params, "entries_processed", entriesProcessed)
		fields.Add(&params, "current_rate", rate)
		if len(softErrors) > 0 {
			merged := append(append([]coordinate.UnitError{}, unit.Errors...), softErrors...)
			data, err := toJSON(merged)
			if err != nil {
				return err
			}
			fields.Add(&params, "errors", data)
			last := softErrors[len(softErrors)-1]
			fields.Add(&params, "last_error", last.Kind+": "+last.Detail)
		}
		query := buildUpdate("work_units", fields.UpdateChanges(),
			[]string{"work_id=" + params.Param(workID)})
		if _, err = tx.Exec(query, params...); err != nil {
			return err
		}

		params = queryParams{}
		fields = fieldList{}
		fields.Add(&params, "total_processed", entriesProcessed)
		fields.Add(&params, "average_rate", rate)
		query = buildUpdate("workers", fields.UpdateChanges(),
			[]string{"worker_id=" + params.Param(workerID)})
		_, err = tx.Exec(query, params...)
		return err
	})
}

func (s *pgStore) Complete(workID, workerID string, finalCount int, success bool) error {
	return withTx(s, false, func(tx *sql.Tx) error {
		unit, err := getUnitTx(tx, workID)
		if err != nil {
			return err
		}
		if unit.Status == coordinate.UnitCompleted {
			if unit.EntriesProcessed != finalCount {
				logrus.WithFields(logrus.Fields{
					"work_id": workID,
					"stored":  unit.EntriesProcessed,
					"final":   finalCount,
				}).Warn("repeated completion changed final count")
				params := queryParams{}
				fields := fieldList{}
				fields.Add(&params, "entries_processed", finalCount)
				query := buildUpdate("work_units", fields.UpdateChanges(),
					[]string{"work_id=" + params.Param(workID)})
				if _, err = tx.Exec(query, params...); err != nil {
					return err
				}
			}
			return nil
		}
		if !unit.Active() {
			return coordinate.ErrUnitNotActive
		}
		if unit.AssignedWorker != workerID {
			return coordinate.ErrWrongWorker
		}

		if success {
			params := queryParams{}
			fields := fieldList{}
			fields.Add(&params, "status", statusToSQL(coordinate.UnitCompleted))
			fields.Add(&params, "entries_processed", finalCount)
			fields.Add(&params, "completed_at", s.clk.Now())
			query := buildUpdate("work_units", fields.UpdateChanges(),
				[]string{"work_id=" + params.Param(workID)})
			if _, err = tx.Exec(query, params...); err != nil {
				return err
			}
		} else if err = recycleUnitTx(tx, unit, "worker_failure"); err != nil {
			return err
		}

		params := queryParams{}
		fields := fieldList{}
		fields.Add(&params, "status", "idle")
		fields.AddDirect("current_work_id", "''")
		query := buildUpdate("workers", fields.UpdateChanges(),
			[]string{"worker_id=" + params.Param(workerID)})
		_, err = tx.Exec(query, params...)
		return err
	})
}

// recycleUnitTx returns a lost unit to the pending queue, or fails it
// when its retries are spent.
func recycleUnitTx(tx *sql.Tx, unit *coordinate.WorkUnit, reason string) error {
	status := coordinate.UnitPending
	if unit.RetryCount+1 >= unit.MaxRetries {
		status = coordinate.UnitFailed
	}
	params := queryParams{}
	fields := fieldList{}
	fields.Add(&params, "status", statusToSQL(status))
	fields.AddDirect("retry_count", "retry_count + 1")
	fields.AddDirect("assigned_worker", "''")
	fields.AddDirect("assigned_at", "NULL")
	fields.AddDirect("started_at", "NULL")
	fields.AddDirect("entries_processed", "0")
	fields.AddDirect("current_rate", "0")
	fields.Add(&params, "last_error", reason)
	query := buildUpdate("work_units", fields.UpdateChanges(),
		[]string{"work_id=" + params.Param(unit.WorkID)})
	_, err := tx.Exec(query, params...)
	return err
}

func (s *pgStore) WorkUnits() ([]*coordinate.WorkUnit, error) {
	query := buildSelect(unitOutputs, []string{"work_units"}, nil)
	query += " ORDER BY work_id"
	units := []*coordinate.WorkUnit{}
	err := queryAndScan(s, query, queryParams{}, func(rows *sql.Rows) error {
		unit, err := scanUnit(rows)
		if err != nil {
			return err
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}
