// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package sqlite

import (
	"database/sql"
	"sort"
	"time"

	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

var jsonHandle codec.JsonHandle

func toJSON(value interface{}) ([]byte, error) {
	var data []byte
	err := codec.NewEncoderBytes(&data, &jsonHandle).Encode(value)
	return data, err
}

func fromJSON(data []byte, value interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return codec.NewDecoderBytes(data, &jsonHandle).Decode(value)
}

func nullToTime(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}

func timeToNull(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// EntryStore:

func (s *liteStore) UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error) {
	var stats coordinate.UpsertStats
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return coordinate.UpsertStats{}, err
		}
	}
	err := s.withTx(func(tx *sql.Tx) error {
		now := s.clk.Now()
		for _, entry := range entries {
			addr := entry.Address
			var (
				storedMeta []byte
				createdAt  time.Time
			)
			err := tx.QueryRow(
				`SELECT meta, created_at FROM aqea_entries WHERE aa=? AND qq=? AND ee=? AND a2=?`,
				int(addr.AA()), int(addr.QQ()), int(addr.EE()), int(addr.A2()),
			).Scan(&storedMeta, &createdAt)
			switch err {
			case sql.ErrNoRows:
				meta, err := toJSON(entry.Meta)
				if err != nil {
					return err
				}
				relations, err := toJSON(entry.Relations)
				if err != nil {
					return err
				}
				_, err = tx.Exec(`
INSERT INTO aqea_entries(aa, qq, ee, a2, address, label, description,
	domain, status, lang_ui, created_at, updated_at, meta, relations)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					int(addr.AA()), int(addr.QQ()), int(addr.EE()), int(addr.A2()),
					addr.String(), entry.Label, entry.Description,
					entry.Domain, entry.Status, entry.LangUI,
					now, now, meta, relations)
				if err != nil {
					return err
				}
				stats.Inserted++
			case nil:
				var stored aqea.Meta
				if err := fromJSON(storedMeta, &stored); err != nil {
					return err
				}
				meta, err := toJSON(aqea.MergeMeta(stored, entry.Meta))
				if err != nil {
					return err
				}
				relations, err := toJSON(entry.Relations)
				if err != nil {
					return err
				}
				_, err = tx.Exec(`
UPDATE aqea_entries SET label=?, description=?, domain=?, status=?,
	lang_ui=?, updated_at=?, meta=?, relations=?
WHERE aa=? AND qq=? AND ee=? AND a2=?`,
					entry.Label, entry.Description, entry.Domain, entry.Status,
					entry.LangUI, now, meta, relations,
					int(addr.AA()), int(addr.QQ()), int(addr.EE()), int(addr.A2()))
				if err != nil {
					return err
				}
				stats.Updated++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return coordinate.UpsertStats{}, err
	}
	return stats, nil
}

const entryColumns = `aa, qq, ee, a2, label, description, domain,
	status, lang_ui, created_at, updated_at, meta, relations`

func scanEntry(rows interface {
	Scan(...interface{}) error
}) (*aqea.Entry, error) {
	var (
		aa, qq, ee, a2  int
		entry           aqea.Entry
		meta, relations []byte
	)
	err := rows.Scan(&aa, &qq, &ee, &a2,
		&entry.Label, &entry.Description, &entry.Domain,
		&entry.Status, &entry.LangUI,
		&entry.CreatedAt, &entry.UpdatedAt, &meta, &relations)
	if err != nil {
		return nil, err
	}
	entry.Address = aqea.NewAddress(byte(aa), byte(qq), byte(ee), byte(a2))
	if err = fromJSON(meta, &entry.Meta); err != nil {
		return nil, err
	}
	if err = fromJSON(relations, &entry.Relations); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *liteStore) GetEntry(addr aqea.Address) (*aqea.Entry, error) {
	row := s.db.QueryRow(
		`SELECT `+entryColumns+` FROM aqea_entries WHERE aa=? AND qq=? AND ee=? AND a2=?`,
		int(addr.AA()), int(addr.QQ()), int(addr.EE()), int(addr.A2()))
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

func (s *liteStore) QueryEntries(pattern aqea.Pattern) ([]*aqea.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM aqea_entries`
	conditions := ""
	args := []interface{}{}
	for i, column := range []string{"aa", "qq", "ee", "a2"} {
		if pattern[i] < 0 {
			continue
		}
		if conditions == "" {
			conditions = " WHERE "
		} else {
			conditions += " AND "
		}
		conditions += column + "=?"
		args = append(args, int(pattern[i]))
	}
	query += conditions + " ORDER BY aa, qq, ee, a2"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []*aqea.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Coordination:

func (s *liteStore) CreateWorkUnits(units []*coordinate.WorkUnit) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, unit := range units {
			maxRetries := unit.MaxRetries
			if maxRetries == 0 {
				maxRetries = coordinate.DefaultMaxRetries
			}
			_, err := tx.Exec(`
INSERT INTO work_units(work_id, language, source, range_start, range_end,
	estimated_entries, max_retries)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(work_id) DO NOTHING`,
				unit.WorkID, unit.Language, unit.Source,
				unit.RangeStart, unit.RangeEnd,
				unit.EstimatedEntries, maxRetries)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

const unitColumns = `work_id, language, source, range_start, range_end,
	estimated_entries, status, assigned_worker, assigned_at, started_at,
	completed_at, entries_processed, current_rate, retry_count,
	max_retries, last_error, errors`

func scanUnit(rows interface {
	Scan(...interface{}) error
}) (*coordinate.WorkUnit, error) {
	var (
		unit                               coordinate.WorkUnit
		status                             string
		assignedAt, startedAt, completedAt sql.NullTime
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
	if err = unit.Status.UnmarshalText([]byte(status)); err != nil {
		return nil, err
	}
	unit.AssignedAt = nullToTime(assignedAt)
	unit.StartedAt = nullToTime(startedAt)
	unit.CompletedAt = nullToTime(completedAt)
	if err = fromJSON(unitErrors, &unit.Errors); err != nil {
		return nil, err
	}
	return &unit, nil
}

func getUnitTx(tx *sql.Tx, workID string) (*coordinate.WorkUnit, error) {
	row := tx.QueryRow(`SELECT `+unitColumns+` FROM work_units WHERE work_id=?`, workID)
	unit, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, coordinate.ErrNoSuchWorkUnit{WorkID: workID}
	}
	return unit, err
}

func (s *liteStore) ClaimNextPending(workerID string) (*coordinate.WorkUnit, error) {
	var claimed *coordinate.WorkUnit
	err := s.withTx(func(tx *sql.Tx) error {
		var busyID string
		err := tx.QueryRow(`
SELECT work_id FROM work_units
WHERE assigned_worker=? AND status IN ('assigned', 'processing')`,
			workerID).Scan(&busyID)
		if err == nil {
			return coordinate.ErrWorkerBusy{WorkerID: workerID, WorkID: busyID}
		}
		if err != sql.ErrNoRows {
			return err
		}

		row := tx.QueryRow(`
SELECT ` + unitColumns + ` FROM work_units
WHERE status='pending' ORDER BY work_id LIMIT 1`)
		unit, err := scanUnit(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		now := s.clk.Now()
		_, err = tx.Exec(`
UPDATE work_units SET status='assigned', assigned_worker=?, assigned_at=?,
	started_at=NULL, completed_at=NULL, entries_processed=0, current_rate=0
WHERE work_id=?`, workerID, now, unit.WorkID)
		if err != nil {
			return err
		}
		if err = s.upsertWorkerTx(tx, workerID, coordinate.WorkerWorking, unit.WorkID); err != nil {
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

func (s *liteStore) UpdateProgress(workID, workerID string, entriesProcessed int, rate float64, softErrors []coordinate.UnitError) error {
	return s.withTx(func(tx *sql.Tx) error {
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

		if unit.Status == coordinate.UnitAssigned {
			_, err = tx.Exec(`UPDATE work_units SET status='processing', started_at=? WHERE work_id=?`,
				s.clk.Now(), workID)
			if err != nil {
				return err
			}
		}
		if len(softErrors) > 0 {
			merged := append(append([]coordinate.UnitError{}, unit.Errors...), softErrors...)
			data, err := toJSON(merged)
			if err != nil {
				return err
			}
			last := softErrors[len(softErrors)-1]
			_, err = tx.Exec(`UPDATE work_units SET errors=?, last_error=? WHERE work_id=?`,
				data, last.Kind+": "+last.Detail, workID)
			if err != nil {
				return err
			}
		}
		_, err = tx.Exec(`UPDATE work_units SET entries_processed=?, current_rate=? WHERE work_id=?`,
			entriesProcessed, rate, workID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`UPDATE workers SET total_processed=?, average_rate=? WHERE worker_id=?`,
			entriesProcessed, rate, workerID)
		return err
	})
}

func (s *liteStore) Complete(workID, workerID string, finalCount int, success bool) error {
	return s.withTx(func(tx *sql.Tx) error {
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
				_, err = tx.Exec(`UPDATE work_units SET entries_processed=? WHERE work_id=?`,
					finalCount, workID)
				if err != nil {
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
			_, err = tx.Exec(`
UPDATE work_units SET status='completed', entries_processed=?, completed_at=?
WHERE work_id=?`, finalCount, s.clk.Now(), workID)
			if err != nil {
				return err
			}
		} else if err = recycleUnitTx(tx, unit, "worker_failure"); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE workers SET status='idle', current_work_id='' WHERE worker_id=?`,
			workerID)
		return err
	})
}

func recycleUnitTx(tx *sql.Tx, unit *coordinate.WorkUnit, reason string) error {
	status := "pending"
	if unit.RetryCount+1 >= unit.MaxRetries {
		status = "failed"
	}
	_, err := tx.Exec(`
UPDATE work_units SET status=?, retry_count=retry_count + 1, assigned_worker='',
	assigned_at=NULL, started_at=NULL, entries_processed=0, current_rate=0,
	last_error=?
WHERE work_id=?`, status, reason, unit.WorkID)
	return err
}

func (s *liteStore) upsertWorkerTx(tx *sql.Tx, workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	text, err := status.MarshalText()
	if err != nil {
		return err
	}
	now := s.clk.Now()
	_, err = tx.Exec(`
INSERT INTO workers(worker_id, status, current_work_id, last_heartbeat, registered_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(worker_id) DO UPDATE SET
	status=excluded.status,
	current_work_id=excluded.current_work_id,
	last_heartbeat=excluded.last_heartbeat`,
		workerID, string(text), currentWorkID, now, now)
	return err
}

func (s *liteStore) RegisterWorker(info coordinate.WorkerInfo) (string, error) {
	if info.WorkerID == "" {
		info.WorkerID = uuid.NewV4().String()
	}
	err := s.withTx(func(tx *sql.Tx) error {
		now := s.clk.Now()
		_, err := tx.Exec(`
INSERT INTO workers(worker_id, ip, status, last_heartbeat, registered_at)
VALUES(?, ?, 'idle', ?, ?)
ON CONFLICT(worker_id) DO UPDATE SET
	ip=excluded.ip,
	last_heartbeat=excluded.last_heartbeat,
	status=CASE WHEN workers.status='offline' THEN 'idle' ELSE workers.status END`,
			info.WorkerID, info.IP, now, now)
		return err
	})
	if err != nil {
		return "", err
	}
	return info.WorkerID, nil
}

func (s *liteStore) Heartbeat(workerID string, status coordinate.WorkerStatus, currentWorkID string) error {
	return s.withTx(func(tx *sql.Tx) error {
		return s.upsertWorkerTx(tx, workerID, status, currentWorkID)
	})
}

func (s *liteStore) SweepStaleWorkers(timeout time.Duration) ([]string, error) {
	recycled := []string{}
	err := s.withTx(func(tx *sql.Tx) error {
		cutoff := s.clk.Now().Add(-timeout)
		rows, err := tx.Query(`
SELECT worker_id FROM workers WHERE status <> 'offline' AND last_heartbeat < ?`,
			cutoff)
		if err != nil {
			return err
		}
		stale := []string{}
		for rows.Next() {
			var workerID string
			if err := rows.Scan(&workerID); err != nil {
				rows.Close()
				return err
			}
			stale = append(stale, workerID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, workerID := range stale {
			_, err := tx.Exec(`UPDATE workers SET status='offline', current_work_id='' WHERE worker_id=?`,
				workerID)
			if err != nil {
				return err
			}
			unitRows, err := tx.Query(`
SELECT `+unitColumns+` FROM work_units
WHERE assigned_worker=? AND status IN ('assigned', 'processing')`, workerID)
			if err != nil {
				return err
			}
			units := []*coordinate.WorkUnit{}
			for unitRows.Next() {
				unit, err := scanUnit(unitRows)
				if err != nil {
					unitRows.Close()
					return err
				}
				units = append(units, unit)
			}
			unitRows.Close()
			if err := unitRows.Err(); err != nil {
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

func (s *liteStore) WorkUnits() ([]*coordinate.WorkUnit, error) {
	rows, err := s.db.Query(`SELECT ` + unitColumns + ` FROM work_units ORDER BY work_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := []*coordinate.WorkUnit{}
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

func (s *liteStore) Workers() ([]*coordinate.WorkerInfo, error) {
	rows, err := s.db.Query(`
SELECT worker_id, ip, status, current_work_id, last_heartbeat,
	total_processed, average_rate, registered_at
FROM workers ORDER BY worker_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	workers := []*coordinate.WorkerInfo{}
	for rows.Next() {
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
		workers = append(workers, &worker)
	}
	return workers, rows.Err()
}

// Allocator:

func (s *liteStore) Allocate(aa, qq, ee byte, lemmaKey string) (byte, error) {
	var result byte
	err := s.withTx(func(tx *sql.Tx) error {
		var a2 int
		err := tx.QueryRow(`
SELECT a2 FROM address_allocations WHERE aa=? AND qq=? AND ee=? AND lemma_key=?`,
			int(aa), int(qq), int(ee), lemmaKey).Scan(&a2)
		if err == nil {
			result = byte(a2)
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		rows, err := tx.Query(`SELECT a2 FROM address_allocations WHERE aa=? AND qq=? AND ee=?`,
			int(aa), int(qq), int(ee))
		if err != nil {
			return err
		}
		used := [256]bool{}
		count := 0
		for rows.Next() {
			var taken int
			if err := rows.Scan(&taken); err != nil {
				rows.Close()
				return err
			}
			used[taken] = true
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if count >= 0xFE {
			return aqea.ErrAddressSpaceExhausted{AA: aa, QQ: qq, EE: ee}
		}
		candidate := aqea.PreferredElementID(lemmaKey)
		for used[candidate] {
			if candidate == 0xFE {
				candidate = 0x01
			} else {
				candidate++
			}
		}
		_, err = tx.Exec(`
INSERT INTO address_allocations(aa, qq, ee, lemma_key, a2) VALUES(?, ?, ?, ?, ?)`,
			int(aa), int(qq), int(ee), lemmaKey, int(candidate))
		if err != nil {
			return err
		}
		result = candidate
		return nil
	})
	return result, err
}

// Summarize:

func (s *liteStore) Summarize() ([]coordinate.SummaryRecord, error) {
	rows, err := s.db.Query(`
SELECT language, source, status, COUNT(*)
FROM work_units
GROUP BY language, source, status
ORDER BY language, source, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []coordinate.SummaryRecord{}
	for rows.Next() {
		var (
			record coordinate.SummaryRecord
			status string
		)
		if err := rows.Scan(&record.Language, &record.Source, &status, &record.Count); err != nil {
			return nil, err
		}
		if err := record.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
