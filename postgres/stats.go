// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/aqea/go-extractor/coordinate"
)

const summarizeQuery = `
SELECT language, source, status, COUNT(*)
FROM work_units
GROUP BY language, source, status
ORDER BY language, source, status`

func (s *pgStore) Summarize() ([]coordinate.SummaryRecord, error) {
	records := []coordinate.SummaryRecord{}
	err := queryAndScan(s, summarizeQuery, queryParams{}, func(rows *sql.Rows) error {
		var (
			record coordinate.SummaryRecord
			status string
		)
		if err := rows.Scan(&record.Language, &record.Source, &status, &record.Count); err != nil {
			return err
		}
		var err error
		if record.Status, err = sqlToStatus(status); err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
