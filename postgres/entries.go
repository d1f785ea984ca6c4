// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

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

// entryUpsertStatement is the idempotent write: collisions keep the
// stored created_at, take everything else from the incoming row, and
// merge meta at the top level with incoming keys winning.  The xmax
// test distinguishes a fresh insert from an update.
const entryUpsertStatement = `
INSERT INTO aqea_entries(aa, qq, ee, a2, address, label, description,
	domain, status, lang_ui, created_at, updated_at, meta, relations)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT(aa, qq, ee, a2) DO UPDATE SET
	label=EXCLUDED.label,
	description=EXCLUDED.description,
	domain=EXCLUDED.domain,
	status=EXCLUDED.status,
	lang_ui=EXCLUDED.lang_ui,
	updated_at=EXCLUDED.updated_at,
	meta=aqea_entries.meta || EXCLUDED.meta,
	relations=EXCLUDED.relations
RETURNING (xmax = 0)`

func (s *pgStore) UpsertEntries(entries []*aqea.Entry) (coordinate.UpsertStats, error) {
	var stats coordinate.UpsertStats
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return coordinate.UpsertStats{}, err
		}
	}
	err := withTx(s, false, func(tx *sql.Tx) error {
		stats = coordinate.UpsertStats{}
		now := s.clk.Now()
		for _, entry := range entries {
			meta, err := toJSON(entry.Meta)
			if err != nil {
				return err
			}
			relations, err := toJSON(entry.Relations)
			if err != nil {
				return err
			}
			addr := entry.Address
			row := tx.QueryRow(entryUpsertStatement,
				int(addr.AA()), int(addr.QQ()), int(addr.EE()), int(addr.A2()),
				addr.String(), entry.Label, entry.Description,
				entry.Domain, entry.Status, entry.LangUI,
				now, now, meta, relations)
			var inserted bool
			if err := row.Scan(&inserted); err != nil {
				return err
			}
			if inserted {
				stats.Inserted++
			} else {
				stats.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return coordinate.UpsertStats{}, err
	}
	return stats, nil
}

var entryOutputs = []string{
	"aa", "qq", "ee", "a2", "label", "description", "domain",
	"status", "lang_ui", "created_at", "updated_at", "meta", "relations",
}

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

func (s *pgStore) GetEntry(addr aqea.Address) (*aqea.Entry, error) {
	var entry *aqea.Entry
	params := queryParams{}
	query := buildSelect(entryOutputs, []string{"aqea_entries"}, []string{
		"aa=" + params.Param(int(addr.AA())),
		"qq=" + params.Param(int(addr.QQ())),
		"ee=" + params.Param(int(addr.EE())),
		"a2=" + params.Param(int(addr.A2())),
	})
	err := withTx(s, true, func(tx *sql.Tx) error {
		entry = nil
		row := tx.QueryRow(query, params...)
		found, err := scanEntry(row)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		entry = found
		return nil
	})
	return entry, err
}

func (s *pgStore) QueryEntries(pattern aqea.Pattern) ([]*aqea.Entry, error) {
	params := queryParams{}
	conditions := []string{}
	for i, column := range []string{"aa", "qq", "ee", "a2"} {
		if pattern[i] >= 0 {
			conditions = append(conditions, column+"="+params.Param(int(pattern[i])))
		}
	}
	query := buildSelect(entryOutputs, []string{"aqea_entries"}, conditions)
	query += " ORDER BY aa, qq, ee, a2"

	entries := []*aqea.Entry{}
	err := queryAndScan(s, query, params, func(rows *sql.Rows) error {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
