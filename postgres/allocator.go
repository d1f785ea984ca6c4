// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package postgres

import (
	"database/sql"

	"github.com/aqea/go-extractor/aqea"
)

// Allocate hands out the element id for a lemma key inside one
// (aa, qq, ee) tuple.  The id is stable for a repeated key and unique
// across keys; concurrent allocations racing on the same id are
// resolved by the unique constraint plus the retry in withTx.
func (s *pgStore) Allocate(aa, qq, ee byte, lemmaKey string) (byte, error) {
	var result byte
	err := withTx(s, false, func(tx *sql.Tx) error {
		params := queryParams{}
		query := buildSelect([]string{"a2"}, []string{"address_allocations"}, []string{
			"aa=" + params.Param(int(aa)),
			"qq=" + params.Param(int(qq)),
			"ee=" + params.Param(int(ee)),
			"lemma_key=" + params.Param(lemmaKey),
		})
		var a2 int
		err := tx.QueryRow(query, params...).Scan(&a2)
		if err == nil {
			result = byte(a2)
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		// Load the tuple's occupancy and probe from the lemma's
		// preferred slot.
		params = queryParams{}
		query = buildSelect([]string{"a2"}, []string{"address_allocations"}, []string{
			"aa=" + params.Param(int(aa)),
			"qq=" + params.Param(int(qq)),
			"ee=" + params.Param(int(ee)),
		})
		used := [256]bool{}
		count := 0
		rows, err := tx.Query(query, params...)
		if err != nil {
			return err
		}
		err = scanRows(rows, func() error {
			var taken int
			if err := rows.Scan(&taken); err != nil {
				return err
			}
			used[taken] = true
			count++
			return nil
		})
		if err != nil {
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

		params = queryParams{}
		fields := fieldList{}
		fields.Add(&params, "aa", int(aa))
		fields.Add(&params, "qq", int(qq))
		fields.Add(&params, "ee", int(ee))
		fields.Add(&params, "lemma_key", lemmaKey)
		fields.Add(&params, "a2", int(candidate))
		if _, err = tx.Exec(fields.InsertStatement("address_allocations"), params...); err != nil {
			return err
		}
		result = candidate
		return nil
	})
	return result, err
}
