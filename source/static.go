// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/aqea/go-extractor/aqea"
)

// Static is an in-memory extractor for tests and demos.  Records are
// streamed in lexicographic lemma order regardless of insertion
// order.
type Static struct {
	records []aqea.Record
	closed  bool
}

// NewStatic creates a static extractor over a fixed record set.
func NewStatic(records []aqea.Record) *Static {
	s := &Static{records: append([]aqea.Record(nil), records...)}
	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].Word < s.records[j].Word
	})
	return s
}

// NewStaticFromFile loads a static extractor from a YAML file of
// loosely-typed record maps, as written by external preparation
// scripts.
func NewStaticFromFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var maps []map[string]interface{}
	if err := yaml.Unmarshal(raw, &maps); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	records := make([]aqea.Record, 0, len(maps))
	for i, m := range maps {
		rec, err := aqea.RecordFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("%s: record %d: %v", path, i, err)
		}
		records = append(records, rec)
	}
	return NewStatic(records), nil
}

// Add appends more records, keeping lemma order.
func (s *Static) Add(records ...aqea.Record) {
	s.records = append(s.records, records...)
	sort.Slice(s.records, func(i, j int) bool {
		return s.records[i].Word < s.records[j].Word
	})
}

// ExtractRange implements Extractor.
func (s *Static) ExtractRange(ctx context.Context, start, end string, emit func(aqea.Record) error) error {
	if s.closed {
		return errors.New("extractor is closed")
	}
	for _, rec := range s.records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !lemmaInRange(rec.Word, start, end) {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Extractor.
func (s *Static) Close() error {
	s.closed = true
	return nil
}

// lemmaInRange applies the prefix-inclusive range rule shared with
// the work-unit model.
func lemmaInRange(word, start, end string) bool {
	if word < start {
		return false
	}
	if end == "" {
		return true
	}
	return word <= end || strings.HasPrefix(word, end)
}
