// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/ugorji/go/codec"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/restdata"
)

// WriteFallback persists a batch the store would not take as
// newline-delimited JSON, one wire-form entry per line, and returns
// the file path.
func WriteFallback(dir, workerID string, entries []*aqea.Entry, clk clock.Clock) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("aqea_entries_%s_%d.json", workerID, clk.Now().UnixMilli())
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	json := &codec.JsonHandle{}
	for _, entry := range entries {
		wire := restdata.FromEntry(entry)
		if err := codec.NewEncoder(f, json).Encode(wire); err != nil {
			return "", err
		}
		if _, err := f.Write([]byte("\n")); err != nil {
			return "", err
		}
	}
	return path, f.Sync()
}

// ReadFallback loads a fallback file back into entries, for
// re-ingestion once the store recovers.
func ReadFallback(path string) ([]*aqea.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	json := &codec.JsonHandle{}
	decoder := codec.NewDecoder(f, json)
	var entries []*aqea.Entry
	for {
		var wire restdata.Entry
		err := decoder.Decode(&wire)
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entry, err := wire.ToEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}
