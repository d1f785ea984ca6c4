// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"errors"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/restdata"
)

// UpsertEntries writes a batch of entries idempotently.
func (api *restAPI) UpsertEntries(ctx *context, in interface{}) (interface{}, error) {
	batch, valid := in.(restdata.EntryBatch)
	if !valid {
		return nil, errUnmarshal
	}
	entries := make([]*aqea.Entry, 0, len(batch.Entries))
	for _, wire := range batch.Entries {
		entry, err := wire.ToEntry()
		if err != nil {
			return nil, err
		}
		if err := entry.Validate(); err != nil {
			return nil, restdata.ErrBadRequest{Err: err}
		}
		entries = append(entries, entry)
	}
	var stats coordinate.UpsertStats
	err := api.withStore(func() error {
		var err error
		stats, err = api.Store.UpsertEntries(entries)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restdata.UpsertStats{Inserted: stats.Inserted, Updated: stats.Updated}, nil
}

// QueryEntries returns entries matching an address pattern such as
// "0xA0:01:*:*".
func (api *restAPI) QueryEntries(ctx *context) (interface{}, error) {
	text := ctx.QueryParams.Get("pattern")
	if text == "" {
		return nil, restdata.ErrBadRequest{Err: errors.New("entry query requires pattern")}
	}
	pattern, err := aqea.ParsePattern(text)
	if err != nil {
		return nil, restdata.ErrBadRequest{Err: err}
	}
	var entries []*aqea.Entry
	err = api.withStore(func() error {
		var err error
		entries, err = api.Store.QueryEntries(pattern)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := restdata.EntryList{Entries: []restdata.Entry{}}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, restdata.FromEntry(entry))
	}
	return resp, nil
}

// GetEntry returns one entry by address, or 404.
func (api *restAPI) GetEntry(ctx *context) (interface{}, error) {
	var entry *aqea.Entry
	err := api.withStore(func() error {
		var err error
		entry, err = api.Store.GetEntry(ctx.Address)
		return err
	})
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, restdata.ErrNotFound{Err: errors.New("no entry at " + ctx.Address.String())}
	}
	return restdata.FromEntry(entry), nil
}
