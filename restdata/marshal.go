// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"
	"time"

	"github.com/ugorji/go/codec"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// Decode tries to decode a restdata object from a reader, such as an
// HTTP request or response.  out must be a pointer type.
func Decode(contentType string, r io.Reader, out interface{}) error {
	if contentType == "" {
		// RFC 7231 section 3.1.1.5
		contentType = "application/octet-stream"
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return err
	}
	switch mediaType {
	case "text/json", "application/json", JSONMediaType, V1JSONMediaType:
	default:
		return ErrUnsupportedMediaType{Type: mediaType}
	}
	json := &codec.JsonHandle{}
	return codec.NewDecoder(r, json).Decode(out)
}

// Encode writes a restdata object to a writer as the v1 JSON media
// type.
func Encode(w io.Writer, in interface{}) error {
	json := &codec.JsonHandle{}
	return codec.NewEncoder(w, json).Encode(in)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	copied := t
	return &copied
}

func flattenTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// FromWorkUnit converts a coordinate work unit to its wire form.
func FromWorkUnit(unit *coordinate.WorkUnit) WorkUnit {
	return WorkUnit{
		WorkID:           unit.WorkID,
		Language:         unit.Language,
		Source:           unit.Source,
		RangeStart:       unit.RangeStart,
		RangeEnd:         unit.RangeEnd,
		EstimatedEntries: unit.EstimatedEntries,
		Status:           unit.Status.String(),
		AssignedWorker:   unit.AssignedWorker,
		AssignedAt:       optionalTime(unit.AssignedAt),
		StartedAt:        optionalTime(unit.StartedAt),
		CompletedAt:      optionalTime(unit.CompletedAt),
		EntriesProcessed: unit.EntriesProcessed,
		CurrentRate:      unit.CurrentRate,
		RetryCount:       unit.RetryCount,
		MaxRetries:       unit.MaxRetries,
		LastError:        unit.LastError,
		Errors:           unit.Errors,
	}
}

// ToWorkUnit converts a wire work unit back to its coordinate form.
func (w WorkUnit) ToWorkUnit() (*coordinate.WorkUnit, error) {
	unit := &coordinate.WorkUnit{
		WorkID:           w.WorkID,
		Language:         w.Language,
		Source:           w.Source,
		RangeStart:       w.RangeStart,
		RangeEnd:         w.RangeEnd,
		EstimatedEntries: w.EstimatedEntries,
		AssignedWorker:   w.AssignedWorker,
		AssignedAt:       flattenTime(w.AssignedAt),
		StartedAt:        flattenTime(w.StartedAt),
		CompletedAt:      flattenTime(w.CompletedAt),
		EntriesProcessed: w.EntriesProcessed,
		CurrentRate:      w.CurrentRate,
		RetryCount:       w.RetryCount,
		MaxRetries:       w.MaxRetries,
		LastError:        w.LastError,
		Errors:           w.Errors,
	}
	err := unit.Status.UnmarshalText([]byte(w.Status))
	return unit, err
}

// FromWorkerInfo converts a coordinate worker record to its wire form.
func FromWorkerInfo(info *coordinate.WorkerInfo) Worker {
	return Worker{
		WorkerID:       info.WorkerID,
		IP:             info.IP,
		Status:         info.Status.String(),
		CurrentWorkID:  info.CurrentWorkID,
		LastHeartbeat:  info.LastHeartbeat,
		TotalProcessed: info.TotalProcessed,
		AverageRate:    info.AverageRate,
	}
}

// FromEntry converts an entry to its wire form.
func FromEntry(entry *aqea.Entry) Entry {
	wire := Entry{
		Address:     entry.Address.String(),
		Label:       entry.Label,
		Description: entry.Description,
		Domain:      entry.Domain,
		Status:      entry.Status,
		LangUI:      entry.LangUI,
		CreatedAt:   optionalTime(entry.CreatedAt),
		UpdatedAt:   optionalTime(entry.UpdatedAt),
		Meta:        entry.Meta,
	}
	for _, rel := range entry.Relations {
		wire.Relations = append(wire.Relations, EntryRelation{
			Kind:   rel.Kind,
			Target: rel.Target.String(),
		})
	}
	return wire
}

// ToEntry converts a wire entry back to an aqea.Entry.
func (e Entry) ToEntry() (*aqea.Entry, error) {
	addr, err := aqea.ParseAddress(e.Address)
	if err != nil {
		return nil, ErrBadRequest{Err: err}
	}
	entry := &aqea.Entry{
		Address:     addr,
		Label:       e.Label,
		Description: e.Description,
		Domain:      e.Domain,
		Status:      e.Status,
		LangUI:      e.LangUI,
		CreatedAt:   flattenTime(e.CreatedAt),
		UpdatedAt:   flattenTime(e.UpdatedAt),
		Meta:        e.Meta,
	}
	for _, rel := range e.Relations {
		target, err := aqea.ParseAddress(rel.Target)
		if err != nil {
			return nil, ErrBadRequest{Err: err}
		}
		entry.Relations = append(entry.Relations, aqea.Relation{
			Kind:   rel.Kind,
			Target: target,
		})
	}
	return entry, nil
}
