// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package source defines the extractor side of the pipeline: plugins
// that stream normalized lexical records out of an upstream
// dictionary.
//
// An Extractor covers one language of one upstream source.  Workers
// ask it for a lexicographic lemma range matching their claimed work
// unit and receive aqea.Record values one at a time.  Records that
// cannot be parsed are skipped inside the extractor; only transport
// and cancellation problems surface as errors.
package source

import (
	"context"
	"fmt"

	"github.com/aqea/go-extractor/aqea"
)

// Extractor produces normalized records for a lemma range.
type Extractor interface {
	// ExtractRange streams records whose lemma falls in the range.
	// The end is prefix inclusive, so "Ende" belongs to a range
	// ending at "E".  emit is called once per record; a non-nil
	// error from emit stops the stream and is returned unchanged.
	ExtractRange(ctx context.Context, start, end string, emit func(aqea.Record) error) error

	// Close releases the extractor's resources.  ExtractRange may
	// not be called afterwards.
	Close() error
}

// ErrUnknownSource is returned from New for an unrecognized source
// name.
type ErrUnknownSource struct {
	Name string
}

func (err ErrUnknownSource) Error() string {
	return fmt.Sprintf("unknown source %q", err.Name)
}

// New creates an extractor by source name.  "wiktionary" is the
// production source; "static" produces nothing until records are
// added and exists for tests and demos.
func New(name string, config Config) (Extractor, error) {
	switch name {
	case "wiktionary":
		return NewWiktionary(config)
	case "static":
		if config.RecordsFile != "" {
			return NewStaticFromFile(config.RecordsFile)
		}
		return NewStatic(nil), nil
	}
	return nil, ErrUnknownSource{Name: name}
}
