// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct a Store based
// on command-line flags, with an ordered fallback chain for when the
// preferred database is unreachable.
package backend

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/aqea/go-extractor/coordinate"
	"github.com/aqea/go-extractor/memory"
	"github.com/aqea/go-extractor/postgres"
	"github.com/aqea/go-extractor/sqlite"
)

// Backend describes user-visible parameters for store construction.
// This implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         backend := backend.Backend{Implementation: "memory"}
//         flag.Var(&backend, "backend", "impl:address of the store")
//         flag.Parse()
//         store, err := backend.Store()
//     }
type Backend struct {
	// Implementation holds the name of the implementation: one of
	// "postgres", "sqlite", or "memory".
	Implementation string

	// Address holds some backend-specific address, such as a
	// database connect string or a file path.
	Address string
}

// Store creates a new store.  This generally should be called only
// once; backends carry in-process state such as connection pools, and
// two "memory" stores are two independent worlds.
func (b *Backend) Store() (coordinate.Store, error) {
	switch b.Implementation {
	case "postgres":
		return postgres.New(b.Address)
	case "sqlite":
		path := b.Address
		if path == "" {
			path = "aqea.db"
		}
		return sqlite.New(path)
	case "memory":
		return memory.New(), nil
	}
	return nil, errors.New("unknown storage backend " + b.Implementation)
}

// StoreWithFallback creates a store for the preferred backend, and on
// failure walks down the chain: postgres, then sqlite, then memory.
// Each downgrade is logged loudly; a memory store on what was meant
// to be a database deployment loses everything on restart.
func (b *Backend) StoreWithFallback() (coordinate.Store, error) {
	chain := []Backend{*b}
	switch b.Implementation {
	case "postgres":
		chain = append(chain, Backend{Implementation: "sqlite"}, Backend{Implementation: "memory"})
	case "sqlite":
		chain = append(chain, Backend{Implementation: "memory"})
	}
	var lastErr error
	for i, candidate := range chain {
		store, err := candidate.Store()
		if err == nil {
			err = store.Ping()
			if err != nil {
				store.Close()
			}
		}
		if err != nil {
			lastErr = err
			logrus.WithFields(logrus.Fields{
				"backend": candidate.String(),
				"error":   err,
			}).Warn("storage backend unavailable")
			continue
		}
		if i > 0 {
			logrus.WithFields(logrus.Fields{
				"wanted": b.String(),
				"using":  candidate.String(),
			}).Warn("downgraded storage backend")
		}
		return store, nil
	}
	return nil, lastErr
}

// String renders a backend description as a string.
func (b *Backend) String() string {
	if b.Address == "" {
		return b.Implementation
	}
	return b.Implementation + ":" + b.Address
}

// Set parses a string into an existing backend description.  The
// string should be of the form "implementation:address", where
// address can be any string.  Set checks that the implementation is
// one of the known ones, and returns an appropriate error if not.
//
// This is part of the flag.Value interface.  Neither this nor
// String() attempts to validate the address part of the string or to
// actually make a connection.
func (b *Backend) Set(param string) error {
	parts := strings.SplitN(param, ":", 2)
	b.Implementation = parts[0]
	if len(parts) == 2 {
		b.Address = parts[1]
	} else {
		b.Address = ""
	}
	switch b.Implementation {
	case "postgres", "sqlite", "memory":
		return nil
	}
	return errors.New("unknown storage backend " + b.Implementation)
}
