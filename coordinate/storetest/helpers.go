// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package storetest

import (
	"fmt"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// germanUnits builds a small deterministic plan's worth of units.
func germanUnits() []*coordinate.WorkUnit {
	plan := coordinate.LanguagePlan{
		Language:         "deu",
		Source:           "wiktionary",
		EstimatedEntries: 400,
		AlphabetRanges: []coordinate.AlphabetRange{
			{Start: "A", End: "E", Weight: 1},
			{Start: "F", End: "K", Weight: 1},
			{Start: "L", End: "R", Weight: 1},
			{Start: "S", End: "Z", Weight: 1},
		},
	}
	units, err := plan.BuildWorkUnits()
	if err != nil {
		panic(err)
	}
	return units
}

// installUnits creates the standard test units and checks the count.
func (s *Suite) installUnits() []*coordinate.WorkUnit {
	units := germanUnits()
	s.Require().NoError(s.Store.CreateWorkUnits(units))
	return units
}

// registerWorker registers a worker with a fixed id.
func (s *Suite) registerWorker(id string) {
	got, err := s.Store.RegisterWorker(coordinate.WorkerInfo{
		WorkerID: id,
		IP:       "10.0.0.1",
	})
	s.Require().NoError(err)
	s.Require().Equal(id, got)
}

// claim registers a worker and claims one unit for it.
func (s *Suite) claim(workerID string) *coordinate.WorkUnit {
	s.registerWorker(workerID)
	unit, err := s.Store.ClaimNextPending(workerID)
	s.Require().NoError(err)
	s.Require().NotNil(unit)
	return unit
}

// unitByID refetches one unit from the store.
func (s *Suite) unitByID(workID string) *coordinate.WorkUnit {
	units, err := s.Store.WorkUnits()
	s.Require().NoError(err)
	for _, u := range units {
		if u.WorkID == workID {
			return u
		}
	}
	s.Require().FailNow("work unit not found", "work id %q", workID)
	return nil
}

// workerByID refetches one worker record from the store.
func (s *Suite) workerByID(workerID string) *coordinate.WorkerInfo {
	workers, err := s.Store.Workers()
	s.Require().NoError(err)
	for _, w := range workers {
		if w.WorkerID == workerID {
			return w
		}
	}
	s.Require().FailNow("worker not found", "worker id %q", workerID)
	return nil
}

// makeEntry builds a valid entry at a fixed address with one meta key
// varied by the suffix.
func makeEntry(a2 byte, suffix string) *aqea.Entry {
	return &aqea.Entry{
		Address:     aqea.NewAddress(0xA0, 0x01, 0x10, a2),
		Label:       fmt.Sprintf("Wort%s", suffix),
		Description: fmt.Sprintf("German noun 'Wort%s'.", suffix),
		Domain:      "0xA0",
		Status:      "active",
		LangUI:      "deu",
		Meta: aqea.Meta{
			"lemma":  fmt.Sprintf("Wort%s", suffix),
			"pos":    "noun",
			"source": "wiktionary",
		},
	}
}
