// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package storetest

import (
	"time"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// TestUpsertInsertThenUpdate validates the idempotent upsert: fresh
// addresses insert, collisions update in place, created_at survives.
func (s *Suite) TestUpsertInsertThenUpdate() {
	first := makeEntry(0x01, "A")
	second := makeEntry(0x02, "B")
	stats, err := s.Store.UpsertEntries([]*aqea.Entry{first, second})
	s.NoError(err)
	s.Equal(coordinate.UpsertStats{Inserted: 2, Updated: 0}, stats)

	stored, err := s.Store.GetEntry(first.Address)
	s.NoError(err)
	s.Require().NotNil(stored)
	createdAt := stored.CreatedAt
	s.False(createdAt.IsZero())

	s.Clock.Add(time.Minute)
	replay := makeEntry(0x01, "A")
	replay.Description = "German noun 'WortA'. Updated."
	replay.Meta["ipa"] = "vɔʁt"
	stats, err = s.Store.UpsertEntries([]*aqea.Entry{replay})
	s.NoError(err)
	s.Equal(coordinate.UpsertStats{Inserted: 0, Updated: 1}, stats)

	stored, err = s.Store.GetEntry(first.Address)
	s.NoError(err)
	s.Require().NotNil(stored)
	s.Equal("German noun 'WortA'. Updated.", stored.Description)
	s.True(stored.CreatedAt.Equal(createdAt), "created_at changed on upsert")
	s.True(stored.UpdatedAt.After(createdAt))
}

// TestUpsertMergesMeta validates the top-level meta merge on
// collision: incoming keys win, absent stored keys survive.
func (s *Suite) TestUpsertMergesMeta() {
	entry := makeEntry(0x03, "C")
	entry.Meta["ipa"] = "old"
	entry.Meta["hyphenation"] = "Wort·C"
	_, err := s.Store.UpsertEntries([]*aqea.Entry{entry})
	s.NoError(err)

	replay := makeEntry(0x03, "C")
	replay.Meta["ipa"] = "new"
	_, err = s.Store.UpsertEntries([]*aqea.Entry{replay})
	s.NoError(err)

	stored, err := s.Store.GetEntry(entry.Address)
	s.NoError(err)
	s.Require().NotNil(stored)
	s.Equal("new", stored.Meta["ipa"])
	s.Equal("Wort·C", stored.Meta["hyphenation"])
}

// TestUpsertRejectsInvalid validates that a batch with an invalid
// entry is rejected whole.
func (s *Suite) TestUpsertRejectsInvalid() {
	bad := makeEntry(0x04, "D")
	bad.Label = ""
	_, err := s.Store.UpsertEntries([]*aqea.Entry{makeEntry(0x05, "E"), bad})
	s.Error(err)

	// Nothing from the batch landed.
	stored, err := s.Store.GetEntry(aqea.NewAddress(0xA0, 0x01, 0x10, 0x05))
	s.NoError(err)
	s.Nil(stored)
}

// TestGetEntryMissing validates the nil-not-error contract.
func (s *Suite) TestGetEntryMissing() {
	stored, err := s.Store.GetEntry(aqea.NewAddress(0xA0, 0x01, 0x10, 0x7F))
	s.NoError(err)
	s.Nil(stored)
}

// TestQueryEntries validates pattern queries and their ordering.
func (s *Suite) TestQueryEntries() {
	entries := []*aqea.Entry{
		makeEntry(0x05, "E"),
		makeEntry(0x01, "A"),
		{
			Address: aqea.NewAddress(0xA0, 0x02, 0x10, 0x01),
			Label:   "gehen",
			Domain:  "0xA0",
			Status:  "active",
			LangUI:  "deu",
			Meta:    aqea.Meta{"lemma": "gehen", "pos": "verb"},
		},
		{
			Address: aqea.NewAddress(0xA1, 0x01, 0x10, 0x01),
			Label:   "apple",
			Domain:  "0xA1",
			Status:  "active",
			LangUI:  "eng",
			Meta:    aqea.Meta{"lemma": "apple", "pos": "noun"},
		},
	}
	_, err := s.Store.UpsertEntries(entries)
	s.NoError(err)

	pattern, err := aqea.ParsePattern("0xA0:01:*:*")
	s.Require().NoError(err)
	matched, err := s.Store.QueryEntries(pattern)
	s.NoError(err)
	s.Require().Len(matched, 2)
	s.Equal("WortA", matched[0].Label)
	s.Equal("WortE", matched[1].Label)

	all, err := s.Store.QueryEntries(aqea.MatchAll)
	s.NoError(err)
	s.Len(all, 4)
}
