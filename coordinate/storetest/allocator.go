// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package storetest

import (
	"fmt"

	"github.com/aqea/go-extractor/aqea"
)

// TestAllocatorStability validates that re-allocating the same lemma
// key yields the same element id.
func (s *Suite) TestAllocatorStability() {
	a2, err := s.Store.Allocate(0xA0, 0x01, 0x10, "deu:wiktionary:Apfel")
	s.NoError(err)
	s.True(a2 >= 0x01 && a2 <= 0xFE)

	again, err := s.Store.Allocate(0xA0, 0x01, 0x10, "deu:wiktionary:Apfel")
	s.NoError(err)
	s.Equal(a2, again)
}

// TestAllocatorUniqueness validates that distinct lemma keys in one
// tuple never share an element id.
func (s *Suite) TestAllocatorUniqueness() {
	seen := map[byte]string{}
	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("deu:wiktionary:lemma-%03d", i)
		a2, err := s.Store.Allocate(0xA0, 0x01, 0x20, key)
		s.Require().NoError(err)
		s.True(a2 >= 0x01 && a2 <= 0xFE)
		if prior, dup := seen[a2]; dup {
			s.Fail("duplicate element id", "0x%02X for both %q and %q", a2, prior, key)
		}
		seen[a2] = key
	}

	// A different tuple is a fresh space; collisions across tuples
	// are fine.
	a2, err := s.Store.Allocate(0xA0, 0x02, 0x20, "deu:wiktionary:lemma-000")
	s.NoError(err)
	s.True(a2 >= 0x01 && a2 <= 0xFE)
}

// TestAllocatorPreferredCollision validates that two lemma keys with
// the same preferred probe start still receive distinct element ids,
// and that both assignments are stable afterwards.
func (s *Suite) TestAllocatorPreferredCollision() {
	// Both keys hash to the same probe start.
	first := "deu:wiktionary:word-1"
	second := "deu:wiktionary:word-116"
	s.Require().Equal(aqea.PreferredElementID(first), aqea.PreferredElementID(second))

	a2First, err := s.Store.Allocate(0xA0, 0x04, 0x30, first)
	s.Require().NoError(err)
	s.Equal(aqea.PreferredElementID(first), a2First)

	a2Second, err := s.Store.Allocate(0xA0, 0x04, 0x30, second)
	s.Require().NoError(err)
	s.NotEqual(a2First, a2Second)

	again, err := s.Store.Allocate(0xA0, 0x04, 0x30, second)
	s.NoError(err)
	s.Equal(a2Second, again)
}

// TestAllocatorExhaustion validates the 254-id budget per tuple.
func (s *Suite) TestAllocatorExhaustion() {
	for i := 0; i < 254; i++ {
		_, err := s.Store.Allocate(0xA0, 0x03, 0x40, fmt.Sprintf("key-%03d", i))
		s.Require().NoError(err)
	}
	_, err := s.Store.Allocate(0xA0, 0x03, 0x40, "key-overflow")
	s.Equal(aqea.ErrAddressSpaceExhausted{AA: 0xA0, QQ: 0x03, EE: 0x40}, err)

	// Existing keys still resolve after exhaustion.
	a2, err := s.Store.Allocate(0xA0, 0x03, 0x40, "key-000")
	s.NoError(err)
	s.True(a2 >= 0x01 && a2 <= 0xFE)
}
