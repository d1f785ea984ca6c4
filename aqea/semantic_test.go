// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemanticDomainDeterministic(t *testing.T) {
	defs := []string{"a tart fruit"}
	d1 := SemanticDomain("Apfel", "noun", "deu", defs)
	d2 := SemanticDomain("Apfel", "noun", "deu", defs)
	assert.Equal(t, d1, d2)

	// Any relevant input changes the domain integer in general;
	// at minimum the function must depend on each field.
	assert.NotEqual(t,
		SemanticDomain("a", "noun", "deu", nil),
		SemanticDomain("a", "noun", "deu", []string{""}))
}

func TestSemanticClusterBands(t *testing.T) {
	for d := 0; d < 256; d++ {
		b := byte(d)
		assert.True(t, SemanticCluster(b, 500) >= 0x10 && SemanticCluster(b, 500) <= 0x1F)
		assert.True(t, SemanticCluster(b, 5000) >= 0x20 && SemanticCluster(b, 5000) <= 0x3F)
		assert.True(t, SemanticCluster(b, 50000) >= 0x40 && SemanticCluster(b, 50000) <= 0x7F)
		assert.True(t, SemanticCluster(b, 500000) >= 0x80 && SemanticCluster(b, 500000) <= 0xFE)
		// Unknown rank is treated as rarer than 10^5.
		assert.Equal(t, SemanticCluster(b, 500000), SemanticCluster(b, 0))
	}
}

// The EE byte must never be a reserved value for any input.
func TestSemanticClusterReservedDiscipline(t *testing.T) {
	for d := 0; d < 256; d++ {
		for _, rank := range []int{0, 1, 999, 1000, 9999, 10000, 99999, 100000, 1 << 20} {
			ee := SemanticCluster(byte(d), rank)
			assert.NotEqual(t, byte(ReservedZero), ee)
			assert.NotEqual(t, byte(ReservedFull), ee)
		}
	}
}

func TestPreferredElementID(t *testing.T) {
	seen := map[byte]bool{}
	for _, lemma := range []string{"Apfel", "Auto", "Brot", "Dach", "Ende", "zebra"} {
		id := PreferredElementID(lemma)
		assert.True(t, id >= 0x01 && id <= 0xFE)
		assert.Equal(t, id, PreferredElementID(lemma))
		seen[id] = true
	}
	// Not a strict requirement, but the seed should spread.
	assert.True(t, len(seen) > 1)
}
