// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"crypto/md5"
	"crypto/sha1"
)

// Frequency-rank thresholds for the EE cluster bands.
const (
	rankHigh   = 1000
	rankMedium = 10000
	rankLow    = 100000
)

// SemanticDomain derives the semantic domain integer d in [0, 255]
// for a record.  It is a pure function of (lemma, pos, language,
// definitions): the first byte of the SHA-1 digest of those fields
// joined with NUL separators.  Changing any relevant metadata changes
// d, so it must be fed the same normalized inputs on re-ingest to
// preserve address determinism.
func SemanticDomain(lemma, pos, language string, definitions []string) byte {
	h := sha1.New()
	h.Write([]byte(lemma))
	h.Write([]byte{0})
	h.Write([]byte(pos))
	h.Write([]byte{0})
	h.Write([]byte(language))
	for _, def := range definitions {
		h.Write([]byte{0})
		h.Write([]byte(def))
	}
	return h.Sum(nil)[0]
}

// SemanticCluster bands the domain integer by frequency rank to form
// the EE byte.  A rank of zero means the rank is unknown and is
// treated as rarer than 10^5.  The result is never 0x00 or 0xFF: the
// lowest band uses a 127-value modulus so it tops out at 0xFE.
func SemanticCluster(d byte, frequencyRank int) byte {
	switch {
	case frequencyRank > 0 && frequencyRank <= rankHigh:
		return 0x10 + d%16
	case frequencyRank > 0 && frequencyRank <= rankMedium:
		return 0x20 + d%32
	case frequencyRank > 0 && frequencyRank <= rankLow:
		return 0x40 + d%64
	default:
		return 0x80 + d%127
	}
}

// PreferredElementID suggests a deterministic probe start for A2
// allocation, in [0x01, 0xFE].  Allocators may begin their free-slot
// search here so that the same lemma key tends to land on the same
// element ID even across fresh allocator states.
func PreferredElementID(lemmaKey string) byte {
	sum := md5.Sum([]byte(lemmaKey))
	return sum[0]%0xFE + 1
}

// Allocator reserves element IDs (A2 bytes) within an (AA, QQ, EE)
// tuple.  Implementations must be linearizable per tuple: concurrent
// producers may never receive the same A2 for different lemma keys,
// and repeated calls with the same lemma key always return the
// originally allocated value.
type Allocator interface {
	// Allocate returns the element ID for lemmaKey within
	// (aa, qq, ee), allocating a fresh one in [0x01, 0xFE] on first
	// use.  When no free ID remains it returns
	// ErrAddressSpaceExhausted; it never remaps silently.
	Allocate(aa, qq, ee byte, lemmaKey string) (byte, error)
}
