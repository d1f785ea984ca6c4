// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import "strings"

// POSUnknown is the QQ byte for unrecognized parts of speech.
const POSUnknown = 0xFF

// posCategories is the universal part-of-speech table (QQ byte).
// Values not listed here are reserved.
var posCategories = map[string]byte{
	"noun":         0x01,
	"verb":         0x02,
	"adjective":    0x03,
	"adverb":       0x04,
	"preposition":  0x05,
	"pronoun":      0x06,
	"determiner":   0x07,
	"conjunction":  0x08,
	"numeral":      0x09,
	"interjection": 0x0A,
	"particle":     0x0B,
	"proper_noun":  0x0C,
	"auxiliary":    0x0D,
	"classifier":   0x0E,
	"copula":       0x0F,
}

// posNames is the reverse table, for decoding addresses.
var posNames = func() map[byte]string {
	names := make(map[byte]string, len(posCategories))
	for name, qq := range posCategories {
		names[qq] = name
	}
	return names
}()

// POSCategory maps a part-of-speech identifier to its QQ byte.
// Unknown identifiers, including the empty string, map to POSUnknown.
func POSCategory(pos string) byte {
	if qq, ok := posCategories[strings.ToLower(strings.TrimSpace(pos))]; ok {
		return qq
	}
	return POSUnknown
}

// POSName returns the identifier for a QQ byte, or "unknown".
func POSName(qq byte) string {
	if name, ok := posNames[qq]; ok {
		return name
	}
	return "unknown"
}
