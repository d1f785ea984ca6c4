// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"errors"
	"fmt"
)

// ErrEmptyLemma is returned from Convert when a record has no usable
// lemma.  It is a soft, per-record error: the worker counts it and
// moves on.
var ErrEmptyLemma = errors.New("record has an empty lemma")

// ErrControlCharacters is returned from Convert when the lemma
// contains control characters.
var ErrControlCharacters = errors.New("lemma contains control characters")

// ErrUnsupportedLanguage is returned when a language code has no
// assigned AA byte.  It is fatal at converter construction time.
type ErrUnsupportedLanguage struct {
	Code string
}

func (err ErrUnsupportedLanguage) Error() string {
	return fmt.Sprintf("language %q is not assigned an AQEA domain", err.Code)
}

// ErrAddressSpaceExhausted is returned by allocators when no element
// ID remains free in [0x01, 0xFE] for a tuple.  Callers treat this as
// a hard error for the record; the converter does not retry with a
// different EE band.
type ErrAddressSpaceExhausted struct {
	AA, QQ, EE byte
}

func (err ErrAddressSpaceExhausted) Error() string {
	return fmt.Sprintf("no free element IDs in 0x%02X:%02X:%02X",
		err.AA, err.QQ, err.EE)
}
