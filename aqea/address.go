// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

// Package aqea defines the AQEA address model and the converter that
// turns raw lexical records into addressed entries.
//
// An AQEA address is four bytes, written "0xAA:QQ:EE:A2".  AA is the
// language domain, QQ the universal part-of-speech category, EE a
// semantic/frequency cluster, and A2 an element ID unique within its
// (AA, QQ, EE) tuple.
package aqea

import (
	"fmt"
	"strings"
)

// Address is a packed 4-byte AQEA address.
type Address [4]byte

// Reserved byte values that never appear in the EE or A2 positions of
// addresses produced by this system.
const (
	ReservedZero = 0x00
	ReservedFull = 0xFF
)

// NewAddress assembles an address from its four component bytes.
func NewAddress(aa, qq, ee, a2 byte) Address {
	return Address{aa, qq, ee, a2}
}

// AA returns the language domain byte.
func (a Address) AA() byte { return a[0] }

// QQ returns the part-of-speech byte.
func (a Address) QQ() byte { return a[1] }

// EE returns the semantic cluster byte.
func (a Address) EE() byte { return a[2] }

// A2 returns the element ID byte.
func (a Address) A2() byte { return a[3] }

// String formats an address in the canonical "0xAA:QQ:EE:A2" form,
// uppercase hex with no spaces.
func (a Address) String() string {
	return fmt.Sprintf("0x%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3])
}

// Domain returns the top byte formatted as a "0xAA" string.  The
// entry store keeps this redundantly with the address for index
// locality.
func (a Address) Domain() string {
	return fmt.Sprintf("0x%02X", a[0])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler, so addresses
// serialize to JSON as their canonical string form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	addr, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// ErrBadAddress is returned when an address string cannot be parsed.
type ErrBadAddress struct {
	Text string
}

func (err ErrBadAddress) Error() string {
	return fmt.Sprintf("invalid AQEA address %q", err.Text)
}

// ParseAddress parses the canonical "0xAA:QQ:EE:A2" form.  Lowercase
// hex digits are accepted on read.  Addresses in the legacy language
// range 0x20-0x2F are accepted here for historical data but are never
// produced by the converter.
func ParseAddress(s string) (Address, error) {
	var a Address
	parts := strings.Split(s, ":")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "0x") {
		return a, ErrBadAddress{Text: s}
	}
	parts[0] = parts[0][2:]
	for i, part := range parts {
		var b byte
		if _, err := fmt.Sscanf(strings.ToUpper(part), "%02X", &b); err != nil || len(part) != 2 {
			return a, ErrBadAddress{Text: s}
		}
		a[i] = b
	}
	return a, nil
}

// Pattern selects addresses by fixing any prefix of the four bytes.
// A negative component is a wildcard.  The zero Pattern matches
// nothing; use ParsePattern or MatchAll.
type Pattern [4]int16

// MatchAll is the pattern with all four bytes wild.
var MatchAll = Pattern{-1, -1, -1, -1}

// ParsePattern parses a pattern such as "0xA0:01:*:*".  Each
// component is either a two-digit hex byte or "*".
func ParsePattern(s string) (Pattern, error) {
	p := MatchAll
	parts := strings.Split(s, ":")
	if len(parts) != 4 || !strings.HasPrefix(parts[0], "0x") {
		return p, ErrBadAddress{Text: s}
	}
	parts[0] = parts[0][2:]
	for i, part := range parts {
		if part == "*" {
			p[i] = -1
			continue
		}
		var b byte
		if _, err := fmt.Sscanf(strings.ToUpper(part), "%02X", &b); err != nil || len(part) != 2 {
			return p, ErrBadAddress{Text: s}
		}
		p[i] = int16(b)
	}
	return p, nil
}

// Matches reports whether an address satisfies the pattern.
func (p Pattern) Matches(a Address) bool {
	for i, want := range p {
		if want >= 0 && byte(want) != a[i] {
			return false
		}
	}
	return true
}

// String formats a pattern in the same form ParsePattern reads.
func (p Pattern) String() string {
	parts := make([]string, 4)
	for i, b := range p {
		if b < 0 {
			parts[i] = "*"
		} else {
			parts[i] = fmt.Sprintf("%02X", byte(b))
		}
	}
	return "0x" + strings.Join(parts, ":")
}
