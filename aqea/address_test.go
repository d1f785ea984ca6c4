// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressFormat(t *testing.T) {
	a := NewAddress(0xA0, 0x01, 0x8C, 0x2B)
	assert.Equal(t, "0xA0:01:8C:2B", a.String())
	assert.Equal(t, "0xA0", a.Domain())
	assert.Equal(t, byte(0xA0), a.AA())
	assert.Equal(t, byte(0x01), a.QQ())
	assert.Equal(t, byte(0x8C), a.EE())
	assert.Equal(t, byte(0x2B), a.A2())
}

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("0xA0:01:8C:2B")
	require.NoError(t, err)
	assert.Equal(t, NewAddress(0xA0, 0x01, 0x8C, 0x2B), a)

	// Lowercase is accepted on read.
	a, err = ParseAddress("0xa0:01:8c:2b")
	require.NoError(t, err)
	assert.Equal(t, "0xA0:01:8C:2B", a.String())

	// Legacy language range parses; producing it is another matter.
	a, err = ParseAddress("0x20:01:10:01")
	require.NoError(t, err)
	assert.True(t, IsLegacyDomain(a.AA()))

	for _, bad := range []string{"", "A0:01:8C:2B", "0xA0:01:8C", "0xA0:01:8C:2B:00", "0xG0:01:8C:2B", "0xA0:1:8C:2B"} {
		_, err := ParseAddress(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestAddressJSONRoundTrip(t *testing.T) {
	a := NewAddress(0xB1, 0x02, 0x41, 0xFE)
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"0xB1:02:41:FE"`, string(data))

	var back Address
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, a, back)
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("0xA0:01:*:*")
	require.NoError(t, err)
	assert.True(t, p.Matches(NewAddress(0xA0, 0x01, 0x10, 0x05)))
	assert.False(t, p.Matches(NewAddress(0xA0, 0x02, 0x10, 0x05)))
	assert.False(t, p.Matches(NewAddress(0xA1, 0x01, 0x10, 0x05)))
	assert.Equal(t, "0xA0:01:*:*", p.String())

	assert.True(t, MatchAll.Matches(NewAddress(0xD9, 0xFF, 0xFE, 0x01)))

	_, err = ParsePattern("0xA0:01:*")
	assert.Error(t, err)
}

func TestLanguageDomain(t *testing.T) {
	aa, err := LanguageDomain("deu")
	require.NoError(t, err)
	assert.Equal(t, byte(0xA0), aa)

	// ISO 639-1 aliases normalize.
	aa, err = LanguageDomain("de")
	require.NoError(t, err)
	assert.Equal(t, byte(0xA0), aa)

	aa, err = LanguageDomain("cmn")
	require.NoError(t, err)
	assert.Equal(t, byte(0xD0), aa)

	_, err = LanguageDomain("xxx")
	assert.IsType(t, ErrUnsupportedLanguage{}, err)

	for code, aa := range languageDomains {
		assert.True(t, IsLanguageDomain(aa), "code %s", code)
		assert.NotEmpty(t, LanguageName(aa), "code %s", code)
	}
}

func TestPOSCategory(t *testing.T) {
	assert.Equal(t, byte(0x01), POSCategory("noun"))
	assert.Equal(t, byte(0x02), POSCategory("verb"))
	assert.Equal(t, byte(0x0F), POSCategory("copula"))
	assert.Equal(t, byte(POSUnknown), POSCategory(""))
	assert.Equal(t, byte(POSUnknown), POSCategory("gerundive"))
	assert.Equal(t, "noun", POSName(0x01))
	assert.Equal(t, "unknown", POSName(0x42))
}
