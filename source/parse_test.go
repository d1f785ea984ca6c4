// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apfelWikitext = `== Apfel ({{Sprache|Deutsch}}) ==
=== {{Wortart|Substantiv|Deutsch}}, {{m}} ===

{{Lautschrift}} [[ˈap͡fl̩]]

{{Bedeutungen}}
:[1] rundliche [[Frucht]] des [[Apfelbaum]]s
:[2] {{kurz für|Apfelbaum}} der Baum selbst
{{Herkunft}}
:von althochdeutsch apful
`

const waterWikitext = `==English==

===Noun===
{{en-noun}}
{{IPA|en|/ˈwɔːtə/}}
{{audio|en|en-us-water.ogg}}

# A clear liquid, H<sub>2</sub>O.
# A [[body]] of water, such as a [[lake]].
# mineral water {{sense|drink}}
`

func TestParseGerman(t *testing.T) {
	rec, usable := ParseWikitext("Apfel", apfelWikitext, "deu")
	require.True(t, usable)
	assert.Equal(t, "Apfel", rec.Word)
	assert.Equal(t, "deu", rec.Language)
	assert.Equal(t, "noun", rec.POS)
	assert.Equal(t, "ˈap͡fl̩", rec.IPA)
	require.Len(t, rec.Definitions, 2)
	assert.Equal(t, "[1] rundliche Frucht des Apfelbaums", rec.Definitions[0])
	assert.Equal(t, "[2] der Baum selbst", rec.Definitions[1])
}

func TestParseGermanUnknownPOS(t *testing.T) {
	rec, usable := ParseWikitext("mal", "{{Wortart|Partikel|Deutsch}}", "deu")
	require.True(t, usable)
	assert.Equal(t, "unknown", rec.POS)
}

func TestParseGermanEmpty(t *testing.T) {
	_, usable := ParseWikitext("x", "nothing here", "deu")
	assert.False(t, usable)
}

func TestParseGeneric(t *testing.T) {
	rec, usable := ParseWikitext("water", waterWikitext, "eng")
	require.True(t, usable)
	assert.Equal(t, "noun", rec.POS)
	assert.Equal(t, "/ˈwɔːtə/", rec.IPA)
	require.Equal(t, []string{"en-us-water.ogg"}, rec.Audio)
	require.Len(t, rec.Definitions, 3)
	assert.Equal(t, "A clear liquid, H2O.", rec.Definitions[0])
	assert.Equal(t, "A body of water, such as a lake.", rec.Definitions[1])
	assert.Equal(t, "mineral water", rec.Definitions[2])
}

func TestCleanDefinition(t *testing.T) {
	assert.Equal(t, "a fruit tree",
		CleanDefinition("a [[fruit]] {{context|botany}} <i>tree</i>"))
	assert.Equal(t, "the Baum itself",
		CleanDefinition("the  [[Apfelbaum|Baum]]   itself"))
}

func TestValidTitle(t *testing.T) {
	valid := []string{"Apfel", "water", "Über", "self-esteem", "d'accord", "über Nacht"}
	for _, title := range valid {
		assert.True(t, ValidTitle(title), title)
	}
	invalid := []string{
		"",
		"Wiktionary:Index",
		"Word (disambiguation)",
		"1234",
		"foo/bar",
		"template{{x}}",
		"averyveryverylongtitlethatexceedsthefiftycharacterlimit",
	}
	for _, title := range invalid {
		assert.False(t, ValidTitle(title), title)
	}
}
