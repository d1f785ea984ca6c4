// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import "strings"

// Natural-language domains live in the AA range 0xA0-0xDF, grouped by
// family block: 0xA0-0xAF Germanic, 0xB0-0xBF Romance, 0xC0-0xCF
// Slavic, 0xD0-0xDF Asian.  The legacy range 0x20-0x2F may still be
// seen in historical data and is accepted on read only.
const (
	LanguageDomainMin = 0xA0
	LanguageDomainMax = 0xDF

	LegacyDomainMin = 0x20
	LegacyDomainMax = 0x2F
)

// languageDomains is the static ISO 639-3 to AA-byte table.  Unlisted
// codes within the ranges are reserved and are an error until
// explicitly assigned.
var languageDomains = map[string]byte{
	// Germanic
	"deu": 0xA0, "eng": 0xA1, "nld": 0xA2, "swe": 0xA3, "dan": 0xA4,
	"nor": 0xA5, "isl": 0xA6, "afr": 0xA7, "yid": 0xA8, "fry": 0xA9,
	// Romance
	"fra": 0xB0, "spa": 0xB1, "ita": 0xB2, "por": 0xB3, "ron": 0xB4,
	"cat": 0xB5, "glg": 0xB6, "oci": 0xB7, "lat": 0xB8, "srd": 0xB9,
	// Slavic
	"rus": 0xC0, "pol": 0xC1, "ces": 0xC2, "slk": 0xC3, "ukr": 0xC4,
	"bel": 0xC5, "bul": 0xC6, "hrv": 0xC7, "srp": 0xC8, "slv": 0xC9,
	"mkd": 0xCA,
	// Asian
	"cmn": 0xD0, "yue": 0xD1, "jpn": 0xD2, "kor": 0xD3, "vie": 0xD4,
	"tha": 0xD5, "khm": 0xD6, "mya": 0xD7, "bod": 0xD8, "mon": 0xD9,
}

// languageNames maps AA bytes back to English language names, used
// when generating entry descriptions.
var languageNames = map[byte]string{
	0xA0: "German", 0xA1: "English", 0xA2: "Dutch", 0xA3: "Swedish",
	0xA4: "Danish", 0xA5: "Norwegian", 0xA6: "Icelandic",
	0xA7: "Afrikaans", 0xA8: "Yiddish", 0xA9: "West Frisian",
	0xB0: "French", 0xB1: "Spanish", 0xB2: "Italian", 0xB3: "Portuguese",
	0xB4: "Romanian", 0xB5: "Catalan", 0xB6: "Galician", 0xB7: "Occitan",
	0xB8: "Latin", 0xB9: "Sardinian",
	0xC0: "Russian", 0xC1: "Polish", 0xC2: "Czech", 0xC3: "Slovak",
	0xC4: "Ukrainian", 0xC5: "Belarusian", 0xC6: "Bulgarian",
	0xC7: "Croatian", 0xC8: "Serbian", 0xC9: "Slovenian",
	0xCA: "Macedonian",
	0xD0: "Mandarin Chinese", 0xD1: "Cantonese", 0xD2: "Japanese",
	0xD3: "Korean", 0xD4: "Vietnamese", 0xD5: "Thai", 0xD6: "Khmer",
	0xD7: "Burmese", 0xD8: "Tibetan", 0xD9: "Mongolian",
}

// iso6391To3 maps two-letter ISO 639-1 codes to the three-letter
// ISO 639-3 codes the domain table is keyed by.
var iso6391To3 = map[string]string{
	"de": "deu", "en": "eng", "nl": "nld", "sv": "swe", "da": "dan",
	"no": "nor", "is": "isl", "af": "afr", "yi": "yid", "fy": "fry",
	"fr": "fra", "es": "spa", "it": "ita", "pt": "por", "ro": "ron",
	"ca": "cat", "gl": "glg", "oc": "oci", "la": "lat",
	"ru": "rus", "pl": "pol", "cs": "ces", "sk": "slk", "uk": "ukr",
	"be": "bel", "bg": "bul", "hr": "hrv", "sr": "srp", "sl": "slv",
	"mk": "mkd",
	"zh": "cmn", "ja": "jpn", "ko": "kor", "vi": "vie", "th": "tha",
	"km": "khm", "my": "mya", "bo": "bod", "mn": "mon",
}

// NormalizeLanguage lowercases a language code and resolves ISO 639-1
// aliases to ISO 639-3.  Codes it does not recognize pass through
// unchanged; LanguageDomain makes the final support decision.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if len(code) == 2 {
		if iso3, ok := iso6391To3[code]; ok {
			return iso3
		}
	}
	return code
}

// LanguageDomain resolves a normalized ISO 639-3 code to its AA byte.
// Unknown or unassigned codes return ErrUnsupportedLanguage.
func LanguageDomain(code string) (byte, error) {
	aa, ok := languageDomains[NormalizeLanguage(code)]
	if !ok {
		return 0, ErrUnsupportedLanguage{Code: code}
	}
	return aa, nil
}

// LanguageName returns the English name for a language domain byte,
// or "" if the byte is unassigned.
func LanguageName(aa byte) string {
	return languageNames[aa]
}

// IsLanguageDomain reports whether aa is a valid domain byte for new
// writes.
func IsLanguageDomain(aa byte) bool {
	return aa >= LanguageDomainMin && aa <= LanguageDomainMax
}

// IsLegacyDomain reports whether aa falls in the historical 0x20-0x2F
// range that readers may accept.
func IsLegacyDomain(aa byte) bool {
	return aa >= LegacyDomainMin && aa <= LegacyDomainMax
}
