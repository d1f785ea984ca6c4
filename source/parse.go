// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"regexp"
	"strings"

	"github.com/aqea/go-extractor/aqea"
)

// Wiktionary layouts differ per language community.  The German
// project uses its own template vocabulary ({{Wortart|...}},
// {{Bedeutungen}}); most others follow the English layout with
// #-prefixed definition lines under ===POS=== headings.

var (
	wortartRE     = regexp.MustCompile(`\{\{Wortart\|([^|{}]+)`)
	lautschriftRE = regexp.MustCompile(`\{\{Lautschrift\}\}\s*\[\[([^\]]+)\]\]`)
	ipaRE         = regexp.MustCompile(`\{\{IPA\|[^}]*\|([^}|]+)`)
	audioRE       = regexp.MustCompile(`(?i)\{\{audio\|[^}]*\|([^}|]+)`)
	genericDefRE  = regexp.MustCompile(`(?m)^#\s*([^#\n]+)`)
	genericPOSRE  = regexp.MustCompile(`(?i)===(Noun|Verb|Adjective|Adverb)===`)

	wikiLinkRE = regexp.MustCompile(`\[\[(?:[^|\]]+\|)?([^\]]+)\]\]`)
	templateRE = regexp.MustCompile(`\{\{[^}]+\}\}`)
	htmlTagRE  = regexp.MustCompile(`<[^>]+>`)
	spacesRE   = regexp.MustCompile(`\s+`)

	badTitleRE  = regexp.MustCompile(`[/\[\]{}]`)
	digitsRE    = regexp.MustCompile(`^[0-9]+$`)
	wordTitleRE = regexp.MustCompile(`^[a-zA-ZÀ-ÿĀ-žА-яäöüÄÖÜß\s\-']+$`)
)

var germanPOS = map[string]string{
	"Substantiv":   "noun",
	"Verb":         "verb",
	"Adjektiv":     "adjective",
	"Adverb":       "adverb",
	"Pronomen":     "pronoun",
	"Präposition":  "preposition",
	"Konjunktion":  "conjunction",
	"Artikel":      "article",
	"Numerale":     "numeral",
	"Interjektion": "interjection",
}

// ValidTitle reports whether a page title looks like a dictionary
// lemma rather than a meta page, disambiguation, or junk.
func ValidTitle(title string) bool {
	if title == "" || len(title) > 50 {
		return false
	}
	if strings.Contains(title, ":") {
		return false
	}
	if strings.Contains(title, " (") {
		return false
	}
	if digitsRE.MatchString(title) {
		return false
	}
	if badTitleRE.MatchString(title) {
		return false
	}
	return wordTitleRE.MatchString(title)
}

// ParseWikitext turns one page's wikitext into a record.  Returns
// false when the page yields nothing usable.
func ParseWikitext(title, wikitext, language string) (aqea.Record, bool) {
	rec := aqea.Record{Word: title, Language: language}
	if language == "deu" {
		return parseGerman(rec, wikitext)
	}
	return parseGeneric(rec, wikitext)
}

func parseGerman(rec aqea.Record, wikitext string) (aqea.Record, bool) {
	if m := wortartRE.FindStringSubmatch(wikitext); m != nil {
		pos, known := germanPOS[strings.TrimSpace(m[1])]
		if !known {
			pos = "unknown"
		}
		rec.POS = pos
	}
	if m := lautschriftRE.FindStringSubmatch(wikitext); m != nil {
		rec.IPA = strings.TrimSpace(m[1])
	}

	// Definitions are the ":"-prefixed lines following the
	// {{Bedeutungen}} template, up to the next template block.
	inDefinitions := false
	for _, line := range strings.Split(wikitext, "\n") {
		if strings.HasPrefix(line, "{{Bedeutungen}}") {
			inDefinitions = true
			continue
		}
		if inDefinitions && strings.HasPrefix(line, "{{") && !strings.HasPrefix(line, "{{#") {
			inDefinitions = false
			continue
		}
		trimmed := strings.TrimSpace(line)
		if inDefinitions && strings.HasPrefix(trimmed, ":") {
			def := CleanDefinition(strings.TrimSpace(trimmed[1:]))
			if def != "" && len(rec.Definitions) < 5 {
				rec.Definitions = append(rec.Definitions, def)
			}
		}
	}
	return rec, len(rec.Definitions) > 0 || rec.POS != ""
}

func parseGeneric(rec aqea.Record, wikitext string) (aqea.Record, bool) {
	if m := ipaRE.FindStringSubmatch(wikitext); m != nil {
		rec.IPA = strings.TrimSpace(m[1])
	}
	if m := audioRE.FindStringSubmatch(wikitext); m != nil {
		rec.Audio = []string{strings.TrimSpace(m[1])}
	}
	for _, m := range genericDefRE.FindAllStringSubmatch(wikitext, 3) {
		def := CleanDefinition(m[1])
		if def != "" {
			rec.Definitions = append(rec.Definitions, def)
		}
	}
	if m := genericPOSRE.FindStringSubmatch(wikitext); m != nil {
		rec.POS = strings.ToLower(m[1])
	}
	return rec, len(rec.Definitions) > 0 || rec.IPA != ""
}

// CleanDefinition strips wiki markup, templates, and HTML tags from a
// definition line and collapses whitespace.
func CleanDefinition(def string) string {
	def = wikiLinkRE.ReplaceAllString(def, "$1")
	def = templateRE.ReplaceAllString(def, "")
	def = htmlTagRE.ReplaceAllString(def, "")
	return strings.TrimSpace(spacesRE.ReplaceAllString(def, " "))
}
