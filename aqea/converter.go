// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// Limits on the list-valued meta keys.
const (
	maxDefinitions = 10
	maxExamples    = 3
	maxSynonyms    = 5
	maxForms       = 5
)

// descriptionDefLimit truncates the first definition used in the
// generated description.
const descriptionDefLimit = 200

// Converter transforms extractor records for a single language into
// addressed entries.  A converter is safe for use by one goroutine;
// the allocator behind it carries all cross-producer state.
type Converter struct {
	language     string
	languageName string
	domain       byte
	sourceName   string
	workerID     string
	allocator    Allocator
	clock        clock.Clock
}

// NewConverter builds a converter for a language code (ISO 639-3, or
// 639-1 which is normalized).  Languages without an assigned domain
// byte fail here with ErrUnsupportedLanguage.
func NewConverter(language, sourceName, workerID string, allocator Allocator) (*Converter, error) {
	return NewConverterWithClock(language, sourceName, workerID, allocator, clock.New())
}

// NewConverterWithClock is NewConverter with an explicit time source,
// for tests that need stable created_at values.
func NewConverterWithClock(language, sourceName, workerID string, allocator Allocator, clk clock.Clock) (*Converter, error) {
	code := NormalizeLanguage(language)
	aa, err := LanguageDomain(code)
	if err != nil {
		return nil, err
	}
	c := &Converter{
		language:     code,
		languageName: LanguageName(aa),
		domain:       aa,
		sourceName:   sourceName,
		workerID:     workerID,
		allocator:    allocator,
		clock:        clk,
	}
	logrus.WithFields(logrus.Fields{
		"language": code,
		"domain":   fmt.Sprintf("0x%02X", aa),
	}).Debug("AQEA converter initialized")
	return c, nil
}

// Language returns the normalized ISO 639-3 code.
func (c *Converter) Language() string { return c.language }

// Domain returns the AA byte for the converter's language.
func (c *Converter) Domain() byte { return c.domain }

// Convert turns one record into one entry.  For a fixed (language,
// lemma, pos) with identical relevant metadata, the resulting address
// is deterministic: AA, QQ, and EE are pure functions of the input,
// and the allocator returns the previously allocated A2 on re-insert.
//
// Records with an empty lemma fail with ErrEmptyLemma; exhausted
// tuples fail with ErrAddressSpaceExhausted.  Both are soft errors
// from the worker's point of view.
func (c *Converter) Convert(rec Record) (*Entry, error) {
	lemma := strings.TrimSpace(rec.Word)
	if lemma == "" {
		return nil, ErrEmptyLemma
	}
	for _, r := range lemma {
		if r < 0x20 || r == 0x7F {
			return nil, ErrControlCharacters
		}
	}

	pos := strings.ToLower(strings.TrimSpace(rec.POS))
	if pos == "" {
		pos = "unknown"
	}
	qq := POSCategory(pos)

	definitions := clipStrings(rec.Definitions, maxDefinitions)
	d := SemanticDomain(lemma, pos, c.language, definitions)
	ee := SemanticCluster(d, rec.FrequencyRank)

	a2, err := c.allocator.Allocate(c.domain, qq, ee, lemma)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	entry := &Entry{
		Address:     NewAddress(c.domain, qq, ee, a2),
		Label:       lemma,
		Description: c.describe(lemma, pos, definitions, rec.IPA),
		Domain:      fmt.Sprintf("0x%02X", c.domain),
		Status:      "active",
		LangUI:      c.language,
		CreatedAt:   now,
		UpdatedAt:   now,
		Meta:        c.buildMeta(lemma, pos, definitions, rec, now),
	}
	return entry, nil
}

// describe generates the English description: language, POS, lemma,
// then the first definition trimmed to 200 characters, then the
// pronunciation when known.
func (c *Converter) describe(lemma, pos string, definitions []string, ipa string) string {
	desc := fmt.Sprintf("%s %s '%s'", c.languageName, pos, lemma)
	if len(definitions) > 0 {
		first := definitions[0]
		if len(first) > descriptionDefLimit {
			first = first[:descriptionDefLimit]
		}
		desc += ". " + first
	}
	if ipa != "" {
		desc += fmt.Sprintf(" Pronunciation: /%s/", ipa)
	}
	if len(desc) > MaxDescriptionBytes {
		desc = desc[:MaxDescriptionBytes]
	}
	return desc
}

func (c *Converter) buildMeta(lemma, pos string, definitions []string, rec Record, now time.Time) Meta {
	meta := Meta{
		"lemma":         lemma,
		"pos":           pos,
		"source":        c.sourceName,
		"worker_id":     c.workerID,
		"created_at":    now.Format(time.RFC3339),
		"language":      c.language,
		"language_name": c.languageName,
	}
	if len(definitions) > 0 {
		meta["definitions"] = definitions
	}
	if rec.IPA != "" {
		meta["ipa"] = rec.IPA
	}
	if len(rec.Audio) > 0 {
		meta["audio"] = rec.Audio
	}
	if rec.Hyphenation != "" {
		meta["hyphenation"] = rec.Hyphenation
	}
	if len(rec.Flexion) > 0 {
		flexion := make([]interface{}, 0, len(rec.Flexion))
		for form, value := range rec.Flexion {
			flexion = append(flexion, form+"="+value)
		}
		meta["flexion"] = flexion
	}
	if forms := clipStrings(rec.Forms, maxForms); len(forms) > 0 {
		meta["forms"] = forms
	}
	if examples := clipStrings(rec.Examples, maxExamples); len(examples) > 0 {
		meta["examples"] = examples
	}
	if synonyms := clipStrings(rec.Synonyms, maxSynonyms); len(synonyms) > 0 {
		meta["synonyms"] = synonyms
	}
	if len(rec.Antonyms) > 0 {
		meta["antonyms"] = rec.Antonyms
	}
	if len(rec.Translations) > 0 {
		meta["translations"] = rec.Translations
	}
	if len(rec.Labels) > 0 {
		meta["labels"] = rec.Labels
	}
	if rec.FrequencyRank > 0 {
		meta["frequency_rank"] = rec.FrequencyRank
	}
	meta["frequency"] = estimateFrequency(lemma, pos, definitions)
	meta["richness_score"] = richnessScore(rec)
	return meta
}

func clipStrings(values []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// estimateFrequency gives a rough frequency score from simple
// heuristics (word length, POS class, definition count).  It is only
// informational; the frequency_rank meta key carries real rank data
// when the source has it.
func estimateFrequency(lemma, pos string, definitions []string) int {
	frequency := 1000
	switch n := len([]rune(lemma)); {
	case n <= 3:
		frequency += 500
	case n <= 5:
		frequency += 200
	}
	switch pos {
	case "noun", "verb", "adjective":
		frequency += 300
	}
	frequency += len(definitions) * 50
	if frequency > 9999 {
		frequency = 9999
	}
	return frequency
}

// richnessScore scores how much linguistic metadata a record carries,
// from 0 to 100.
func richnessScore(rec Record) int {
	score := 0
	if rec.Word != "" {
		score += 5
	}
	if rec.POS != "" {
		score += 5
	}
	if len(rec.Definitions) > 0 {
		score += 10
	}
	if rec.IPA != "" {
		score += 15
	}
	if len(rec.Audio) > 0 {
		score += 10
	}
	if len(rec.Flexion) > 0 {
		score += 15
	}
	if rec.Hyphenation != "" {
		score += 5
	}
	if len(rec.Forms) > 0 {
		score += 5
	}
	if len(rec.Examples) > 0 {
		score += 15
	}
	if len(rec.Synonyms) > 0 {
		score += 10
	}
	if len(rec.Labels) > 0 {
		score += 5
	}
	if score > 100 {
		score = 100
	}
	return score
}
