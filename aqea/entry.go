// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"fmt"
	"time"
)

// MaxDescriptionBytes caps the generated description length.
const MaxDescriptionBytes = 2048

// Meta is the string-keyed metadata map attached to every entry.  The
// recognized keys and their types are pinned; ValidateMeta rejects
// values of the wrong type on write.  Unrecognized keys are allowed
// and pass through untyped.
type Meta map[string]interface{}

// Relation links an entry to another address.
type Relation struct {
	Kind   string  `json:"kind"`
	Target Address `json:"target"`
}

// Entry is one addressed lexical entry as held by the entry store.
type Entry struct {
	Address     Address    `json:"address"`
	Label       string     `json:"label"`
	Description string     `json:"description"`
	Domain      string     `json:"domain"`
	Status      string     `json:"status"`
	LangUI      string     `json:"lang_ui"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Meta        Meta       `json:"meta"`
	Relations   []Relation `json:"relations,omitempty"`
}

// metaStringKeys are recognized keys whose values must be strings.
var metaStringKeys = []string{"lemma", "pos", "ipa", "source", "worker_id", "created_at", "language", "language_name", "hyphenation"}

// metaListKeys are recognized keys whose values must be lists.
var metaListKeys = []string{"definitions", "examples", "synonyms", "antonyms", "translations", "audio", "forms", "labels", "flexion"}

// metaIntKeys are recognized keys whose values must be integers.
var metaIntKeys = []string{"frequency_rank", "frequency", "richness_score"}

// ValidateMeta checks the recognized keys against their pinned types.
// JSON round-trips turn integers into float64, so whole-number floats
// are accepted for the integer keys.
func ValidateMeta(meta Meta) error {
	for _, key := range metaStringKeys {
		value, present := meta[key]
		if !present {
			continue
		}
		if _, ok := value.(string); !ok {
			return fmt.Errorf("meta key %q must be a string, got %T", key, value)
		}
	}
	for _, key := range metaListKeys {
		value, present := meta[key]
		if !present {
			continue
		}
		switch value.(type) {
		case []interface{}, []string:
		default:
			return fmt.Errorf("meta key %q must be a list, got %T", key, value)
		}
	}
	for _, key := range metaIntKeys {
		value, present := meta[key]
		if !present {
			continue
		}
		switch n := value.(type) {
		case int, int64:
		case float64:
			if n != float64(int64(n)) {
				return fmt.Errorf("meta key %q must be an integer, got %v", key, n)
			}
		default:
			return fmt.Errorf("meta key %q must be an integer, got %T", key, value)
		}
	}
	return nil
}

// MergeMeta combines stored and incoming metadata for an upsert:
// incoming keys replace stored keys at the top level, with no deep
// merge.  Neither input map is modified.
func MergeMeta(stored, incoming Meta) Meta {
	merged := make(Meta, len(stored)+len(incoming))
	for key, value := range stored {
		merged[key] = value
	}
	for key, value := range incoming {
		merged[key] = value
	}
	return merged
}

// Validate checks an entry before it is written to a store.
func (e *Entry) Validate() error {
	if e.Label == "" {
		return ErrEmptyLemma
	}
	for _, r := range e.Label {
		if r < 0x20 || r == 0x7F {
			return ErrControlCharacters
		}
	}
	aa := e.Address.AA()
	if !IsLanguageDomain(aa) && !IsLegacyDomain(aa) {
		return fmt.Errorf("address %v has no language domain", e.Address)
	}
	if ee := e.Address.EE(); ee == ReservedZero || ee == ReservedFull {
		return fmt.Errorf("address %v uses a reserved EE byte", e.Address)
	}
	if a2 := e.Address.A2(); a2 == ReservedZero || a2 == ReservedFull {
		return fmt.Errorf("address %v uses a reserved A2 byte", e.Address)
	}
	return ValidateMeta(e.Meta)
}
