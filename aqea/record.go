// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package aqea

import (
	"github.com/mitchellh/mapstructure"
)

// Record is the normalized data contract a source extractor must
// yield for each lemma.  Only Word and Language are required; the
// converter defensively defaults everything else.
type Record struct {
	Word          string              `mapstructure:"word"`
	Language      string              `mapstructure:"language"`
	POS           string              `mapstructure:"pos"`
	Definitions   []string            `mapstructure:"definitions"`
	Examples      []string            `mapstructure:"examples"`
	Synonyms      []string            `mapstructure:"synonyms"`
	Antonyms      []string            `mapstructure:"antonyms"`
	Translations  []string            `mapstructure:"translations"`
	IPA           string              `mapstructure:"ipa"`
	Audio         []string            `mapstructure:"audio"`
	Hyphenation   string              `mapstructure:"hyphenation"`
	Flexion       map[string]string   `mapstructure:"flexion"`
	Forms         []string            `mapstructure:"forms"`
	Labels        []string            `mapstructure:"labels"`
	FrequencyRank int                 `mapstructure:"frequency_rank"`
}

// RecordFromMap decodes a loosely-typed map, as produced by upstream
// parsers, into a Record.  Unknown keys are ignored; weakly-typed
// input (numbers as strings and the like) is tolerated.
func RecordFromMap(data map[string]interface{}) (Record, error) {
	var rec Record
	config := mapstructure.DecoderConfig{
		Result:           &rec,
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(&config)
	if err != nil {
		return rec, err
	}
	err = decoder.Decode(data)
	return rec, err
}
