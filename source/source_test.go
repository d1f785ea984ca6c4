// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/aqea"
)

func TestFactory(t *testing.T) {
	ext, err := New("static", Config{})
	require.NoError(t, err)
	assert.IsType(t, &Static{}, ext)

	ext, err = New("wiktionary", Config{Language: "deu"})
	require.NoError(t, err)
	assert.IsType(t, &Wiktionary{}, ext)

	_, err = New("panlex", Config{})
	assert.Equal(t, ErrUnknownSource{Name: "panlex"}, err)
}

func TestStaticFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- word: Apfel
  language: deu
  pos: noun
  definitions:
    - rundliche Frucht des Apfelbaums
  flexion:
    genus: m
  frequency_rank: "7"
- word: Birne
  language: deu
  pos: noun
`), 0600))

	ext, err := New("static", Config{RecordsFile: path})
	require.NoError(t, err)
	defer ext.Close()

	var records []aqea.Record
	err = ext.ExtractRange(context.Background(), "A", "Z", func(rec aqea.Record) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Apfel", records[0].Word)
	assert.Equal(t, []string{"rundliche Frucht des Apfelbaums"}, records[0].Definitions)
	assert.Equal(t, map[string]string{"genus": "m"}, records[0].Flexion)
	// Quoted numbers still land in the integer field.
	assert.Equal(t, 7, records[0].FrequencyRank)
	assert.Equal(t, "Birne", records[1].Word)
}

func TestStaticFromFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.yaml")
	require.NoError(t, os.WriteFile(path, []byte("word: not-a-list"), 0600))
	_, err := NewStaticFromFile(path)
	assert.Error(t, err)
}

func TestStaticRange(t *testing.T) {
	ext := NewStatic([]aqea.Record{
		{Word: "Zebra", Language: "deu"},
		{Word: "Apfel", Language: "deu"},
		{Word: "Ende", Language: "deu"},
		{Word: "Maus", Language: "deu"},
	})
	defer ext.Close()

	var words []string
	err := ext.ExtractRange(context.Background(), "A", "E", func(rec aqea.Record) error {
		words = append(words, rec.Word)
		return nil
	})
	require.NoError(t, err)
	// "Ende" is included: the end prefix is inclusive.
	assert.Equal(t, []string{"Apfel", "Ende"}, words)
}

func TestStaticOpenEnd(t *testing.T) {
	ext := NewStatic([]aqea.Record{{Word: "Apfel"}, {Word: "Zebra"}})
	var words []string
	err := ext.ExtractRange(context.Background(), "M", "", func(rec aqea.Record) error {
		words = append(words, rec.Word)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Zebra"}, words)
}

func TestStaticEmitError(t *testing.T) {
	ext := NewStatic([]aqea.Record{{Word: "Apfel"}, {Word: "Birne"}})
	calls := 0
	err := ext.ExtractRange(context.Background(), "A", "Z", func(aqea.Record) error {
		calls++
		return assert.AnError
	})
	assert.Equal(t, assert.AnError, err)
	assert.Equal(t, 1, calls)
}

func TestStaticClosed(t *testing.T) {
	ext := NewStatic(nil)
	require.NoError(t, ext.Close())
	err := ext.ExtractRange(context.Background(), "A", "Z", func(aqea.Record) error { return nil })
	assert.Error(t, err)
}
