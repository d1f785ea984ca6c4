// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/aqea"
)

// fakeWiki serves just enough of the MediaWiki Action API for the
// extractor: an allpages listing and per-title revision content.
type fakeWiki struct {
	pages    map[string]string
	order    []string
	requests int32
	fail429  int32
	lastApto string
}

func (f *fakeWiki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&f.requests, 1)
	if atomic.AddInt32(&f.fail429, -1) >= 0 {
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	q := r.URL.Query()
	w.Header().Set("Content-Type", "application/json")
	switch {
	case q.Get("list") == "allpages":
		f.lastApto = q.Get("apto")
		var pages []map[string]interface{}
		for i, title := range f.order {
			pages = append(pages, map[string]interface{}{
				"pageid": i + 1,
				"title":  title,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"query": map[string]interface{}{"allpages": pages},
		})
	case q.Get("titles") != "":
		title := q.Get("titles")
		content, found := f.pages[title]
		page := map[string]interface{}{"pageid": 1, "title": title}
		if found {
			page["revisions"] = []map[string]interface{}{
				{"slots": map[string]interface{}{
					"main": map[string]interface{}{"*": content},
				}},
			}
		} else {
			page["pageid"] = 0
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"query": map[string]interface{}{
				"pages": map[string]interface{}{"1": page},
			},
		})
	default:
		json.NewEncoder(w).Encode(map[string]interface{}{"query": map[string]interface{}{}})
	}
}

func newFakeWiki(t *testing.T) (*fakeWiki, Config) {
	wiki := &fakeWiki{
		pages: map[string]string{
			"Apfel": apfelWikitext,
			"Birne": "{{Wortart|Substantiv|Deutsch}}\n{{Bedeutungen}}\n:[1] eine [[Frucht]]",
		},
		order: []string{"Apfel", "Birne", "Wiktionary:Index"},
	}
	server := httptest.NewServer(wiki)
	t.Cleanup(server.Close)
	return wiki, Config{
		Language:     "deu",
		BaseURL:      server.URL,
		RequestDelay: time.Millisecond,
		BackoffBase:  time.Millisecond,
	}
}

func TestWiktionaryExtractRange(t *testing.T) {
	_, config := newFakeWiki(t)
	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()

	var words []string
	err = w.ExtractRange(context.Background(), "A", "B", func(rec aqea.Record) error {
		words = append(words, rec.Word)
		assert.Equal(t, "deu", rec.Language)
		assert.Equal(t, "noun", rec.POS)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Apfel", "Birne"}, words)
}

func TestWiktionaryRangeUpperBound(t *testing.T) {
	wiki, config := newFakeWiki(t)
	definition := "{{Wortart|Substantiv|Deutsch}}\n{{Bedeutungen}}\n:[1] ein [[Wort]]"
	wiki.pages = map[string]string{
		"Ende":  definition,
		"Ezé":   definition,
		"Farbe": definition,
	}
	wiki.order = []string{"Ende", "Ezé", "Farbe"}

	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()

	// Titles sorting above the end prefix still belong to the range;
	// the first title past the prefix does not.
	var words []string
	err = w.ExtractRange(context.Background(), "E", "E", func(rec aqea.Record) error {
		words = append(words, rec.Word)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ende", "Ezé"}, words)

	// The listing bound is the prefix successor.
	assert.Equal(t, "F", wiki.lastApto)
}

func TestWiktionaryRetriesThrottling(t *testing.T) {
	wiki, config := newFakeWiki(t)
	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()

	atomic.StoreInt32(&wiki.fail429, 2)
	count := 0
	err = w.ExtractRange(context.Background(), "A", "B", func(aqea.Record) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestWiktionaryCancellation(t *testing.T) {
	_, config := newFakeWiki(t)
	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	err = w.ExtractRange(ctx, "A", "B", func(aqea.Record) error {
		cancel()
		return nil
	})
	assert.Equal(t, context.Canceled, err)
}

func TestWiktionaryMaxPages(t *testing.T) {
	_, config := newFakeWiki(t)
	config.MaxPages = 1
	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()

	count := 0
	err = w.ExtractRange(context.Background(), "A", "B", func(aqea.Record) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWiktionaryTestConnection(t *testing.T) {
	_, config := newFakeWiki(t)
	w, err := NewWiktionary(config)
	require.NoError(t, err)
	defer w.Close()
	assert.NoError(t, w.TestConnection(context.Background()))
}

func TestWiktionaryUnknownLanguage(t *testing.T) {
	_, err := NewWiktionary(Config{Language: "xxx"})
	assert.Equal(t, aqea.ErrUnsupportedLanguage{Code: "xxx"}, err)
}
