// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
	"golang.org/x/time/rate"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

// Defaults for upstream politeness and retry behavior.
const (
	DefaultRequestDelay   = 200 * time.Millisecond
	DefaultMaxConcurrent  = 5
	DefaultRequestTimeout = 30 * time.Second
	DefaultPageLimit      = 50

	backoffBase     = 500 * time.Millisecond
	backoffCap      = 30 * time.Second
	backoffAttempts = 5
)

// wikiHosts maps ISO 639-3 codes to Wiktionary subdomains.
var wikiHosts = map[string]string{
	"deu": "de",
	"eng": "en",
	"fra": "fr",
	"spa": "es",
	"ita": "it",
	"nld": "nl",
	"por": "pt",
	"rus": "ru",
	"pol": "pl",
	"swe": "sv",
}

// Config holds extractor settings.  The zero value plus a Language is
// usable; everything else defaults.
type Config struct {
	// Language is the ISO 639-3 code of the edition to extract.
	Language string `yaml:"language"`

	// BaseURL overrides the MediaWiki API endpoint, mainly for
	// tests.  Empty derives https://XX.wiktionary.org/w/api.php
	// from the language.
	BaseURL string `yaml:"base_url"`

	// RequestDelay is the minimum time between upstream requests.
	RequestDelay time.Duration `yaml:"request_delay"`

	// MaxConcurrent caps in-flight upstream requests.
	MaxConcurrent int `yaml:"max_concurrent"`

	// RequestTimeout bounds a single upstream request.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// PageLimit is the allpages page size.
	PageLimit int `yaml:"page_limit"`

	// MaxPages caps how many titles one range extraction will
	// visit.  Zero means unbounded.
	MaxPages int `yaml:"max_pages"`

	// RecordsFile points the static source at a YAML file of
	// prepared records.  The wiktionary source ignores it.
	RecordsFile string `yaml:"records_file"`

	// BackoffBase overrides the retry backoff base, for tests.
	BackoffBase time.Duration `yaml:"-"`
}

// Wiktionary extracts entries through the MediaWiki Action API.
type Wiktionary struct {
	config  Config
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	slots   chan struct{}
	log     *logrus.Entry
}

// NewWiktionary creates an extractor for one Wiktionary edition.
func NewWiktionary(config Config) (*Wiktionary, error) {
	if config.RequestDelay <= 0 {
		config.RequestDelay = DefaultRequestDelay
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = DefaultMaxConcurrent
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.PageLimit <= 0 {
		config.PageLimit = DefaultPageLimit
	}
	if config.BackoffBase <= 0 {
		config.BackoffBase = backoffBase
	}
	apiURL := config.BaseURL
	if apiURL == "" {
		host, known := wikiHosts[config.Language]
		if !known {
			return nil, aqea.ErrUnsupportedLanguage{Code: config.Language}
		}
		apiURL = fmt.Sprintf("https://%s.wiktionary.org/w/api.php", host)
	}
	return &Wiktionary{
		config:  config,
		apiURL:  apiURL,
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: rate.NewLimiter(rate.Every(config.RequestDelay), 1),
		slots:   make(chan struct{}, config.MaxConcurrent),
		log:     logrus.WithField("source", "wiktionary"),
	}, nil
}

// apiPage is one page object in a MediaWiki API response.
type apiPage struct {
	PageID    int    `json:"pageid"`
	Title     string `json:"title"`
	Revisions []struct {
		Slots struct {
			Main struct {
				Content string `json:"*"`
			} `json:"main"`
		} `json:"slots"`
	} `json:"revisions"`
}

// apiResponse is the subset of the MediaWiki API response shape this
// extractor reads.
type apiResponse struct {
	Continue map[string]string `json:"continue"`
	Query    struct {
		AllPages []apiPage          `json:"allpages"`
		Pages    map[string]apiPage `json:"pages"`
	} `json:"query"`
}

// errUpstreamStatus marks a retriable upstream HTTP failure.
type errUpstreamStatus struct {
	Status int
}

func (err errUpstreamStatus) Error() string {
	return fmt.Sprintf("upstream returned HTTP %d", err.Status)
}

// get performs one rate-limited API query with backoff on 429 and
// 5xx responses.
func (w *Wiktionary) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	select {
	case w.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-w.slots }()

	backoff := w.config.BackoffBase
	var err error
	for attempt := 0; attempt < backoffAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
			if backoff > backoffCap {
				backoff = backoffCap
			}
		}
		if err = w.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		var resp *apiResponse
		resp, err = w.getOnce(ctx, params)
		if err == nil {
			return resp, nil
		}
		if status, upstream := err.(errUpstreamStatus); upstream {
			if status.Status != http.StatusTooManyRequests && status.Status < 500 {
				return nil, err
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.log.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"error":   err,
		}).Warn("upstream request failed")
	}
	return nil, err
}

func (w *Wiktionary) getOnce(ctx context.Context, params url.Values) (*apiResponse, error) {
	req, err := http.NewRequest("GET", w.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errUpstreamStatus{Status: resp.StatusCode}
	}
	var decoded apiResponse
	json := &codec.JsonHandle{}
	if err := codec.NewDecoder(resp.Body, json).Decode(&decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

// listPages walks the allpages index for the lemma range, following
// continuation tokens, and returns the valid titles.
func (w *Wiktionary) listPages(ctx context.Context, start, end string) ([]string, error) {
	var titles []string
	continueToken := ""
	for {
		params := url.Values{}
		params.Set("action", "query")
		params.Set("format", "json")
		params.Set("list", "allpages")
		params.Set("apfrom", start)
		if end != "" {
			// apto is inclusive, so walk to the prefix successor
			// and filter below; "Ende" and "Ezé" both belong to a
			// range ending at "E".
			params.Set("apto", coordinate.NextPrefix(end))
		}
		params.Set("aplimit", strconv.Itoa(w.config.PageLimit))
		params.Set("apnamespace", "0")
		if continueToken != "" {
			params.Set("apcontinue", continueToken)
		}

		resp, err := w.get(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, page := range resp.Query.AllPages {
			if lemmaInRange(page.Title, start, end) && ValidTitle(page.Title) {
				titles = append(titles, page.Title)
			}
			if w.config.MaxPages > 0 && len(titles) >= w.config.MaxPages {
				return titles, nil
			}
		}
		continueToken = resp.Continue["apcontinue"]
		if continueToken == "" {
			return titles, nil
		}
	}
}

// fetchWikitext fetches one page's current wikitext, or "" when the
// page is missing or empty.
func (w *Wiktionary) fetchWikitext(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("titles", title)
	params.Set("prop", "revisions")
	params.Set("rvprop", "content")
	params.Set("rvslots", "main")

	resp, err := w.get(ctx, params)
	if err != nil {
		return "", err
	}
	for _, page := range resp.Query.Pages {
		if page.PageID == 0 || len(page.Revisions) == 0 {
			continue
		}
		return page.Revisions[0].Slots.Main.Content, nil
	}
	return "", nil
}

// ExtractRange implements Extractor.  Unparseable or failing pages
// are logged and skipped; only transport exhaustion on the page
// listing and context cancellation abort the stream.
func (w *Wiktionary) ExtractRange(ctx context.Context, start, end string, emit func(aqea.Record) error) error {
	titles, err := w.listPages(ctx, start, end)
	if err != nil {
		return err
	}
	w.log.WithFields(logrus.Fields{
		"language": w.config.Language,
		"start":    start,
		"end":      end,
		"pages":    len(titles),
	}).Info("beginning range extraction")

	extracted := 0
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return err
		}
		wikitext, err := w.fetchWikitext(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.WithFields(logrus.Fields{
				"title": title,
				"error": err,
			}).Warn("skipping page after fetch failure")
			continue
		}
		if wikitext == "" {
			continue
		}
		rec, usable := ParseWikitext(title, wikitext, w.config.Language)
		if !usable {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
		extracted++
	}
	w.log.WithFields(logrus.Fields{
		"pages":     len(titles),
		"extracted": extracted,
	}).Info("range extraction complete")
	return nil
}

// TestConnection checks that the API endpoint answers a trivial
// siteinfo query.
func (w *Wiktionary) TestConnection(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("meta", "siteinfo")
	_, err := w.get(ctx, params)
	return err
}

// Close implements Extractor.
func (w *Wiktionary) Close() error {
	w.client.CloseIdleConnections()
	return nil
}
