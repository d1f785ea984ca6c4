// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqea/go-extractor/aqea"
	"github.com/aqea/go-extractor/coordinate"
)

func TestWorkUnitRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	unit := &coordinate.WorkUnit{
		WorkID:           "wiktionary_deu_00",
		Language:         "deu",
		Source:           "wiktionary",
		RangeStart:       "A",
		RangeEnd:         "E",
		EstimatedEntries: 200000,
		Status:           coordinate.UnitProcessing,
		AssignedWorker:   "w1",
		AssignedAt:       now,
		StartedAt:        now,
		EntriesProcessed: 42,
		CurrentRate:      3.5,
		MaxRetries:       3,
		Errors:           []coordinate.UnitError{{Kind: "parse", Detail: "x"}},
	}
	wire := FromWorkUnit(unit)
	assert.Equal(t, "processing", wire.Status)
	assert.Nil(t, wire.CompletedAt)

	back, err := wire.ToWorkUnit()
	require.NoError(t, err)
	assert.Equal(t, unit, back)
}

func TestEntryRoundTrip(t *testing.T) {
	entry := &aqea.Entry{
		Address: aqea.NewAddress(0xA0, 0x01, 0x10, 0x2B),
		Label:   "Apfel",
		Domain:  "0xA0",
		Status:  "active",
		Meta:    aqea.Meta{"lemma": "Apfel"},
		Relations: []aqea.Relation{
			{Kind: "synonym", Target: aqea.NewAddress(0xA0, 0x01, 0x10, 0x2C)},
		},
	}
	wire := FromEntry(entry)
	assert.Equal(t, "0xA0:01:10:2B", wire.Address)
	back, err := wire.ToEntry()
	require.NoError(t, err)
	assert.Equal(t, entry, back)

	wire.Address = "not an address"
	_, err = wire.ToEntry()
	assert.IsType(t, ErrBadRequest{}, err)
}

func TestDecodeMediaTypes(t *testing.T) {
	for _, contentType := range []string{
		"application/json",
		"text/json",
		JSONMediaType,
		V1JSONMediaType,
		V1JSONMediaType + "; charset=utf-8",
	} {
		var out RegistrationRequest
		err := Decode(contentType, strings.NewReader(`{"worker_id": "w1"}`), &out)
		require.NoError(t, err, "content type %q", contentType)
		assert.Equal(t, "w1", out.WorkerID)
	}

	var out RegistrationRequest
	err := Decode("application/xml", strings.NewReader("<x/>"), &out)
	assert.IsType(t, ErrUnsupportedMediaType{}, err)
}

func TestEncodeDecode(t *testing.T) {
	in := ProgressRequest{WorkerID: "w1", EntriesProcessed: 7, Rate: 1.5}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, in))
	var out ProgressRequest
	require.NoError(t, Decode(V1JSONMediaType, &buf, &out))
	assert.Equal(t, in, out)
}

func TestErrorResponseRoundTrip(t *testing.T) {
	for _, err := range []error{
		coordinate.ErrWrongWorker,
		coordinate.ErrUnitNotActive,
		coordinate.ErrProgressRegression,
		coordinate.ErrNoSuchWorkUnit{WorkID: "x"},
		coordinate.ErrWorkerBusy{WorkID: "x"},
		aqea.ErrEmptyLemma,
		aqea.ErrUnsupportedLanguage{Code: "tlh"},
	} {
		resp := ErrorResponse{}
		resp.FromError(err)
		assert.NotEqual(t, "error", resp.Error)
		assert.Equal(t, err, resp.ToError())
	}

	resp := ErrorResponse{}
	resp.FromError(assert.AnError)
	assert.Equal(t, "error", resp.Error)
	assert.Equal(t, assert.AnError.Error(), resp.ToError().Error())
}

func TestErrorStatuses(t *testing.T) {
	assert.Equal(t, 404, ErrNotFound{Err: assert.AnError}.HTTPStatus())
	assert.Equal(t, 400, ErrBadRequest{Err: assert.AnError}.HTTPStatus())
	assert.Equal(t, 409, ErrConflict{Err: assert.AnError}.HTTPStatus())
	assert.Equal(t, 503, ErrUnavailable{Err: assert.AnError}.HTTPStatus())
	assert.Equal(t, 415, ErrUnsupportedMediaType{Type: "x"}.HTTPStatus())
}
