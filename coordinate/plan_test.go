// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func germanPlan() *LanguagePlan {
	return &LanguagePlan{
		Language:         "deu",
		Source:           "wiktionary",
		EstimatedEntries: 800000,
		AlphabetRanges: []AlphabetRange{
			{Start: "A", End: "E", Weight: 0.25},
			{Start: "F", End: "K", Weight: 0.25},
			{Start: "L", End: "R", Weight: 0.25},
			{Start: "S", End: "Z", Weight: 0.25},
		},
	}
}

func TestBuildWorkUnits(t *testing.T) {
	units, err := germanPlan().BuildWorkUnits()
	require.NoError(t, err)
	require.Len(t, units, 4)

	assert.Equal(t, "wiktionary_deu_00", units[0].WorkID)
	assert.Equal(t, "wiktionary_deu_03", units[3].WorkID)
	for _, u := range units {
		assert.Equal(t, "deu", u.Language)
		assert.Equal(t, "wiktionary", u.Source)
		assert.Equal(t, UnitPending, u.Status)
		assert.Equal(t, DefaultMaxRetries, u.MaxRetries)
		assert.Equal(t, 200000, u.EstimatedEntries)
	}
	assert.Equal(t, "A", units[0].RangeStart)
	assert.Equal(t, "E", units[0].RangeEnd)

	// Ids are stable across runs.
	again, err := germanPlan().BuildWorkUnits()
	require.NoError(t, err)
	for i := range units {
		assert.Equal(t, units[i].WorkID, again[i].WorkID)
	}
}

func TestBuildWorkUnitsUnevenWeights(t *testing.T) {
	plan := germanPlan()
	plan.AlphabetRanges = []AlphabetRange{
		{Start: "A", End: "M", Weight: 3},
		{Start: "N", End: "Z", Weight: 1},
	}
	units, err := plan.BuildWorkUnits()
	require.NoError(t, err)
	assert.Equal(t, 600000, units[0].EstimatedEntries)
	assert.Equal(t, 200000, units[1].EstimatedEntries)
}

func TestBuildWorkUnitsZeroEstimate(t *testing.T) {
	plan := germanPlan()
	plan.EstimatedEntries = 0
	units, err := plan.BuildWorkUnits()
	require.NoError(t, err)
	for _, u := range units {
		assert.Equal(t, 0, u.EstimatedEntries)
	}
}

func TestPlanValidate(t *testing.T) {
	plan := germanPlan()
	require.NoError(t, plan.Validate())

	plan = germanPlan()
	plan.Language = "xxx"
	assert.Error(t, plan.Validate())

	plan = germanPlan()
	plan.Source = ""
	assert.Error(t, plan.Validate())

	plan = germanPlan()
	plan.AlphabetRanges = nil
	assert.Error(t, plan.Validate())

	plan = germanPlan()
	plan.AlphabetRanges[1].Start = "B"
	assert.Error(t, plan.Validate(), "overlapping ranges")

	plan = germanPlan()
	plan.AlphabetRanges[0].End = ""
	assert.Error(t, plan.Validate())

	plan = germanPlan()
	plan.AlphabetRanges[0].Start = "Z"
	assert.Error(t, plan.Validate(), "start after end")
}
