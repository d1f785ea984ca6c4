// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package coordinate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextPrefix(t *testing.T) {
	assert.Equal(t, "B", NextPrefix("A"))
	assert.Equal(t, "Az", NextPrefix("Ay"))
	assert.Equal(t, "Ä", NextPrefix("Ã"))
	assert.True(t, NextPrefix("") > "\U0010FFFE")
}

func TestContainsLemma(t *testing.T) {
	u := &WorkUnit{RangeStart: "A", RangeEnd: "E"}
	assert.True(t, u.ContainsLemma("Apfel"))
	assert.True(t, u.ContainsLemma("Ende"))
	assert.True(t, u.ContainsLemma("E"))
	assert.False(t, u.ContainsLemma("F"))
	assert.False(t, u.ContainsLemma("Fisch"))
	assert.False(t, u.ContainsLemma("1"))
}

func TestUnitActive(t *testing.T) {
	u := &WorkUnit{Status: UnitPending}
	assert.False(t, u.Active())
	u.Status = UnitAssigned
	assert.True(t, u.Active())
	u.Status = UnitProcessing
	assert.True(t, u.Active())
	u.Status = UnitCompleted
	assert.False(t, u.Active())
}

func TestUnitStatusText(t *testing.T) {
	for status, name := range map[UnitStatus]string{
		AnyUnit:        "any",
		UnitPending:    "pending",
		UnitAssigned:   "assigned",
		UnitProcessing: "processing",
		UnitCompleted:  "completed",
		UnitFailed:     "failed",
	} {
		text, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
		var back UnitStatus
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, status, back)
	}

	_, err := UnitStatus(17).MarshalText()
	assert.Error(t, err)
	var status UnitStatus
	assert.Error(t, status.UnmarshalText([]byte("bogus")))
}

func TestWorkerStatusText(t *testing.T) {
	for status, name := range map[WorkerStatus]string{
		WorkerIdle:    "idle",
		WorkerWorking: "working",
		WorkerError:   "error",
		WorkerOffline: "offline",
	} {
		text, err := status.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))
		var back WorkerStatus
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, status, back)
	}
}

func TestStatusJSON(t *testing.T) {
	data, err := json.Marshal(UnitProcessing)
	require.NoError(t, err)
	assert.Equal(t, `"processing"`, string(data))
	var status UnitStatus
	require.NoError(t, json.Unmarshal([]byte(`"failed"`), &status))
	assert.Equal(t, UnitFailed, status)
}
