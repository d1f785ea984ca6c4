// Copyright 2026 AQEA Project Authors.
// This software is released under an MIT/X11 open source license.

package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	var b Backend
	require.NoError(t, b.Set("postgres://user@host/db"))
	assert.Equal(t, "postgres", b.Implementation)
	assert.Equal(t, "//user@host/db", b.Address)

	require.NoError(t, b.Set("memory"))
	assert.Equal(t, "memory", b.Implementation)
	assert.Empty(t, b.Address)

	require.NoError(t, b.Set("sqlite:/var/lib/aqea/aqea.db"))
	assert.Equal(t, "sqlite", b.Implementation)
	assert.Equal(t, "/var/lib/aqea/aqea.db", b.Address)

	assert.Error(t, b.Set("cassandra:whatever"))
}

func TestString(t *testing.T) {
	b := Backend{Implementation: "memory"}
	assert.Equal(t, "memory", b.String())
	b = Backend{Implementation: "sqlite", Address: "aqea.db"}
	assert.Equal(t, "sqlite:aqea.db", b.String())
}

func TestMemoryStore(t *testing.T) {
	b := Backend{Implementation: "memory"}
	store, err := b.Store()
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping())
}

func TestUnknownStore(t *testing.T) {
	b := Backend{Implementation: "cassandra"}
	_, err := b.Store()
	assert.Error(t, err)
}
