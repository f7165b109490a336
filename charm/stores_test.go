// ABOUTME: Tests for the KV-backed mapping and state stores
// ABOUTME: Runs against an isolated BadgerDB test client

package charm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPair = "src@example.com->tgt@example.com"

func TestKVMappingStore(t *testing.T) {
	client, cleanup := NewTestClient(t)
	defer cleanup()

	mappings, _ := NewStores(client, testPair)

	// Missing mapping reads as empty, not an error
	tgt, err := mappings.Get("src-1")
	require.NoError(t, err)
	assert.Empty(t, tgt)

	require.NoError(t, mappings.Set("src-1", "tgt-1"))
	require.NoError(t, mappings.Set("src-2", "tgt-2"))

	tgt, err = mappings.Get("src-1")
	require.NoError(t, err)
	assert.Equal(t, "tgt-1", tgt)

	// Upsert replaces
	require.NoError(t, mappings.Set("src-1", "tgt-1b"))
	tgt, err = mappings.Get("src-1")
	require.NoError(t, err)
	assert.Equal(t, "tgt-1b", tgt)

	count, err := mappings.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, mappings.Delete("src-1"))
	count, err = mappings.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Deleting a missing mapping is a no-op
	require.NoError(t, mappings.Delete("src-gone"))

	require.NoError(t, mappings.Clear())
	count, err = mappings.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestKVMappingStorePairNamespacing(t *testing.T) {
	client, cleanup := NewTestClient(t)
	defer cleanup()

	mappingsA, _ := NewStores(client, "a->b")
	mappingsB, _ := NewStores(client, "a->c")

	require.NoError(t, mappingsA.Set("src-1", "tgt-in-b"))
	require.NoError(t, mappingsB.Set("src-1", "tgt-in-c"))

	tgt, err := mappingsA.Get("src-1")
	require.NoError(t, err)
	assert.Equal(t, "tgt-in-b", tgt)

	require.NoError(t, mappingsA.Clear())

	// Clearing one pair leaves the other intact
	tgt, err = mappingsB.Get("src-1")
	require.NoError(t, err)
	assert.Equal(t, "tgt-in-c", tgt)
}

func TestKVStateStore(t *testing.T) {
	client, cleanup := NewTestClient(t)
	defer cleanup()

	_, state := NewStores(client, testPair)

	// Fresh state is empty
	snap, err := state.Get()
	require.NoError(t, err)
	assert.Empty(t, snap.Token)
	assert.Zero(t, snap.ErrorCount)

	require.NoError(t, state.IncrementErrorCount())
	require.NoError(t, state.IncrementErrorCount())
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ErrorCount)

	// Committing a token resets the error streak and marks the pair idle
	require.NoError(t, state.SetToken("tok-1"))
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", snap.Token)
	assert.Zero(t, snap.ErrorCount)
	assert.Equal(t, "idle", snap.Status)
	require.NotNil(t, snap.LastSync)

	require.NoError(t, state.IncrementErrorCount())
	require.NoError(t, state.ClearToken())
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Empty(t, snap.Token)
	assert.Equal(t, 1, snap.ErrorCount, "clearing the token keeps the error count")

	require.NoError(t, state.ResetErrorCount())
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Zero(t, snap.ErrorCount)

	msg := "listing failed"
	require.NoError(t, state.SetStatus("error", &msg))
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Equal(t, "error", snap.Status)
	require.NotNil(t, snap.ErrorMessage)
	assert.Equal(t, "listing failed", *snap.ErrorMessage)

	require.NoError(t, state.Clear())
	snap, err = state.Get()
	require.NoError(t, err)
	assert.Empty(t, snap.Token)
	assert.Zero(t, snap.ErrorCount)
}
