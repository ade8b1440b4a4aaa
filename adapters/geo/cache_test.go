package geo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodiff/domain/diffexpr"
	"geodiff/domain/run"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_StoreAndLookup(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	path := filepath.Join(c.Dir(), "GDS9001.soft")
	require.NoError(t, os.WriteFile(path, []byte("^DATASET = GDS9001\n"), 0o644))

	_, ok := c.Lookup(ctx, "GDS9001")
	assert.False(t, ok, "empty index must miss")

	require.NoError(t, c.Store(ctx, "GDS9001", path))

	got, ok := c.Lookup(ctx, "GDS9001")
	require.True(t, ok)
	assert.Equal(t, path, got)
}

func TestCache_CorruptedFileIsAMiss(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	path := filepath.Join(c.Dir(), "GDS9001.soft")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	require.NoError(t, c.Store(ctx, "GDS9001", path))

	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))
	_, ok := c.Lookup(ctx, "GDS9001")
	assert.False(t, ok, "checksum mismatch must miss")
}

func TestCache_DeletedFileIsAMiss(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	path := filepath.Join(c.Dir(), "GDS9001.soft")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
	require.NoError(t, c.Store(ctx, "GDS9001", path))
	require.NoError(t, os.Remove(path))

	_, ok := c.Lookup(ctx, "GDS9001")
	assert.False(t, ok)
}

func TestCache_StoreReplacesEntry(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	path := filepath.Join(c.Dir(), "GDS9001.soft")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	require.NoError(t, c.Store(ctx, "GDS9001", path))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	require.NoError(t, c.Store(ctx, "GDS9001", path))

	got, ok := c.Lookup(ctx, "GDS9001")
	require.True(t, ok)
	assert.Equal(t, path, got)
}

func TestCache_RunLedger(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	m := run.New("GDS9001", 3, diffexpr.Cutoffs{P: 0.01, LogFC: 1.0})
	m.GenesTotal = 500
	m.GenesKept = 120
	m.Samples = 12
	m.Contrast = "Normal-Tumor"
	m.WeightIters = 4
	m.DFPrior = 3.2
	m.S2Prior = 0.18
	m.Up = 7
	m.Down = 5
	m.Unchanged = 108
	m.Finish()

	require.NoError(t, c.RecordRun(ctx, m))

	time.Sleep(2 * time.Millisecond)
	m2 := run.New("GDS9001", 3, diffexpr.Cutoffs{P: 0.05, LogFC: 1.0})
	m2.Contrast = "Normal-Tumor"
	m2.Finish()
	require.NoError(t, c.RecordRun(ctx, m2))

	runs, err := c.Runs(ctx, "GDS9001")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, m2.RunID, runs[0].RunID, "newest run first")
	assert.Equal(t, 120, runs[1].GenesKept)
	assert.InDelta(t, 0.18, runs[1].S2Prior, 1e-12)

	other, err := c.Runs(ctx, "GDS0000")
	require.NoError(t, err)
	assert.Empty(t, other)
}
