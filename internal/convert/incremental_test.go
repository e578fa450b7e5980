// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/moc-converter/internal/catalog"
	"github.com/pdiddy/moc-converter/pkg/types"
)

func openCatalog(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.Open(types.CatalogConfig{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_RecordsInCatalog(t *testing.T) {
	inDir, outDir := setupDirs(t, "A.fits")
	dec := &fakeDecoder{maps: map[string]types.CoverageMap{
		"A.fits": {"0": {1, 2}, "1": {5}},
	}}
	cat := openCatalog(t)
	c := New(types.ConversionConfig{InputDir: inDir, OutputDir: outDir}, dec, WithCatalog(cat))

	result, err := c.Run(context.Background())
	require.NoError(t, err)

	entry, ok, err := cat.Lookup(context.Background(), "A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.RunID, entry.RunID)
	assert.Equal(t, []int{0, 1}, entry.Orders)
	assert.Equal(t, 1, entry.MaxOrder)
	assert.Equal(t, 3, entry.Cells)
	assert.InDelta(t, 2.0/12+1.0/48, entry.SkyFraction, 1e-12)
	assert.Len(t, entry.Digest, 16)
	assert.Equal(t, types.ConversionDone, entry.Status)
}

func TestRun_Incremental(t *testing.T) {
	inDir, outDir := setupDirs(t, "A.fits", "B.fits")
	dec := &fakeDecoder{maps: map[string]types.CoverageMap{
		"A.fits": {"0": {1}},
		"B.fits": {"0": {2}},
	}}
	cat := openCatalog(t)
	var log bytes.Buffer
	cfg := types.ConversionConfig{InputDir: inDir, OutputDir: outDir, Incremental: true}
	c := New(cfg, dec, WithCatalog(cat), WithProgress(&log))
	ctx := context.Background()

	first, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Converted)
	assert.Equal(t, 2, dec.calls)

	second, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Converted)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 2, dec.calls, "unchanged files must not be decoded again")
	assert.Contains(t, log.String(), "skipped: A (unchanged)")

	// Changing A's bytes and deleting B's document forces both through.
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "A.fits"), []byte("new contents"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(outDir, "B.json")))

	third, err := c.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Converted)
	assert.Equal(t, 0, third.Skipped)
	assert.Equal(t, 4, dec.calls)
}

func TestRun_IncrementalWithoutCatalogConvertsAll(t *testing.T) {
	inDir, outDir := setupDirs(t, "A.fits")
	dec := &fakeDecoder{maps: map[string]types.CoverageMap{"A.fits": {"0": {1}}}}
	c := New(types.ConversionConfig{InputDir: inDir, OutputDir: outDir, Incremental: true}, dec)

	for range 2 {
		result, err := c.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Converted)
	}
	assert.Equal(t, 2, dec.calls)
}

func TestRun_UnreadableInputWithCatalog(t *testing.T) {
	inDir, outDir := setupDirs(t)
	// A dangling symlink passes the directory scan but cannot be read.
	require.NoError(t, os.Symlink(filepath.Join(inDir, "gone"), filepath.Join(inDir, "broken.fits")))
	c := New(types.ConversionConfig{InputDir: inDir, OutputDir: outDir}, &fakeDecoder{}, WithCatalog(openCatalog(t)))

	result, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, 1, result.Failed)
}
