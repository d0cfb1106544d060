package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdxtools/guiscale/internal/extract"
	"github.com/pdxtools/guiscale/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func stat(mean, median, stdDev, minV, maxV float64) model.ScalingStatistic {
	return model.ScalingStatistic{
		Mean:   ptr(mean),
		Median: ptr(median),
		StdDev: ptr(stdDev),
		Min:    ptr(minV),
		Max:    ptr(maxV),
	}
}

func TestSaveFileAndFactors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	values := extract.Result{
		"width":  {100, 200},
		"height": {50},
	}
	stats := map[string]map[string]model.ScalingStatistic{
		"2K": {
			"width":  stat(1.5, 1.5, 0, 1.5, 1.5),
			"height": stat(1.4, 1.4, 0, 1.4, 1.4),
		},
		"4K": {
			"width": stat(2.0, 2.0, 0, 2.0, 2.0),
		},
	}

	require.NoError(t, s.SaveFile(ctx, "interface/main.gui", values, stats))

	factors2k, err := s.Factors(ctx, "interface/main.gui", "2K")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"width": 1.5, "height": 1.4}, factors2k)

	factors4k, err := s.Factors(ctx, "interface/main.gui", "4K")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"width": 2.0}, factors4k)
}

func TestSaveFile_IdempotentOnPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	values := extract.Result{"width": {10}}
	stats := map[string]map[string]model.ScalingStatistic{
		"2K": {"width": stat(1.5, 1.5, 0, 1.5, 1.5)},
	}

	require.NoError(t, s.SaveFile(ctx, "a/b.gui", values, stats))

	// Re-storing the same path overwrites instead of duplicating.
	stats["2K"]["width"] = stat(1.8, 1.8, 0, 1.8, 1.8)
	require.NoError(t, s.SaveFile(ctx, "a/b.gui", values, stats))

	var files, props, factors int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM file`).Scan(&files))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM property`).Scan(&props))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM scaling_factor`).Scan(&factors))
	assert.Equal(t, 1, files)
	assert.Equal(t, 1, props)
	assert.Equal(t, 1, factors)

	got, err := s.Factors(ctx, "a/b.gui", "2K")
	require.NoError(t, err)
	assert.Equal(t, 1.8, got["width"])
}

func TestSaveFile_RawValuesReplaced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveFile(ctx, "a.gui", extract.Result{"x": {1, 2, 3}}, nil))
	require.NoError(t, s.SaveFile(ctx, "a.gui", extract.Result{"x": {4}}, nil))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM original_value`).Scan(&count))
	assert.Equal(t, 1, count, "re-store must replace raw values, not append")
}

func TestFactors_NullMeansOmitted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A no-evidence statistic is storable but yields no factor.
	stats := map[string]map[string]model.ScalingStatistic{
		"2K": {"width": {}},
	}
	require.NoError(t, s.SaveFile(ctx, "a.gui", extract.Result{}, stats))

	factors, err := s.Factors(ctx, "a.gui", "2K")
	require.NoError(t, err)
	assert.Empty(t, factors)

	// The record itself exists, with null fields.
	summary, err := s.Summary(ctx, "2K")
	require.NoError(t, err)
	require.Contains(t, summary, "a.gui")
	got := summary["a.gui"]["width"]
	assert.Nil(t, got.Mean)
	assert.Nil(t, got.StdDev)
	assert.False(t, got.Valid())
}

func TestFactors_UnknownFileIsEmpty(t *testing.T) {
	s := openTestStore(t)

	factors, err := s.Factors(context.Background(), "missing.gui", "2K")
	require.NoError(t, err)
	assert.Empty(t, factors)
}

func TestSummary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats := map[string]map[string]model.ScalingStatistic{
		"2K": {"width": stat(1.5, 1.4, 0.1, 1.2, 1.8)},
		"4K": {"width": stat(2.0, 2.0, 0, 2.0, 2.0)},
	}
	require.NoError(t, s.SaveFile(ctx, "interface/topbar.gui", extract.Result{"width": {10}}, stats))

	summary, err := s.Summary(ctx, "2K")
	require.NoError(t, err)
	require.Contains(t, summary, "topbar.gui")

	got := summary["topbar.gui"]["width"]
	require.True(t, got.Valid())
	assert.Equal(t, 1.5, *got.Mean)
	assert.Equal(t, 1.4, *got.Median)
	assert.Equal(t, 0.1, *got.StdDev)
	assert.Equal(t, 1.2, *got.Min)
	assert.Equal(t, 1.8, *got.Max)

	// The 4K statistic set is independent.
	summary4k, err := s.Summary(ctx, "4K")
	require.NoError(t, err)
	assert.Equal(t, 2.0, *summary4k["topbar.gui"]["width"].Mean)
}

func TestFactorCache_ReadThrough(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats := map[string]map[string]model.ScalingStatistic{
		"2K": {"width": stat(1.5, 1.5, 0, 1.5, 1.5)},
	}
	require.NoError(t, s.SaveFile(ctx, "a.gui", extract.Result{"width": {10}}, stats))

	cache := NewFactorCache(s, time.Minute)

	first, err := cache.Factors(ctx, "a.gui", "2K")
	require.NoError(t, err)
	assert.Equal(t, 1.5, first["width"])

	// Overwrite in the store; the cache still serves the old value
	// until invalidated.
	stats["2K"]["width"] = stat(9, 9, 0, 9, 9)
	require.NoError(t, s.SaveFile(ctx, "a.gui", extract.Result{"width": {10}}, stats))

	cached, err := cache.Factors(ctx, "a.gui", "2K")
	require.NoError(t, err)
	assert.Equal(t, 1.5, cached["width"])

	cache.Invalidate()
	fresh, err := cache.Factors(ctx, "a.gui", "2K")
	require.NoError(t, err)
	assert.Equal(t, 9.0, fresh["width"])
}
