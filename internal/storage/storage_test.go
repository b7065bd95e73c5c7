package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandlens/brandlens/internal/models"
)

func sampleReport(name string, score float64) models.VideoAnalysis {
	return models.VideoAnalysis{
		VideoName:       name,
		Brand:           models.BrandContext{CompanyName: "Acme"},
		FramesExtracted: 12,
		VideoDuration:   6.0,
		Harmony: &models.ColorHarmonyReport{
			OverallScore:        score,
			ColorAlignmentScore: score,
			Analysis:            "summary",
		},
	}
}

func readReports(t *testing.T, dir string) []models.VideoAnalysis {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, reportsFileName))
	require.NoError(t, err)
	var reports []models.VideoAnalysis
	require.NoError(t, json.Unmarshal(data, &reports))
	return reports
}

func TestReportStoreFlush(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore(dir)
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, sampleReport("ad-one", 0.82)))
	require.NoError(t, store.SaveReport(ctx, sampleReport("ad-two", 0.41)))

	// nothing on disk until flush for small batches
	_, err := os.Stat(filepath.Join(dir, reportsFileName))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Flush())

	reports := readReports(t, dir)
	require.Len(t, reports, 2)
	assert.Equal(t, "ad-one", reports[0].VideoName)
	assert.InDelta(t, 0.41, reports[1].Harmony.OverallScore, 1e-9)
}

func TestReportStoreAppendsAcrossFlushes(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore(dir)
	ctx := context.Background()

	require.NoError(t, store.SaveReport(ctx, sampleReport("first", 0.5)))
	require.NoError(t, store.Flush())
	require.NoError(t, store.SaveReport(ctx, sampleReport("second", 0.6)))
	require.NoError(t, store.Flush())

	reports := readReports(t, dir)
	require.Len(t, reports, 2)
	assert.Equal(t, "first", reports[0].VideoName)
	assert.Equal(t, "second", reports[1].VideoName)
}

func TestReportStoreAutoFlushAtBatchSize(t *testing.T) {
	dir := t.TempDir()
	store := NewReportStore(dir)
	ctx := context.Background()

	for i := 0; i < batchSize; i++ {
		require.NoError(t, store.SaveReport(ctx, sampleReport("bulk", 0.7)))
	}

	reports := readReports(t, dir)
	assert.Len(t, reports, batchSize)
}

func TestReportStoreFlushEmpty(t *testing.T) {
	store := NewReportStore(t.TempDir())
	assert.NoError(t, store.Flush())
}
