package internal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordAndFetch(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordResult("front-door", &Result{
		Success:        true,
		ImageFile:      "frame_001.jpg",
		Classification: "an intruder with a knife",
		ThreatAnalysis: &ThreatAnalysis{Level: LevelCritical, Score: 5},
		AlertSent:      true,
		ProcessingMs:   12.5,
	}))
	require.NoError(t, store.RecordResult("front-door", &Result{
		Success:    true,
		ImageFile:  "frame_002.jpg",
		Skipped:    true,
		SkipReason: SkipNoMotion,
	}))

	records, err := store.RecentResults(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Most recent first.
	assert.Equal(t, "frame_002.jpg", records[0].ImageFile)
	assert.True(t, records[0].Skipped)
	assert.Equal(t, SkipNoMotion, records[0].SkipReason)

	assert.Equal(t, "frame_001.jpg", records[1].ImageFile)
	assert.Equal(t, "front-door", records[1].Camera)
	assert.Equal(t, "CRITICAL", records[1].ThreatLevel)
	assert.Equal(t, 5, records[1].ThreatScore)
	assert.True(t, records[1].AlertSent)
	assert.InDelta(t, 12.5, records[1].ProcessingMs, 0.001)
}

func TestStoreRecentResultsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordResult("cam", &Result{Success: true, ImageFile: "f.jpg"}))
	}

	records, err := store.RecentResults(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestStoreCountByLevel(t *testing.T) {
	store := newTestStore(t)

	levels := []ThreatLevel{LevelCritical, LevelCritical, LevelMedium, LevelNone}
	for _, level := range levels {
		require.NoError(t, store.RecordResult("cam", &Result{
			Success:        true,
			ImageFile:      "f.jpg",
			ThreatAnalysis: &ThreatAnalysis{Level: level, Score: 1},
		}))
	}
	// Skipped frames carry no level and stay out of the counts.
	require.NoError(t, store.RecordResult("cam", &Result{
		Success: true, ImageFile: "f.jpg", Skipped: true, SkipReason: SkipDuplicate,
	}))

	counts, err := store.CountByLevel()
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["CRITICAL"])
	assert.Equal(t, int64(1), counts["MEDIUM"])
	assert.Equal(t, int64(1), counts["NONE"])
	assert.NotContains(t, counts, "")

	total, err := store.TotalFrames()
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}
