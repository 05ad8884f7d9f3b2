package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertDebouncerCooldownWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewAlertDebouncerWithClock(10*time.Second, func() time.Time { return now })

	assert.True(t, d.ShouldSend(LevelCritical), "first alert always goes out")
	d.RecordSent(LevelCritical)

	now = now.Add(5 * time.Second)
	assert.False(t, d.ShouldSend(LevelCritical), "inside the cooldown")

	now = now.Add(6 * time.Second)
	assert.True(t, d.ShouldSend(LevelCritical), "cooldown elapsed")
}

func TestAlertDebouncerLevelsAreIndependent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewAlertDebouncerWithClock(10*time.Second, func() time.Time { return now })

	d.RecordSent(LevelCritical)
	now = now.Add(2 * time.Second)

	assert.False(t, d.ShouldSend(LevelCritical))
	assert.True(t, d.ShouldSend(LevelMedium), "a CRITICAL send never delays MEDIUM")
	assert.True(t, d.ShouldSend(LevelHigh))
}

func TestAlertDebouncerCooldownAnchorsOnRecordOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewAlertDebouncerWithClock(10*time.Second, func() time.Time { return now })

	// ShouldSend alone never starts a window.
	assert.True(t, d.ShouldSend(LevelHigh))
	now = now.Add(1 * time.Second)
	assert.True(t, d.ShouldSend(LevelHigh))
}

func TestAlertDebouncerReset(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewAlertDebouncerWithClock(10*time.Second, func() time.Time { return now })

	d.RecordSent(LevelCritical)
	assert.False(t, d.ShouldSend(LevelCritical))

	d.Reset()
	assert.True(t, d.ShouldSend(LevelCritical))
}

func TestAlertDebouncerExactBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	d := NewAlertDebouncerWithClock(10*time.Second, func() time.Time { return now })

	d.RecordSent(LevelMedium)
	now = now.Add(10 * time.Second)

	assert.True(t, d.ShouldSend(LevelMedium), "elapsed == cooldown sends")
}
