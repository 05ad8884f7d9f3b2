package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreatScorerAnalyze(t *testing.T) {
	ts := NewThreatScorer(3)

	tests := []struct {
		name        string
		text        string
		score       int
		level       ThreatLevel
		detected    bool
		confidence  int
		action      string
		reasonCount int
	}{
		{
			name:        "benign scene",
			text:        "a cat sleeping on the lawn",
			score:       1,
			level:       LevelNone,
			detected:    false,
			confidence:  50,
			action:      "none",
			reasonCount: 0,
		},
		{
			name:        "critical weapon",
			text:        "a person with a gun near the entrance",
			score:       5,
			level:       LevelCritical,
			detected:    true,
			confidence:  65,
			action:      "immediate_response",
			reasonCount: 1,
		},
		{
			name:        "suspicious behavior",
			text:        "someone lurking near the driveway",
			score:       4,
			level:       LevelHigh,
			detected:    true,
			confidence:  65,
			action:      "investigate_immediately",
			reasonCount: 1,
		},
		{
			name:        "unusual situation",
			text:        "an abandoned bag left at night",
			score:       3,
			level:       LevelMedium,
			detected:    true,
			confidence:  80,
			action:      "monitor_closely",
			reasonCount: 2,
		},
		{
			name:        "normal activity pulls score down",
			text:        "a delivery worker in uniform at the front door",
			score:       1,
			level:       LevelNone,
			detected:    false,
			confidence:  20,
			action:      "none",
			reasonCount: 1, // only the normal-indicator summary line
		},
		{
			name:        "threat despite normal context",
			text:        "a worker holding a knife",
			score:       4,
			level:       LevelHigh,
			detected:    true,
			confidence:  55,
			action:      "investigate_immediately",
			reasonCount: 2,
		},
		{
			name:        "severity is a maximum not a sum",
			text:        "fire and an armed intruder smashing the window",
			score:       5,
			level:       LevelCritical,
			detected:    true,
			confidence:  90,
			action:      "immediate_response",
			reasonCount: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := ts.Analyze(tt.text, "frame.jpg")

			assert.Equal(t, tt.score, a.Score)
			assert.Equal(t, tt.level, a.Level)
			assert.Equal(t, tt.detected, a.ThreatDetected)
			assert.Equal(t, tt.confidence, a.Confidence)
			assert.Equal(t, tt.action, a.RecommendedAction)
			assert.Len(t, a.Reasons, tt.reasonCount)
			assert.Equal(t, tt.text, a.Classification)
			assert.Equal(t, "frame.jpg", a.ImageFile)
		})
	}
}

func TestThreatScorerCaseInsensitive(t *testing.T) {
	ts := NewThreatScorer(3)

	a := ts.Analyze("A MAN WITH A KNIFE", "frame.jpg")

	assert.Equal(t, 5, a.Score)
	assert.Equal(t, LevelCritical, a.Level)
}

func TestThreatScorerScoreNeverBelowOne(t *testing.T) {
	ts := NewThreatScorer(3)

	// Three normal indicators against a base score of 1.
	a := ts.Analyze("security guard in uniform doing maintenance", "frame.jpg")

	assert.Equal(t, 1, a.Score)
	assert.Equal(t, LevelNone, a.Level)
	assert.Contains(t, a.Reasons[len(a.Reasons)-1], "Normal activity indicators")
}

func TestThreatScorerCustomThreshold(t *testing.T) {
	ts := NewThreatScorer(5)

	// MEDIUM severity stays below a threshold of 5.
	a := ts.Analyze("an abandoned package by the gate", "frame.jpg")

	assert.Equal(t, 3, a.Score)
	assert.Equal(t, LevelMedium, a.Level)
	assert.False(t, a.ThreatDetected)
}

func TestConfidenceBounds(t *testing.T) {
	assert.Equal(t, 50, confidence(0, 0))
	assert.Equal(t, 65, confidence(1, 0))
	assert.Equal(t, 90, confidence(10, 0)) // boost caps at 40
	assert.Equal(t, 20, confidence(0, 3))
	assert.Equal(t, 20, confidence(0, 10)) // cut caps at 30
	assert.Equal(t, 60, confidence(10, 3))
}
