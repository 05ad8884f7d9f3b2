package internal

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ThreatLevel classifies how alarming a scene description is.
type ThreatLevel string

const (
	LevelNone     ThreatLevel = "NONE"
	LevelLow      ThreatLevel = "LOW"
	LevelMedium   ThreatLevel = "MEDIUM"
	LevelHigh     ThreatLevel = "HIGH"
	LevelCritical ThreatLevel = "CRITICAL"
)

// ThreatAnalysis is the result of scoring a scene description. It is a
// plain value; nothing retains it after the pipeline hands it out.
type ThreatAnalysis struct {
	Timestamp         time.Time   `json:"timestamp"`
	ImageFile         string      `json:"image_file"`
	Classification    string      `json:"classification"`
	ThreatDetected    bool        `json:"threat_detected"`
	Level             ThreatLevel `json:"threat_level"`
	Score             int         `json:"threat_score"`
	Reasons           []string    `json:"threat_reasons"`
	Confidence        int         `json:"confidence"`
	RecommendedAction string      `json:"recommended_action"`
}

// severity values contributed by each pattern category.
const (
	severityCritical = 5
	severityHigh     = 4
	severityMedium   = 3
)

var (
	criticalPatterns = compilePatterns([]string{
		// Violence and weapons
		`\b(gun|weapon|knife|pistol|rifle|firearm|armed|shooting|scissor)\b`,
		`\b(violence|fight|attack|assault|blood)\b`,
		`\b(breaking|smashing|destroying|vandal|damage)\b`,
		`\b(fire|smoke|explosion|flames|burning)\b`,
		// Break-ins
		`\b(breaking.{0,10}(in|into|through)|forced.{0,10}entry)\b`,
		`\b(intruder|burglar|break-in)\b`,
	})
	highPatterns = compilePatterns([]string{
		// Suspicious activity
		`\b(unauthorized|suspicious.{0,10}person|unknown.{0,10}individual)\b`,
		`\b(lurking|hiding|sneaking|prowling)\b`,
		`\b(mask|hood|face.{0,10}covered|disguise)\b`,
		`\b(climbing.{0,10}(fence|wall)|jumping.{0,10}fence)\b`,
	})
	mediumPatterns = compilePatterns([]string{
		// Unusual situations
		`\b(abandoned.{0,10}(bag|package)|unattended.{0,10}item)\b`,
		`\b(loitering|lingering|watching)\b`,
		`\b(at.{0,10}night|after.{0,10}hours|dark)\b`,
		`\b(unusual.{0,10}activity|strange.{0,10}behavior)\b`,
	})
	normalPatterns = compilePatterns([]string{
		// Normal indicators (reduce threat)
		`\b(employee|worker|staff|security|guard)\b`,
		`\b(uniform|badge|identification)\b`,
		`\b(delivery|service|repair|maintenance)\b`,
	})
)

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// ThreatScorer maps scene descriptions to threat levels using keyword
// category matching. Severity is a maximum across categories, never a
// sum; normal-activity indicators pull the score back down.
type ThreatScorer struct {
	threshold int // score at which ThreatDetected flips on
}

// NewThreatScorer creates a scorer with the given detection threshold.
func NewThreatScorer(threshold int) *ThreatScorer {
	return &ThreatScorer{threshold: threshold}
}

// Analyze scores a scene description. Pure except for the timestamp.
func (ts *ThreatScorer) Analyze(text, imageFile string) *ThreatAnalysis {
	lowered := strings.ToLower(text)

	score := 1
	var reasons []string

	categories := []struct {
		name     string
		value    int
		patterns []*regexp.Regexp
	}{
		{"Critical", severityCritical, criticalPatterns},
		{"High", severityHigh, highPatterns},
		{"Medium", severityMedium, mediumPatterns},
	}

	for _, cat := range categories {
		for _, p := range cat.patterns {
			if m := p.FindString(lowered); m != "" {
				if cat.value > score {
					score = cat.value
				}
				reasons = append(reasons, fmt.Sprintf("%s threat: %s", cat.name, m))
			}
		}
	}

	threatReasonCount := len(reasons)

	normalMatches := 0
	for _, p := range normalPatterns {
		if p.MatchString(lowered) {
			normalMatches++
		}
	}
	if normalMatches > 0 {
		score -= normalMatches
		if score < 1 {
			score = 1
		}
		reasons = append(reasons, fmt.Sprintf("Normal activity indicators: %d", normalMatches))
	}

	level := levelForScore(score)

	return &ThreatAnalysis{
		Timestamp:         time.Now(),
		ImageFile:         imageFile,
		Classification:    text,
		ThreatDetected:    score >= ts.threshold,
		Level:             level,
		Score:             score,
		Reasons:           reasons,
		Confidence:        confidence(threatReasonCount, normalMatches),
		RecommendedAction: recommendedAction(level),
	}
}

func levelForScore(score int) ThreatLevel {
	switch {
	case score >= 5:
		return LevelCritical
	case score >= 4:
		return LevelHigh
	case score >= 3:
		return LevelMedium
	case score >= 2:
		return LevelLow
	default:
		return LevelNone
	}
}

// confidence blends the number of threat indicators against the number
// of normal indicators, clamped to [10, 95].
func confidence(threatIndicators, normalIndicators int) int {
	c := 50
	if threatIndicators > 0 {
		boost := threatIndicators * 15
		if boost > 40 {
			boost = 40
		}
		c += boost
	}
	if normalIndicators > 0 {
		cut := normalIndicators * 10
		if cut > 30 {
			cut = 30
		}
		c -= cut
	}
	if c < 10 {
		return 10
	}
	if c > 95 {
		return 95
	}
	return c
}

func recommendedAction(level ThreatLevel) string {
	switch level {
	case LevelCritical:
		return "immediate_response"
	case LevelHigh:
		return "investigate_immediately"
	case LevelMedium:
		return "monitor_closely"
	case LevelLow:
		return "log_for_review"
	default:
		return "none"
	}
}
