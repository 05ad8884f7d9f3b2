package internal

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Classifier describes the remote scene-description service. The
// returned string is a plain description; all response-shape handling
// lives behind this interface.
type Classifier interface {
	Classify(ctx context.Context, image []byte, name string) (string, error)
}

// Optimizer reduces image payloads before upload. Best-effort: it
// never fails, returning the input unchanged when it cannot help.
type Optimizer interface {
	Optimize(image []byte) []byte
}

// Notifier dispatches an alert, attaching the frame image when
// available. It never fails; false means the alert did not go out.
type Notifier interface {
	Dispatch(analysis *ThreatAnalysis, image []byte) bool
}

// SessionStats are the monotonically incrementing counters for one
// monitoring session.
type SessionStats struct {
	mu              sync.Mutex
	TotalFrames     int64
	SkippedNoMotion int64
	SkippedDup      int64
	Processed       int64
	ThreatsDetected int64
	AlertsSent      int64
	AlertsDebounced int64
}

// SessionSnapshot is a point-in-time copy of the session counters,
// safe to serialize.
type SessionSnapshot struct {
	TotalFrames     int64 `json:"total_frames"`
	SkippedNoMotion int64 `json:"skipped_no_motion"`
	SkippedDup      int64 `json:"skipped_duplicate"`
	Processed       int64 `json:"processed"`
	ThreatsDetected int64 `json:"threats_detected"`
	AlertsSent      int64 `json:"alerts_sent"`
	AlertsDebounced int64 `json:"alerts_debounced"`
}

// Snapshot returns a consistent copy of the counters.
func (s *SessionStats) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		TotalFrames:     s.TotalFrames,
		SkippedNoMotion: s.SkippedNoMotion,
		SkippedDup:      s.SkippedDup,
		Processed:       s.Processed,
		ThreatsDetected: s.ThreatsDetected,
		AlertsSent:      s.AlertsSent,
		AlertsDebounced: s.AlertsDebounced,
	}
}

// APICallsSaved counts the downstream work the gates and debouncer
// avoided: skipped frames plus debounced alerts.
func (s *SessionStats) APICallsSaved() int64 {
	snap := s.Snapshot()
	return snap.SkippedNoMotion + snap.SkippedDup + snap.AlertsDebounced
}

func (s *SessionStats) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalFrames = 0
	s.SkippedNoMotion = 0
	s.SkippedDup = 0
	s.Processed = 0
	s.ThreatsDetected = 0
	s.AlertsSent = 0
	s.AlertsDebounced = 0
}

func (s *SessionStats) inc(field *int64) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

// Result is the structured outcome of processing one frame.
type Result struct {
	Success        bool            `json:"success"`
	ImageFile      string          `json:"image_file"`
	Skipped        bool            `json:"skipped"`
	SkipReason     string          `json:"skip_reason,omitempty"`
	MotionPercent  float64         `json:"motion_percent"`
	Similarity     float64         `json:"similarity"`
	Classification string          `json:"classification,omitempty"`
	ThreatAnalysis *ThreatAnalysis `json:"threat_analysis,omitempty"`
	AlertSent      bool            `json:"alert_sent"`
	AlertDebounced bool            `json:"alert_debounced"`
	ProcessingMs   float64         `json:"processing_ms"`
	Error          string          `json:"error,omitempty"`
}

// Skip reasons carried in Result.SkipReason.
const (
	SkipNoMotion  = "no_motion"
	SkipDuplicate = "duplicate"
)

// Pipeline sequences the gates, the classification round trip, threat
// scoring, and alert dispatch for one logical camera stream. Frames
// must be processed strictly sequentially: both gates carry exactly
// one slot of history.
type Pipeline struct {
	motion    *MotionGate
	dedup     *DuplicateGate
	scorer    *ThreatScorer
	debouncer *AlertDebouncer

	optimizer  Optimizer
	classifier Classifier
	notifier   Notifier

	alertsEnabled bool
	stats         SessionStats
	frameSeq      int64
	logger        *Logger
}

// PipelineOptions bundles the collaborators and tunables a pipeline
// session needs.
type PipelineOptions struct {
	MotionThreshold  int
	MinChangePercent float64
	DupSimilarity    float64
	ThreatThreshold  int
	AlertCooldown    time.Duration
	AlertsEnabled    bool

	Optimizer  Optimizer
	Classifier Classifier
	Notifier   Notifier
	Logger     *Logger
}

// NewPipeline creates a pipeline session. Gate state, debounce state,
// and stats live for the session's duration.
func NewPipeline(opts PipelineOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(INFO, "[PIPELINE]", os.Stdout)
	}
	return &Pipeline{
		motion:        NewMotionGate(opts.MotionThreshold, opts.MinChangePercent),
		dedup:         NewDuplicateGate(opts.DupSimilarity),
		scorer:        NewThreatScorer(opts.ThreatThreshold),
		debouncer:     NewAlertDebouncer(opts.AlertCooldown),
		optimizer:     opts.Optimizer,
		classifier:    opts.Classifier,
		notifier:      opts.Notifier,
		alertsEnabled: opts.AlertsEnabled,
		logger:        logger,
	}
}

// Debouncer exposes the session's alert debouncer so its lifecycle
// (reset for tests, sharing across sessions) can be managed separately
// from the stream-restart reset.
func (p *Pipeline) Debouncer() *AlertDebouncer {
	return p.debouncer
}

// Stats returns the live session counters.
func (p *Pipeline) Stats() *SessionStats {
	return &p.stats
}

// ResetStream clears motion history, dedup history, and the session
// counters. The alert debouncer is deliberately left alone; alert
// fatigue belongs to the notification channel, not the camera stream.
func (p *Pipeline) ResetStream() {
	p.motion.Reset()
	p.dedup.Reset()
	p.stats.reset()
	p.logger.Info("Stream state reset")
}

// Process runs one frame through the full decision sequence.
func (p *Pipeline) Process(ctx context.Context, frame *Frame) *Result {
	start := time.Now()

	p.stats.inc(&p.stats.TotalFrames)
	p.frameSeq++
	frame.Seq = p.frameSeq

	result := &Result{ImageFile: frame.Name}
	defer func() {
		result.ProcessingMs = float64(time.Since(start).Microseconds()) / 1000
	}()

	// Step 1: motion gate
	hasMotion, motionPercent := p.motion.Evaluate(frame)
	result.MotionPercent = motionPercent
	if !hasMotion {
		p.stats.inc(&p.stats.SkippedNoMotion)
		p.logger.Debug("Frame %d skipped: no motion (%.2f%% change)", frame.Seq, motionPercent)
		result.Success = true
		result.Skipped = true
		result.SkipReason = SkipNoMotion
		return result
	}
	p.logger.Debug("Frame %d motion detected: %.2f%% change", frame.Seq, motionPercent)

	// Step 2: duplicate gate
	isDup, similarity := p.dedup.Evaluate(frame)
	result.Similarity = similarity
	if isDup {
		p.stats.inc(&p.stats.SkippedDup)
		p.logger.Debug("Frame %d skipped: duplicate (%.1f%% similar)", frame.Seq, similarity*100)
		result.Success = true
		result.Skipped = true
		result.SkipReason = SkipDuplicate
		return result
	}

	// Step 3: best-effort image optimization
	image := frame.Raw
	if p.optimizer != nil {
		image = p.optimizer.Optimize(image)
	}

	// Step 4: remote classification. A failure here fails the frame;
	// the caller may resubmit it.
	classification, err := p.classifier.Classify(ctx, image, frame.Name)
	if err != nil {
		p.logger.Error("Frame %d classification failed: %v", frame.Seq, err)
		result.Error = fmt.Sprintf("classification failed: %v", err)
		return result
	}
	result.Classification = classification

	// Step 5: threat scoring. Processed counts fully analyzed frames,
	// not gate-passed ones.
	p.stats.inc(&p.stats.Processed)
	analysis := p.scorer.Analyze(classification, frame.Name)
	result.ThreatAnalysis = analysis

	// Step 6: alert dispatch with debouncing
	if analysis.ThreatDetected {
		p.stats.inc(&p.stats.ThreatsDetected)
		p.logger.Warn("Frame %d THREAT DETECTED: %s (score %d/5)", frame.Seq, analysis.Level, analysis.Score)

		if p.alertsEnabled {
			if p.debouncer.ShouldSend(analysis.Level) {
				if p.notifier.Dispatch(analysis, frame.Raw) {
					p.debouncer.RecordSent(analysis.Level)
					p.stats.inc(&p.stats.AlertsSent)
					result.AlertSent = true
				} else {
					// A failed send is non-fatal: the analysis itself
					// succeeded. The cooldown stays unanchored.
					p.logger.Error("Frame %d alert dispatch failed", frame.Seq)
				}
			} else {
				p.stats.inc(&p.stats.AlertsDebounced)
				result.AlertDebounced = true
				p.logger.Info("Frame %d alert debounced (%s within cooldown)", frame.Seq, analysis.Level)
			}
		}
	} else {
		p.logger.Debug("Frame %d no threats: %s", frame.Seq, analysis.Level)
	}

	result.Success = true
	return result
}
