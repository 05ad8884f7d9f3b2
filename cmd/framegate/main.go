package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/seclens/framegate/config"
	"github.com/seclens/framegate/internal"
	"github.com/seclens/framegate/internal/classifier"
	httpx "github.com/seclens/framegate/internal/http"
	"github.com/seclens/framegate/internal/mqtt"
	"github.com/seclens/framegate/internal/storage"
	"github.com/seclens/framegate/internal/telegram"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	internal.InitLogger(internal.GetLogLevelFromString(cfg.LogLevel), "[FRAMEGATE]")
	internal.LogInfo("=== Framegate Starting ===")

	if err := cfg.Validate(); err != nil {
		internal.LogFatal("Configuration invalid: %v", err)
	}

	for _, dir := range []string{cfg.FramesDir, cfg.ResultsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			internal.LogFatal("Failed to create %s: %v", dir, err)
		}
	}

	store, err := internal.OpenStore(cfg.DBPath)
	if err != nil {
		internal.LogFatal("Failed to open result store: %v", err)
	}
	defer store.Close()

	nvidia := classifier.New(cfg.NvidiaAPIURL, cfg.NvidiaAPIKey, cfg.ClassificationTask, cfg.ClassifyTimeout)

	var notifier internal.Notifier
	if cfg.TelegramEnabled {
		tg := telegram.New(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.NotifyTimeout,
			internal.NewLogger(internal.GetLogLevelFromString(cfg.LogLevel), "[TELEGRAM]", os.Stdout))
		if err := tg.TestConnection(); err != nil {
			internal.LogWarn("Telegram connection check failed: %v", err)
		}
		notifier = tg
	}

	pipeline := internal.NewPipeline(internal.PipelineOptions{
		MotionThreshold:  cfg.MotionThreshold,
		MinChangePercent: cfg.MinChangePercent,
		DupSimilarity:    cfg.DupSimilarity,
		ThreatThreshold:  cfg.ThreatThreshold,
		AlertCooldown:    cfg.AlertCooldown,
		AlertsEnabled:    cfg.TelegramEnabled,
		Optimizer:        internal.NewJPEGOptimizer(cfg.MaxImageKB, cfg.JPEGQuality, internal.NewLogger(internal.GetLogLevelFromString(cfg.LogLevel), "[OPTIMIZER]", os.Stdout)),
		Classifier:       nvidia,
		Notifier:         notifier,
	})

	var publisher *mqtt.Publisher
	if cfg.MQTTEnabled {
		publisher, err = mqtt.NewPublisher(mqtt.Config{
			Host:     cfg.MQTTHost,
			Port:     cfg.MQTTPort,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			ClientID: cfg.MQTTClientID,
			Camera:   cfg.CameraName,
		})
		if err != nil {
			internal.LogWarn("MQTT disabled: %v", err)
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	var snapshots *storage.SnapshotStore
	if cfg.MinioEnabled {
		snapshots, err = storage.NewSnapshotStore(storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			internal.LogWarn("Snapshot archive disabled: %v", err)
			snapshots = nil
		}
	}

	process := func(frame *internal.Frame) {
		result := pipeline.Process(context.Background(), frame)

		if err := store.RecordResult(cfg.CameraName, result); err != nil {
			internal.LogError("Failed to record result for %s: %v", frame.Name, err)
		}

		if result.Classification != "" {
			if _, err := classifier.SaveResult(frame.Name, result.Classification, cfg.ResultsDir); err != nil {
				internal.LogError("Failed to save classification for %s: %v", frame.Name, err)
			}
		}

		if publisher != nil {
			if err := publisher.PublishResult(result); err != nil {
				internal.LogWarn("MQTT publish failed for %s: %v", frame.Name, err)
			}
		}

		if snapshots != nil && result.AlertSent && len(frame.Raw) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if url, err := snapshots.SaveAlertSnapshot(ctx, frame.Name, frame.Raw); err != nil {
				internal.LogWarn("Snapshot archive failed for %s: %v", frame.Name, err)
			} else {
				internal.LogInfo("Alert snapshot archived: %s", url)
			}
			cancel()
		}
	}

	watcher, err := internal.NewFrameWatcher(cfg.FramesDir, process,
		internal.NewLogger(internal.GetLogLevelFromString(cfg.LogLevel), "[WATCHER]", os.Stdout))
	if err != nil {
		internal.LogFatal("Failed to create frame watcher: %v", err)
	}
	if err := watcher.Start(); err != nil {
		internal.LogFatal("Failed to start frame watcher: %v", err)
	}
	internal.LogInfo("Watching %s for new frames", cfg.FramesDir)

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	httpx.Routes(r, pipeline, store)

	go func() {
		internal.LogInfo("Monitoring API listening on %s", cfg.HTTPAddr)
		if err := r.Run(cfg.HTTPAddr); err != nil {
			internal.LogFatal("HTTP server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	internal.LogInfo("Shutting down")
	watcher.Stop()

	stats := pipeline.Stats().Snapshot()
	internal.LogInfo("Session summary: frames=%d skipped_no_motion=%d skipped_duplicate=%d processed=%d threats=%d alerts_sent=%d alerts_debounced=%d api_calls_saved=%d",
		stats.TotalFrames, stats.SkippedNoMotion, stats.SkippedDup, stats.Processed,
		stats.ThreatsDetected, stats.AlertsSent, stats.AlertsDebounced, pipeline.Stats().APICallsSaved())
}
