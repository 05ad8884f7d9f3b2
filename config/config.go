package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings. Everything is read from the
// environment with documented defaults; nothing in the core pipeline
// depends on where a value came from.
type Config struct {
	// Classifier (NVIDIA Florence-2)
	NvidiaAPIKey       string
	NvidiaAPIURL       string
	ClassificationTask string
	ClassifyTimeout    time.Duration

	// Telegram alerting
	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   string
	NotifyTimeout    time.Duration

	// Gate tunables
	MotionThreshold  int     // pixel difference threshold (0-255)
	MinChangePercent float64 // minimum % of frame that must change
	DupSimilarity    float64 // dedup similarity threshold (0-1)

	// Threat detection
	ThreatThreshold int // score at which an alert fires (default 3 = MEDIUM)

	// Alert debouncing
	AlertCooldown time.Duration

	// Image optimization
	MaxImageKB  int
	JPEGQuality int

	// Paths
	FramesDir  string
	ResultsDir string
	DBPath     string

	// HTTP monitoring API
	HTTPAddr string

	// Optional MQTT fan-out
	MQTTEnabled  bool
	MQTTHost     string
	MQTTPort     int
	MQTTUsername string
	MQTTPassword string
	MQTTClientID string

	// Optional MinIO snapshot archive
	MinioEnabled   bool
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	// Camera identity for published results
	CameraName string

	LogLevel string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		NvidiaAPIKey:       getEnv("NVIDIA_API_KEY", ""),
		NvidiaAPIURL:       getEnv("NVIDIA_API_URL", "https://ai.api.nvidia.com/v1/vlm/microsoft/florence-2"),
		ClassificationTask: getEnv("CLASSIFICATION_TASK", "<DETAILED_CAPTION>"),
		ClassifyTimeout:    getEnvDuration("CLASSIFY_TIMEOUT_SECONDS", 300*time.Second),

		TelegramEnabled:  getEnvBool("TELEGRAM_ENABLED", true),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		NotifyTimeout:    getEnvDuration("NOTIFY_TIMEOUT_SECONDS", 30*time.Second),

		MotionThreshold:  getEnvInt("MOTION_THRESHOLD", 25),
		MinChangePercent: getEnvFloat("MOTION_MIN_CHANGE_PERCENT", 0.5),
		DupSimilarity:    getEnvFloat("DUP_SIMILARITY_THRESHOLD", 0.95),

		ThreatThreshold: getEnvInt("THREAT_THRESHOLD", 3),

		AlertCooldown: getEnvDuration("ALERT_COOLDOWN_SECONDS", 10*time.Second),

		MaxImageKB:  getEnvInt("MAX_IMAGE_KB", 150),
		JPEGQuality: getEnvInt("JPEG_QUALITY", 85),

		FramesDir:  getEnv("CAPTURED_FRAMES_DIR", "./data/captured_frames"),
		ResultsDir: getEnv("CLASSIFICATION_RESULTS_DIR", "./data/classification_results"),
		DBPath:     getEnv("DB_PATH", "./data/framegate.db"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		MQTTEnabled:  getEnvBool("MQTT_ENABLED", false),
		MQTTHost:     getEnv("MQTT_HOST", "localhost"),
		MQTTPort:     getEnvInt("MQTT_PORT", 1883),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "framegate"),

		MinioEnabled:   getEnvBool("MINIO_ENABLED", false),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "framegate-alerts"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		CameraName: getEnv("CAMERA_NAME", "camera"),

		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}
}

// Validate checks required credentials. Failures here are fatal at
// session start and never surfaced mid-stream.
func (c *Config) Validate() error {
	if c.NvidiaAPIKey == "" {
		return fmt.Errorf("NVIDIA_API_KEY is required")
	}
	if c.TelegramEnabled && c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when notifications enabled")
	}
	if c.TelegramEnabled && c.TelegramChatID == "" {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when notifications enabled")
	}
	if c.MinioEnabled && (c.MinioAccessKey == "" || c.MinioSecretKey == "") {
		return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when snapshot archive enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// getEnvDuration reads a plain number of seconds, matching how the
// deployment scripts have always written these values.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}
