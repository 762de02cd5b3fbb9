package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// StorageConfig selects and parameterizes the image blob store.
type StorageConfig struct {
	Backend  string // "local" | "s3"
	LocalDir string
	S3Bucket string
	S3Prefix string
}

// RedisConfig defines document/project store connectivity.
type RedisConfig struct {
	URL string
}

// EditorConfig tunes the gallery/editor synchronization behavior.
type EditorConfig struct {
	SaveDebounce    time.Duration
	SpinnerMinShow  time.Duration
	CopyFeedbackTTL time.Duration
	ExtractDPI      int
	MaxUploadMB     int
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Storage StorageConfig
	Redis   RedisConfig
	Editor  EditorConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/resumopro.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_resumopro",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Storage = StorageConfig{
		Backend:  strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		LocalDir: getEnv("STORAGE_LOCAL_DIR", "temp_uploads"),
		S3Bucket: getEnv("AWS_S3_BUCKET", "resumopro-files-dev"),
		S3Prefix: getEnv("AWS_S3_PREFIX", "editor"),
	}

	cfg.Redis = RedisConfig{
		URL: getEnv("REDIS_URL", "redis://localhost:6379"),
	}

	cfg.Editor = EditorConfig{
		SaveDebounce:    parseDuration(getEnv("SAVE_DEBOUNCE", "700ms"), 700*time.Millisecond),
		SpinnerMinShow:  parseDuration(getEnv("SPINNER_MIN_SHOW", "180ms"), 180*time.Millisecond),
		CopyFeedbackTTL: parseDuration(getEnv("COPY_FEEDBACK_TTL", "3s"), 3*time.Second),
		ExtractDPI:      parseInt(getEnv("EXTRACT_DPI", "150"), 150),
		MaxUploadMB:     parseInt(getEnv("MAX_UPLOAD_MB", "25"), 25),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
