package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	apperrors "github.com/nijaru/vid-text/errors"
)

const DefaultConfigFile = "config.env"

type Config struct {
	// Directory roots
	VideoPath          string
	TranscriptionsPath string
	ArchivePath        string

	DBPath            string
	LogDir            string
	Device            string
	UVPath            string
	ScriptsPath       string
	TranscribeTimeout time.Duration
	ProgressInterval  time.Duration

	Mirror MirrorConfig
}

// MirrorConfig configures the optional S3-compatible transcript mirror.
type MirrorConfig struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func (m MirrorConfig) Enabled() bool {
	return m.Bucket != ""
}

var requiredKeys = []string{"ARCHIVE_PATH", "TRANSCRIPTIONS_PATH", "VIDEO_PATH"}

// Load reads the KEY=VALUE file at path into the environment (without overriding
// variables that are already set) and builds the configuration from it. A missing
// file is only an error when it was asked for explicitly.
func Load(path string, explicit bool) (*Config, error) {
	const op = "config.Load"

	if path != "" {
		if err := godotenv.Load(path); err != nil {
			if explicit || !os.IsNotExist(errors.Cause(err)) {
				return nil, apperrors.Configuration(op, err, "failed to read config file "+path)
			}
			logrus.WithField("path", path).Debug("No config file, using environment only")
		}
	}

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(GetEnv(key, "")) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Configuration(op, nil, "missing required configuration: "+strings.Join(missing, ", "))
	}

	cfg := &Config{
		VideoPath:          GetEnv("VIDEO_PATH", ""),
		TranscriptionsPath: GetEnv("TRANSCRIPTIONS_PATH", ""),
		ArchivePath:        GetEnv("ARCHIVE_PATH", ""),
		DBPath:             GetEnv("DB_PATH", "./data/vid-text.db"),
		LogDir:             GetEnv("LOG_DIR", "./logs"),
		Device:             strings.ToLower(GetEnv("DEVICE", "auto")),
		UVPath:             GetEnv("UV_PATH", "uv"),
		ScriptsPath:        GetEnv("SCRIPTS_PATH", "./scripts"),
		TranscribeTimeout:  getEnvAsDuration("TRANSCRIBE_TIMEOUT", 0),
		ProgressInterval:   getEnvAsDuration("PROGRESS_INTERVAL", 5*time.Second),
		Mirror: MirrorConfig{
			Bucket:    GetEnv("S3_BUCKET", ""),
			Prefix:    GetEnv("S3_PREFIX", "transcriptions"),
			Region:    GetEnv("S3_REGION", "us-east-1"),
			Endpoint:  GetEnv("S3_ENDPOINT", ""),
			AccessKey: GetEnv("S3_ACCESS_KEY", ""),
			SecretKey: GetEnv("S3_SECRET_KEY", ""),
		},
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, apperrors.Configuration(op, err, "invalid configuration")
	}
	return cfg, nil
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func ValidateConfig(cfg *Config) error {
	switch cfg.Device {
	case "auto", "cpu", "cuda":
	default:
		return errors.Errorf("device must be auto, cpu or cuda, got %q", cfg.Device)
	}
	if cfg.DBPath == "" {
		return errors.New("database path is required")
	}
	if cfg.UVPath == "" {
		return errors.New("uv path is required")
	}
	if cfg.TranscribeTimeout < 0 {
		return errors.New("transcribe timeout must not be negative")
	}
	if cfg.ProgressInterval <= 0 {
		return errors.New("progress interval must be greater than 0")
	}
	if cfg.Mirror.Enabled() && (cfg.Mirror.AccessKey == "") != (cfg.Mirror.SecretKey == "") {
		return errors.New("S3_ACCESS_KEY and S3_SECRET_KEY must be set together")
	}
	return nil
}
