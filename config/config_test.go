package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/nijaru/vid-text/errors"
)

var allKeys = []string{
	"ARCHIVE_PATH", "TRANSCRIPTIONS_PATH", "VIDEO_PATH", "DB_PATH", "LOG_DIR",
	"DEVICE", "UV_PATH", "SCRIPTS_PATH", "TRANSCRIBE_TIMEOUT", "PROGRESS_INTERVAL",
	"S3_BUCKET", "S3_PREFIX", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY",
}

// clearEnv unsets every key for the duration of the test; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, strings.Join([]string{
		"ARCHIVE_PATH=/srv/archive",
		"TRANSCRIPTIONS_PATH=/srv/transcriptions",
		"VIDEO_PATH=/srv/videos",
		"TRANSCRIBE_TIMEOUT=5m",
		"DEVICE=cpu",
	}, "\n"))

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ArchivePath != "/srv/archive" {
		t.Errorf("expected /srv/archive, got %s", cfg.ArchivePath)
	}
	if cfg.TranscriptionsPath != "/srv/transcriptions" {
		t.Errorf("expected /srv/transcriptions, got %s", cfg.TranscriptionsPath)
	}
	if cfg.VideoPath != "/srv/videos" {
		t.Errorf("expected /srv/videos, got %s", cfg.VideoPath)
	}
	if cfg.TranscribeTimeout != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.TranscribeTimeout)
	}
	if cfg.Device != "cpu" {
		t.Errorf("expected cpu, got %s", cfg.Device)
	}
	if cfg.ProgressInterval != 5*time.Second {
		t.Errorf("expected default 5s, got %s", cfg.ProgressInterval)
	}
	if cfg.Mirror.Enabled() {
		t.Error("expected mirror to be disabled without S3_BUCKET")
	}
}

func TestLoadEnvironmentWins(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "ARCHIVE_PATH=/file/archive\nTRANSCRIPTIONS_PATH=/file/t\nVIDEO_PATH=/file/v\n")
	t.Setenv("VIDEO_PATH", "/env/videos")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VideoPath != "/env/videos" {
		t.Errorf("expected environment to win, got %s", cfg.VideoPath)
	}
}

func TestLoadMissingKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "ARCHIVE_PATH=/srv/archive\n")

	_, err := Load(path, true)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !apperrors.IsKind(err, apperrors.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	for _, key := range []string{"TRANSCRIPTIONS_PATH", "VIDEO_PATH"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("expected error to name %s, got %v", key, err)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHIVE_PATH", "/a")
	t.Setenv("TRANSCRIPTIONS_PATH", "/t")
	t.Setenv("VIDEO_PATH", "/v")
	missing := filepath.Join(t.TempDir(), "nope.env")

	if _, err := Load(missing, false); err != nil {
		t.Errorf("default config file may be absent, got %v", err)
	}
	if _, err := Load(missing, true); err == nil {
		t.Error("expected error for explicit missing config file")
	}
}

func TestInvalidDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ARCHIVE_PATH", "/a")
	t.Setenv("TRANSCRIPTIONS_PATH", "/t")
	t.Setenv("VIDEO_PATH", "/v")
	t.Setenv("PROGRESS_INTERVAL", "soon")
	t.Setenv("TRANSCRIBE_TIMEOUT", "90")

	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProgressInterval != 5*time.Second {
		t.Errorf("expected default 5s, got %s", cfg.ProgressInterval)
	}
	if cfg.TranscribeTimeout != 90*time.Second {
		t.Errorf("expected 90s, got %s", cfg.TranscribeTimeout)
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() *Config {
		return &Config{
			Device:           "auto",
			DBPath:           "./data/vid-text.db",
			UVPath:           "uv",
			ProgressInterval: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown device", func(c *Config) { c.Device = "tpu" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"negative timeout", func(c *Config) { c.TranscribeTimeout = -time.Second }, true},
		{"zero progress interval", func(c *Config) { c.ProgressInterval = 0 }, true},
		{"half credentials", func(c *Config) {
			c.Mirror.Bucket = "b"
			c.Mirror.AccessKey = "key"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := ValidateConfig(cfg); (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
