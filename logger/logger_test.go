package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestFileHookWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	log.AddHook(NewFileHook(&buf, logrus.AllLevels))

	log.WithField("filename", "clip.mp4").Warn("Not a valid file, skipping")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "Not a valid file, skipping" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["filename"] != "clip.mp4" {
		t.Errorf("unexpected filename field: %v", entry["filename"])
	}
	if entry["level"] != "warning" {
		t.Errorf("unexpected level: %v", entry["level"])
	}
}

func TestSetupCreatesLogFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var console bytes.Buffer

	closer, err := Setup(Options{LogDir: dir, Verbose: true, Console: &console})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() {
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	logrus.Debug("diagnostic detail")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "diagnostic detail") {
		t.Errorf("expected debug line on console in verbose mode, got %q", console.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "app.log"))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "diagnostic detail") {
		t.Errorf("expected log file to contain entry, got %q", string(data))
	}
}
