package validation

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/nijaru/vid-text/errors"
)

func TestValidateFilename(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "clip.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "season1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "season1", "ep1.mkv"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		filename string
		want     string
		wantErr  bool
	}{
		{"plain file", "clip.mp4", "clip.mp4", false},
		{"nested file", "season1/ep1.mkv", filepath.Join("season1", "ep1.mkv"), false},
		{"absolute inside root", filepath.Join(root, "clip.mp4"), "clip.mp4", false},
		{"empty", "", "", true},
		{"blank", "   ", "", true},
		{"missing", "missing.mp4", "", true},
		{"directory", "season1", "", true},
		{"traversal", "../clip.mp4", "", true},
		{"absolute outside root", "/etc/passwd", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFilename(root, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFilename(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
			if tt.wantErr {
				if !apperrors.IsKind(err, apperrors.KindValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ValidateFilename(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		language string
		want     string
		wantErr  bool
	}{
		{"english", "en", false},
		{"English", "en", false},
		{"en", "en", false},
		{"auto", "", false},
		{"", "", false},
		{"castilian", "es", false},
		{"haitian creole", "ht", false},
		{"yue", "yue", false},
		{"klingon", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeLanguage(tt.language)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeLanguage(%q) error = %v, wantErr %v", tt.language, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", tt.language, got, tt.want)
		}
	}
}

func TestValidateModel(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "custom.pt")
	if err := os.WriteFile(checkpoint, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		model   string
		wantErr bool
	}{
		{"small", false},
		{"large-v3-turbo", false},
		{"tiny.en", false},
		{checkpoint, false},
		{"", true},
		{"gigantic", true},
	}

	for _, tt := range tests {
		if err := ValidateModel(tt.model); (err != nil) != tt.wantErr {
			t.Errorf("ValidateModel(%q) error = %v, wantErr %v", tt.model, err, tt.wantErr)
		}
	}
}
