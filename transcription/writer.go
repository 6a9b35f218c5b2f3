package transcription

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	apperrors "github.com/nijaru/vid-text/errors"
	"github.com/nijaru/vid-text/models"
	"github.com/nijaru/vid-text/utils"
)

// RenderTranscript produces the transcript file body: the source file name, then one
// "\n[start --> end]:text" line per segment, without a trailing newline.
func RenderTranscript(header string, segments []models.Segment) []byte {
	var b strings.Builder
	b.WriteString(header)
	for _, line := range utils.FormatSegments(segments) {
		b.WriteString("\n")
		b.WriteString(line)
	}
	return []byte(b.String())
}

// WriteTranscript replaces the file at path with the rendered transcript, creating
// the parent directory if needed. The content is written to a temporary file first,
// so readers see either the old file or the complete new one.
func WriteTranscript(path, header string, segments []models.Segment) ([]byte, error) {
	const op = "transcription.WriteTranscript"

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Filesystem(op, err, "failed to create transcription directory")
	}

	content := RenderTranscript(header, segments)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, apperrors.Filesystem(op, err, "failed to create transcript file")
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		cleanup()
		return nil, apperrors.Filesystem(op, errors.Wrap(err, tmpName), "failed to write transcript")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return nil, apperrors.Filesystem(op, errors.Wrap(err, tmpName), "failed to flush transcript")
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return nil, apperrors.Filesystem(op, errors.Wrap(err, tmpName), "failed to close transcript")
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return nil, apperrors.Filesystem(op, err, "failed to set transcript permissions")
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return nil, apperrors.Filesystem(op, err, "failed to replace transcript")
	}

	return content, nil
}
