package transcription

import (
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	apperrors "github.com/nijaru/vid-text/errors"
)

// Archive moves src to dst. The archive root must already exist; subdirectories
// below it are created for nested inputs.
func Archive(archiveRoot, src, dst string) error {
	const op = "transcription.Archive"

	info, err := os.Stat(archiveRoot)
	if err != nil {
		return apperrors.Filesystem(op, err, "archive directory is not accessible")
	}
	if !info.IsDir() {
		return apperrors.Filesystem(op, nil, archiveRoot+" is not a directory")
	}

	if dir := filepath.Dir(dst); filepath.Clean(dir) != filepath.Clean(archiveRoot) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.Filesystem(op, err, "failed to create archive subdirectory")
		}
	}

	err = os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return apperrors.Filesystem(op, err, "failed to move input to archive")
	}

	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return apperrors.Filesystem(op, err, "failed to copy input to archive")
	}
	if err := os.Remove(src); err != nil {
		return apperrors.Filesystem(op, err, "input copied to archive but could not be removed")
	}
	return nil
}

// copyFile copies contents and mode, syncing before returning.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", src)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
