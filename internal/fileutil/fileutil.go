package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var renameFunc = os.Rename

// PathTypeConflictError reports a destination that exists but is not a regular file.
type PathTypeConflictError struct {
	Path string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("destination %q exists and is a %s, not a regular file", e.Path, e.Got)
}

// CopyIfMissing copies src to dst unless dst already exists as a regular
// file. It reports whether a copy was made. Existing files are never
// touched, so their contents and modification time stay as they were.
func CopyIfMissing(src, dst string) (bool, error) {
	info, err := os.Lstat(dst)
	switch {
	case err == nil && info.Mode().IsRegular():
		return false, nil
	case err == nil && info.IsDir():
		return false, &PathTypeConflictError{Path: dst, Got: "directory"}
	case err == nil:
		return false, &PathTypeConflictError{Path: dst, Got: info.Mode().Type().String()}
	case !errors.Is(err, os.ErrNotExist):
		return false, fmt.Errorf("stat destination: %w", err)
	}
	if err := CopyFileVerified(src, dst); err != nil {
		return false, err
	}
	return true, nil
}

// CopyFileVerified copies src to a temporary file next to dst, checks size
// and SHA-256 of what landed on disk against the source, then renames it
// into place. dst is never observed half-written.
func CopyFileVerified(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	srcInfo, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	srcHasher := sha256.New()
	written, err := io.Copy(tmp, io.TeeReader(in, srcHasher))
	if err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	if written != srcInfo.Size() {
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}
	dstHasher := sha256.New()
	if _, err := io.Copy(dstHasher, tmp); err != nil {
		return fmt.Errorf("verify temp file: %w", err)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	if err := tmp.Chmod(srcInfo.Mode().Perm() | 0o200); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := renameFunc(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
