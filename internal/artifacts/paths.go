package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// RunDir returns the directory holding a run's artifacts.
func RunDir(outputDir, runID string) string {
	return filepath.Join(outputDir, runID)
}

// TileFileName names tile output files by their one-based index.
func TileFileName(tile int, kind string) string {
	return strconv.Itoa(tile+1) + "." + kind
}

// Checksum returns the SHA-256 hex digest and size of the file at path.
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash artifact: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
