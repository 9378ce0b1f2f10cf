package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const WatermarkFile = "last_starred.txt"

// WatermarkStore holds the full name of the newest star seen by the last
// completed run.
type WatermarkStore struct {
	path string
}

func NewWatermarkStore(outputDir string) *WatermarkStore {
	return &WatermarkStore{path: filepath.Join(outputDir, WatermarkFile)}
}

func (s *WatermarkStore) Path() string {
	return s.path
}

// Read returns the stored watermark, or "" on a first run.
func (s *WatermarkStore) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading watermark: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the watermark. The file is swapped in with a rename so a
// crash never leaves it truncated.
func (s *WatermarkStore) Write(fullName string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".watermark-*")
	if err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.WriteString(strings.TrimSpace(fullName) + "\n")
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return fmt.Errorf("writing watermark: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing watermark: %w", err)
	}
	return nil
}
