package store

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const RegistryFile = "downloaded_readmes.txt"

// Registry is the append-only set of repositories whose README has been
// downloaded. It is safe for concurrent use.
type Registry struct {
	mu   sync.Mutex
	path string
	seen map[string]bool
}

// OpenRegistry loads the registry under outputDir. A missing file is an
// empty registry.
func OpenRegistry(outputDir string) (*Registry, error) {
	r := &Registry{
		path: filepath.Join(outputDir, RegistryFile),
		seen: make(map[string]bool),
	}

	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening readme registry: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			r.seen[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading readme registry: %w", err)
	}
	return r, nil
}

func (r *Registry) Contains(fullName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[fullName]
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Add records fullName, appending it to the file unless already present.
func (r *Registry) Add(fullName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen[fullName] {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(r.path), dirPerm); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, filePerm)
	if err != nil {
		return fmt.Errorf("opening readme registry: %w", err)
	}
	_, err = f.WriteString(fullName + "\n")
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("appending to readme registry: %w", err)
	}

	r.seen[fullName] = true
	return nil
}
