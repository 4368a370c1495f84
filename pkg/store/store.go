// Package store persists strategy snapshots as JSON files under a single
// strategies directory and watches that directory for outside changes.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quantrig/quantrig/pkg/strategy"
)

// ext is the file extension for saved strategies.
const ext = ".json"

// Entry describes one saved strategy in the library.
type Entry struct {
	Name     string    `json:"name"`
	Modified time.Time `json:"modified"`
	Size     int64     `json:"size"`
}

// Store reads and writes strategy snapshots under one directory.
type Store struct {
	dir string
	log *zap.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the strategies directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the file path a strategy name maps to.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+ext)
}

// checkName rejects names that would escape the strategies directory.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("store: empty strategy name")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("store: invalid strategy name %q", name)
	}
	return nil
}

// Save writes a snapshot. The write is atomic: a temp file in the same
// directory is renamed over the target, so a crash never leaves a
// half-written strategy.
func (s *Store) Save(name string, snap strategy.Snapshot) error {
	if err := checkName(name); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %q: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: temp file for %q: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close %q: %w", name, err)
	}
	if err := os.Rename(tmpName, s.Path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename %q: %w", name, err)
	}

	s.log.Info("strategy saved",
		zap.String("name", name),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("connections", len(snap.Connections)))
	return nil
}

// Load reads a snapshot by name.
func (s *Store) Load(name string) (strategy.Snapshot, error) {
	var snap strategy.Snapshot
	if err := checkName(name); err != nil {
		return snap, err
	}
	data, err := os.ReadFile(s.Path(name))
	if err != nil {
		return snap, fmt.Errorf("store: read %q: %w", name, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("store: decode %q: %w", name, err)
	}
	return snap, nil
}

// Delete removes a saved strategy. Deleting a missing strategy is not an
// error.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(s.Path(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

// List returns the library contents sorted by name.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", s.dir, err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ext) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:     strings.TrimSuffix(de.Name(), ext),
			Modified: info.ModTime(),
			Size:     info.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}
