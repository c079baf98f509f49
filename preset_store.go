package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	PRESET_FILE_PREFIX = "PRESET"
	PRESET_COUNT       = 7 // CC values 0..127 map to indices 0..6
)

// PresetStore keeps preset blobs as PRESET<n> files inside one directory.
type PresetStore struct {
	baseDir string
}

func NewPresetStore(baseDir string) (*PresetStore, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("preset dir %s: %w", baseDir, err)
	}
	if err := os.MkdirAll(absBase, 0o755); err != nil {
		return nil, fmt.Errorf("preset dir %s: %w", absBase, err)
	}
	return &PresetStore{baseDir: absBase}, nil
}

// sanitizePath resolves name inside the base directory, refusing anything
// that would escape it.
func (s *PresetStore) sanitizePath(name string) (string, bool) {
	if filepath.IsAbs(name) || strings.Contains(name, "..") {
		return "", false
	}
	fullPath := filepath.Join(s.baseDir, name)
	rel, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return fullPath, true
}

func (s *PresetStore) path(index int) (string, error) {
	if index < 0 || index >= PRESET_COUNT {
		return "", fmt.Errorf("%w: %d", ErrInvalidPresetIndex, index)
	}
	p, ok := s.sanitizePath(fmt.Sprintf("%s%d", PRESET_FILE_PREFIX, index))
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidPresetIndex, index)
	}
	return p, nil
}

// Load reads and decodes preset index. A missing file is reported as
// fs.ErrNotExist.
func (s *PresetStore) Load(index int) (Snapshot, error) {
	p, err := s.path(index)
	if err != nil {
		return Snapshot{}, err
	}
	blob, err := os.ReadFile(p)
	if err != nil {
		return Snapshot{}, err
	}
	snap, err := DecodePreset(blob)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	return snap, nil
}

func (s *PresetStore) Save(index int, snap Snapshot) (int, error) {
	p, err := s.path(index)
	if err != nil {
		return 0, err
	}
	blob := EncodePreset(snap)
	if err := os.WriteFile(p, blob, 0o644); err != nil {
		return 0, err
	}
	return len(blob), nil
}

// PresetBank tracks the current preset index and moves parameters between
// the store and a Synth.
type PresetBank struct {
	store  *PresetStore
	synth  *Synth
	logger *slog.Logger

	mutex   sync.Mutex
	current int
}

func NewPresetBank(store *PresetStore, synth *Synth, logger *slog.Logger) *PresetBank {
	if logger == nil {
		logger = slog.Default()
	}
	return &PresetBank{
		store:  store,
		synth:  synth,
		logger: logger.With("component", "preset"),
	}
}

func (b *PresetBank) Current() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.current
}

// Select makes index current and loads it into the synth. Selecting the
// current index does nothing. The index changes even when there is no blob
// to load; the parameters then stay as they are.
func (b *PresetBank) Select(index int) error {
	if index < 0 || index >= PRESET_COUNT {
		return fmt.Errorf("%w: %d", ErrInvalidPresetIndex, index)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if index == b.current {
		return nil
	}
	b.current = index

	snap, err := b.store.Load(index)
	if errors.Is(err, fs.ErrNotExist) {
		b.logger.Warn("preset not found", "index", index)
		return nil
	}
	if err != nil {
		b.logger.Error("preset load failed", "index", index, "err", err)
		return err
	}
	b.logger.Info("preset loaded", "index", index)
	return b.synth.ApplyFullUpdate(snap)
}

// Save writes the synth's current parameters to the current index.
func (b *PresetBank) Save() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	n, err := b.store.Save(b.current, b.synth.Snapshot())
	if err != nil {
		b.logger.Error("preset save failed", "index", b.current, "err", err)
		return err
	}
	b.logger.Info("preset saved", "index", b.current, "bytes", n)
	return nil
}
