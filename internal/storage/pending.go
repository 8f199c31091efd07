package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Pending is a submitted transaction whose outcome is not yet known.
type Pending struct {
	AttemptID   string    `json:"attempt_id"`
	Hash        string    `json:"hash"`
	Initiator   string    `json:"initiator"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type pendingFile struct {
	Entries   []Pending `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PendingStore keeps every unresolved submission on disk, keyed by attempt ID.
// Entries are only removed by the attempt that owns them.
type PendingStore struct {
	path    string
	enabled bool
	mu      sync.Mutex
}

// NewPendingStore creates a store backed by path. A disabled store or an
// empty path keeps nothing.
func NewPendingStore(path string, enabled bool) *PendingStore {
	return &PendingStore{path: path, enabled: enabled && path != ""}
}

// List returns the unresolved submissions, oldest first.
func (p *PendingStore) List() ([]Pending, error) {
	if !p.enabled {
		return nil, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.read()
	if err != nil {
		return nil, err
	}
	return file.Entries, nil
}

// Add records entry, replacing any entry with the same attempt ID.
func (p *PendingStore) Add(entry Pending) error {
	if !p.enabled {
		return nil
	}
	if entry.AttemptID == "" || entry.Hash == "" {
		return fmt.Errorf("pending entry needs an attempt id and a hash")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.read()
	if err != nil {
		return err
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}
	entries := file.Entries[:0]
	for _, e := range file.Entries {
		if e.AttemptID != entry.AttemptID {
			entries = append(entries, e)
		}
	}
	file.Entries = append(entries, entry)
	return p.write(file)
}

// Resolve drops the entry for attemptID. Entries of other attempts are kept.
func (p *PendingStore) Resolve(attemptID string) error {
	if !p.enabled {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	file, err := p.read()
	if err != nil {
		return err
	}
	entries := file.Entries[:0]
	for _, e := range file.Entries {
		if e.AttemptID != attemptID {
			entries = append(entries, e)
		}
	}
	if len(entries) == len(file.Entries) {
		return nil
	}
	file.Entries = entries
	if len(entries) == 0 {
		if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove pending file: %w", err)
		}
		return nil
	}
	return p.write(file)
}

func (p *PendingStore) read() (pendingFile, error) {
	stat, err := os.Stat(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return pendingFile{}, nil
		}
		return pendingFile{}, fmt.Errorf("stat pending file: %w", err)
	}
	if stat.IsDir() {
		return pendingFile{}, fmt.Errorf("pending path %s is a directory", p.path)
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return pendingFile{}, fmt.Errorf("read pending file: %w", err)
	}
	var file pendingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return pendingFile{}, fmt.Errorf("parse pending file: %w", err)
	}
	sort.SliceStable(file.Entries, func(i, j int) bool {
		return file.Entries[i].SubmittedAt.Before(file.Entries[j].SubmittedAt)
	})
	return file, nil
}

func (p *PendingStore) write(file pendingFile) error {
	dir := filepath.Dir(p.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create pending dir: %w", err)
		}
	}

	file.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write pending tmp: %w", err)
	}
	if err := os.Rename(tmpPath, p.path); err != nil {
		return fmt.Errorf("rename pending: %w", err)
	}
	return nil
}
