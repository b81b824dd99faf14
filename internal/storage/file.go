package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
)

// DefaultNamespace is the record name the note collection is stored under.
const DefaultNamespace = "notes"

// File keeps the whole note collection as one JSON array in
// <dir>/<namespace>.json. The file is read once on open and rewritten in
// full, atomically, before any mutation returns. Owners that were offered
// the welcome note are listed in <dir>/<namespace>.seeded.json.
type File struct {
	path       string // absolute path of the collection file
	seededPath string

	mu     sync.RWMutex
	coll   *collection
	sum    string // checksum of the bytes last read or written
	seeded map[string]struct{}
}

// NewFile opens (or creates) the collection file under dir.
// The directory must already exist.
func NewFile(dir, namespace string) (*File, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if strings.ContainsAny(namespace, `/\`) || namespace == "." || namespace == ".." {
		return nil, fmt.Errorf("storage: invalid namespace %q", namespace)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: not a directory: %s", abs)
	}

	f := &File{
		path:       filepath.Join(abs, namespace+".json"),
		seededPath: filepath.Join(abs, namespace+".seeded.json"),
	}
	if f.seeded, err = readSeeded(f.seededPath); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	coll, err := decodeCollection(data)
	if err != nil {
		return nil, err
	}
	f.coll = coll
	if data != nil {
		f.sum = digest(data)
	}
	return f, nil
}

// Path returns the absolute path of the collection file.
func (f *File) Path() string { return f.path }

func (f *File) Insert(_ context.Context, n models.Note) error {
	return f.mutate(func(c *collection) error {
		return c.insert(n)
	})
}

func (f *File) Get(_ context.Context, id string) (models.Note, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n, ok := f.coll.get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

func (f *File) Replace(_ context.Context, n models.Note) error {
	return f.mutate(func(c *collection) error {
		if !c.replace(n) {
			return apperr.ErrNotFound
		}
		return nil
	})
}

func (f *File) Remove(_ context.Context, id string) error {
	f.mu.RLock()
	_, ok := f.coll.get(id)
	f.mu.RUnlock()
	if !ok {
		return nil
	}
	return f.mutate(func(c *collection) error {
		c.remove(id)
		return nil
	})
}

func (f *File) ListByOwner(_ context.Context, ownerID string) ([]models.Note, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.coll.byOwner(ownerID), nil
}

func (f *File) MarkSeeded(_ context.Context, ownerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.seeded[ownerID]; ok {
		return false, nil
	}
	owners := make([]string, 0, len(f.seeded)+1)
	for id := range f.seeded {
		owners = append(owners, id)
	}
	owners = append(owners, ownerID)
	slices.Sort(owners)
	data, err := json.Marshal(owners)
	if err != nil {
		return false, fmt.Errorf("storage: encode seeded owners: %w", err)
	}
	if err := writeAtomic(f.seededPath, data); err != nil {
		return false, err
	}
	f.seeded[ownerID] = struct{}{}
	return true, nil
}

func (f *File) Close() error { return nil }

func readSeeded(path string) (map[string]struct{}, error) {
	out := make(map[string]struct{})
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	var owners []string
	if err := json.Unmarshal(data, &owners); err != nil {
		return nil, fmt.Errorf("storage: decode seeded owners: %w", err)
	}
	for _, id := range owners {
		out[id] = struct{}{}
	}
	return out, nil
}

// mutate applies fn to a copy of the collection, persists the copy and only
// then swaps it in, so a failed write leaves memory and disk in agreement.
func (f *File) mutate(fn func(c *collection) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.coll.clone()
	if err := fn(next); err != nil {
		return err
	}
	data, err := next.marshal()
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, data); err != nil {
		return err
	}
	f.coll = next
	f.sum = digest(data)
	return nil
}

// reload re-reads the file if its content differs from what this process
// last read or wrote. It reports whether the collection changed.
// The read happens under the write lock so it cannot interleave with mutate.
func (f *File) reload() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: reload: %w", err)
	}
	sum := digest(data)
	if sum == f.sum {
		return false, nil
	}
	coll, err := decodeCollection(data)
	if err != nil {
		return false, err
	}
	f.coll = coll
	f.sum = sum
	return true, nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".notely-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// digest returns the hex-encoded SHA-256 of data.
func digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
