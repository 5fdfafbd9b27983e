// Package cache is a small on-disk blob store used for model suggestions and
// rendered preview thumbnails. Entries are leaf files named <key>.json or
// <key>.png under Dir.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
    "time"
)

// ErrNoDir is returned when a Store has no directory configured.
var ErrNoDir = errors.New("cache dir not configured")

// Store keeps blobs keyed by a hex digest.
type Store struct {
    Dir string
    // Ext is the file extension of entries, ".json" when empty.
    Ext string
    // StrictPerms, when true, enforces 0700 on the cache directory and 0600 on
    // entry files.
    StrictPerms bool
}

func (c *Store) ensureDir() error {
	if c == nil || c.Dir == "" {
		return ErrNoDir
	}
    perm := os.FileMode(0o755)
    if c.StrictPerms {
        perm = 0o700
    }
    if err := os.MkdirAll(c.Dir, perm); err != nil {
        return err
    }
    if c.StrictPerms {
        if info, err := os.Stat(c.Dir); err == nil && info.Mode()&0o777 != 0o700 {
            _ = os.Chmod(c.Dir, 0o700)
        }
    }
    return nil
}

// KeyFrom builds a key from a model name and the full prompt.
func KeyFrom(model string, prompt string) string {
	h := sha256.Sum256([]byte(model + "\n\n" + prompt))
	return hex.EncodeToString(h[:])
}

// KeyFromBytes builds a key from raw content plus a variant label, e.g. the
// thumbnail box size.
func KeyFromBytes(variant string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(variant))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Store) ext() string {
	if c.Ext == "" {
		return ".json"
	}
	return c.Ext
}

func (c *Store) pathFor(key string) string {
	return filepath.Join(c.Dir, key+c.ext())
}

// Get returns the cached bytes for key. A miss is not an error.
func (c *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
    b, err := os.ReadFile(p)
    if err != nil {
        return nil, false, nil
    }
    // touch for LRU eviction
    now := time.Now()
    _ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes data for key through a temp file and rename so readers never
// see a partial entry.
func (c *Store) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
    mode := os.FileMode(0o644)
    if c.StrictPerms {
        mode = 0o600
    }
    return WriteFileAtomic(c.pathFor(key), data, mode)
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(name, mode); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
