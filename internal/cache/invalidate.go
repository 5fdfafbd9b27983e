package cache

import (
    "errors"
    "io/fs"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
    if strings.TrimSpace(dir) == "" {
        return errors.New("empty dir")
    }
    if err := os.RemoveAll(dir); err != nil {
        return err
    }
    return os.MkdirAll(dir, 0o755)
}

type entry struct {
    path string
    size int64
    mod  time.Time
}

// entries lists cache leaf files. Temp files from interrupted writes are
// ignored.
func entries(dir string) ([]entry, error) {
    var out []entry
    err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
        if err != nil {
            if errors.Is(err, fs.ErrNotExist) {
                return fs.SkipAll
            }
            return err
        }
        if d.IsDir() {
            return nil
        }
        name := d.Name()
        if strings.HasSuffix(name, ".tmp") {
            return nil
        }
        if !strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".png") {
            return nil
        }
        info, err := d.Info()
        if err != nil {
            return nil // skip unreadable
        }
        out = append(out, entry{path: path, size: info.Size(), mod: info.ModTime().UTC()})
        return nil
    })
    return out, err
}

// PurgeByAge removes entries whose modification time is older than maxAge.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
    if maxAge <= 0 {
        return 0, nil
    }
    list, err := entries(dir)
    if err != nil {
        return 0, err
    }
    now := time.Now().UTC()
    removed := 0
    for _, e := range list {
        if now.Sub(e.mod) <= maxAge {
            continue
        }
        if os.Remove(e.path) == nil {
            removed++
        }
    }
    return removed, nil
}

// EnforceLimits evicts least recently used entries until the store holds at
// most maxCount entries and maxBytes bytes. A zero limit is not enforced.
func EnforceLimits(dir string, maxBytes int64, maxCount int) (int, error) {
    if maxBytes <= 0 && maxCount <= 0 {
        return 0, nil
    }
    list, err := entries(dir)
    if err != nil {
        return 0, err
    }
    sort.Slice(list, func(i, j int) bool { return list[i].mod.Before(list[j].mod) })
    var total int64
    for _, e := range list {
        total += e.size
    }
    removed := 0
    for _, e := range list {
        overCount := maxCount > 0 && len(list)-removed > maxCount
        overBytes := maxBytes > 0 && total > maxBytes
        if !overCount && !overBytes {
            break
        }
        if err := os.Remove(e.path); err != nil {
            continue
        }
        removed++
        total -= e.size
    }
    return removed, nil
}
