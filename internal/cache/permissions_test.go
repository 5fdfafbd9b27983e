package cache

import (
    "context"
    "os"
    "path/filepath"
    "testing"
)

func TestStore_StrictPerms(t *testing.T) {
    t.Parallel()
    base := t.TempDir()
    dir := filepath.Join(base, "suggest")
    c := &Store{Dir: dir, StrictPerms: true}
    key := KeyFrom("model", "prompt")
    if err := c.Save(context.Background(), key, []byte(`{"ok":true}`)); err != nil {
        t.Fatalf("save: %v", err)
    }
    info, err := os.Stat(dir)
    if err != nil {
        t.Fatalf("stat dir: %v", err)
    }
    if got := info.Mode() & 0o777; got != 0o700 {
        t.Fatalf("dir mode = %o, want 0700", got)
    }
    finfo, err := os.Stat(filepath.Join(dir, key+".json"))
    if err != nil {
        t.Fatalf("stat file: %v", err)
    }
    if got := finfo.Mode() & 0o777; got != 0o600 {
        t.Fatalf("file mode = %o, want 0600", got)
    }
}

func TestWriteFileAtomic_LeavesNoTemp(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()
    p := filepath.Join(dir, "state.yaml")
    if err := WriteFileAtomic(p, []byte("a: 1\n"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    if err := WriteFileAtomic(p, []byte("a: 2\n"), 0o644); err != nil {
        t.Fatalf("overwrite: %v", err)
    }
    list, _ := os.ReadDir(dir)
    if len(list) != 1 {
        t.Fatalf("expected only the target file, got %d entries", len(list))
    }
    b, _ := os.ReadFile(p)
    if string(b) != "a: 2\n" {
        t.Fatalf("unexpected content %q", b)
    }
}
