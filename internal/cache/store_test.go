package cache

import (
    "context"
    "fmt"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestStore_SaveGet(t *testing.T) {
	tmp := t.TempDir()
	c := &Store{Dir: tmp}
	key := KeyFrom("model", "prompt")
	data := []byte(`{"text":"Well done"}`)
	if err := c.Save(context.Background(), key, data); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := c.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("get: %v ok=%v", err, ok)
	}
	if string(got) != string(data) {
		t.Fatalf("mismatch")
	}
	if _, ok, err := c.Get(context.Background(), KeyFrom("model", "other")); ok || err != nil {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}
}

func TestStore_NoDir(t *testing.T) {
	var c *Store
	if _, _, err := c.Get(context.Background(), "k"); err != ErrNoDir {
		t.Fatalf("expected ErrNoDir, got %v", err)
	}
}

func TestStore_ExtAndKeyFromBytes(t *testing.T) {
	tmp := t.TempDir()
	c := &Store{Dir: tmp, Ext: ".png"}
	k1 := KeyFromBytes("264x200", []byte("img"))
	if k1 == KeyFromBytes("100x100", []byte("img")) {
		t.Fatalf("variant must change the key")
	}
	if err := c.Save(context.Background(), k1, []byte("png")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, k1+".png")); err != nil {
		t.Fatalf("expected .png entry: %v", err)
	}
}

func TestEnforceLimits_EvictsLeastRecentlyUsed(t *testing.T) {
    tmp := t.TempDir()
    c := &Store{Dir: tmp}
    keys := []string{KeyFrom("m", "p1"), KeyFrom("m", "p2"), KeyFrom("m", "p3")}
    base := time.Now().Add(-time.Hour)
    for i, k := range keys {
        if err := c.Save(context.Background(), k, []byte(fmt.Sprintf("%d", i))); err != nil {
            t.Fatalf("save %d: %v", i, err)
        }
        ts := base.Add(time.Duration(i) * time.Minute)
        if err := os.Chtimes(filepath.Join(tmp, k+".json"), ts, ts); err != nil {
            t.Fatalf("chtimes: %v", err)
        }
    }
    // p1 becomes the most recently used
    if _, ok, _ := c.Get(context.Background(), keys[0]); !ok {
        t.Fatal("expected hit")
    }
    removed, err := EnforceLimits(tmp, 0, 2)
    if err != nil { t.Fatalf("enforce: %v", err) }
    if removed != 1 { t.Fatalf("expected 1 removed, got %d", removed) }
    if _, ok, _ := c.Get(context.Background(), keys[1]); ok {
        t.Fatal("expected p2 evicted")
    }
    if _, ok, _ := c.Get(context.Background(), keys[0]); !ok {
        t.Fatal("expected p1 kept")
    }
}

func TestPurgeByAge(t *testing.T) {
    tmp := t.TempDir()
    c := &Store{Dir: tmp}
    oldKey, newKey := KeyFrom("m", "old"), KeyFrom("m", "new")
    for _, k := range []string{oldKey, newKey} {
        if err := c.Save(context.Background(), k, []byte("x")); err != nil {
            t.Fatalf("save: %v", err)
        }
    }
    past := time.Now().Add(-48 * time.Hour)
    if err := os.Chtimes(filepath.Join(tmp, oldKey+".json"), past, past); err != nil {
        t.Fatalf("chtimes: %v", err)
    }
    removed, err := PurgeByAge(tmp, 24*time.Hour)
    if err != nil || removed != 1 {
        t.Fatalf("purge: removed=%d err=%v", removed, err)
    }
    if _, err := os.Stat(filepath.Join(tmp, newKey+".json")); err != nil {
        t.Fatalf("fresh entry removed: %v", err)
    }
    if n, err := PurgeByAge(filepath.Join(tmp, "missing"), time.Hour); n != 0 || err != nil {
        t.Fatalf("missing dir: n=%d err=%v", n, err)
    }
}

func TestClearDir(t *testing.T) {
    tmp := t.TempDir()
    dir := filepath.Join(tmp, "c")
    c := &Store{Dir: dir}
    if err := c.Save(context.Background(), "k", []byte("x")); err != nil {
        t.Fatalf("save: %v", err)
    }
    if err := ClearDir(dir); err != nil {
        t.Fatalf("clear: %v", err)
    }
    list, err := os.ReadDir(dir)
    if err != nil || len(list) != 0 {
        t.Fatalf("expected empty dir, got %v (%v)", list, err)
    }
    if err := ClearDir("  "); err == nil {
        t.Fatal("expected error for empty dir")
    }
}
