// Package editor wires the document pipeline together for one open HTML
// template: text refs and images from the current snapshot, staged edits kept
// in the session, atomic saves, image replacement, inspection reports and
// model suggestions.
package editor

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/dustin/go-humanize"
    "github.com/rs/zerolog/log"

    "github.com/hyperifyio/htmledit/internal/address"
    "github.com/hyperifyio/htmledit/internal/cache"
    "github.com/hyperifyio/htmledit/internal/images"
    "github.com/hyperifyio/htmledit/internal/llm"
    "github.com/hyperifyio/htmledit/internal/report"
    "github.com/hyperifyio/htmledit/internal/session"
    "github.com/hyperifyio/htmledit/internal/suggest"
    "github.com/hyperifyio/htmledit/internal/textnode"
)

var (
    // ErrNoDocument is returned by operations that need an open document.
    ErrNoDocument = errors.New("no document open")
    // ErrUnknownImage is returned when an image ID is not in the snapshot.
    ErrUnknownImage = errors.New("unknown image id")
    // ErrUnknownField is returned when an address is not in the snapshot.
    ErrUnknownField = errors.New("unknown field address")
    // ErrNoModelList is returned when the chat backend cannot list models.
    ErrNoModelList = errors.New("model listing not supported")
)

// Editor serializes operations on one document snapshot.
type Editor struct {
    mu sync.Mutex

    cfg     Config
    scanner textnode.Scanner
    store   *session.Store
    state   *session.State
    llmc    llm.Client

    path string
    doc  string
}

// New prepares an editor and applies cache housekeeping from cfg.
func New(cfg Config) (*Editor, error) {
    if err := ValidateConfig(cfg); err != nil {
        return nil, err
    }
    e := &Editor{
        cfg:     cfg,
        scanner: textnode.Scanner{Status: cfg.StatusBlock()},
        store:   &session.Store{Dir: cfg.WorkDir},
    }
    st, err := e.store.Load()
    if err != nil {
        return nil, err
    }
    e.state = st
    if cfg.CacheDir != "" {
        if cfg.CacheClear {
            if err := cache.ClearDir(cfg.CacheDir); err != nil {
                log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
            }
        }
        // housekeeping errors never block editing
        if cfg.CacheMaxAge > 0 {
            _, _ = cache.PurgeByAge(cfg.CacheDir, cfg.CacheMaxAge)
        }
        if cfg.CacheMaxEntries > 0 || cfg.CacheMaxBytes > 0 {
            for _, sub := range []string{"suggest", "thumbs"} {
                n, err := cache.EnforceLimits(filepath.Join(cfg.CacheDir, sub), cfg.CacheMaxBytes, cfg.CacheMaxEntries)
                if err != nil || n == 0 {
                    continue
                }
                log.Debug().Str("cache", sub).Int("evicted", n).Str("limit", humanize.Bytes(uint64(cfg.CacheMaxBytes))).Msg("cache limits enforced")
            }
        }
    }
    return e, nil
}

// WithClient sets the chat backend used by Suggest.
func (e *Editor) WithClient(c llm.Client) *Editor {
    e.mu.Lock()
    defer e.mu.Unlock()
    e.llmc = c
    return e
}

// Open loads path as the current snapshot and remembers its directory.
func (e *Editor) Open(path string) error {
    b, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("open document: %w", err)
    }
    e.mu.Lock()
    defer e.mu.Unlock()
    e.path, e.doc = path, string(b)
    e.state.Opened(path)
    if err := e.store.Save(e.state); err != nil {
        log.Warn().Err(err).Msg("session save failed")
    }
    log.Debug().Str("path", path).Int("bytes", len(b)).Msg("document opened")
    return nil
}

// LastDir is the directory of the most recently opened document.
func (e *Editor) LastDir() string {
    e.mu.Lock()
    defer e.mu.Unlock()
    return e.state.LastDir
}

// Snapshot returns the current document text.
func (e *Editor) Snapshot() string {
    e.mu.Lock()
    defer e.mu.Unlock()
    return e.doc
}

// Texts lists the editable refs of the snapshot.
func (e *Editor) Texts() ([]textnode.Ref, error) {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return nil, ErrNoDocument
    }
    return e.scanner.Extract(e.doc)
}

// Images lists the images of the snapshot.
func (e *Editor) Images() ([]images.Entry, error) {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return nil, ErrNoDocument
    }
    return images.Extract(e.doc)
}

// Apply returns the snapshot with edits applied without touching the file
// or the snapshot.
func (e *Editor) Apply(edits textnode.EditSet) (string, error) {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return "", ErrNoDocument
    }
    return e.scanner.Apply(e.doc, edits)
}

// Stage validates edits against the snapshot and adds them to the pending
// set persisted in the session.
func (e *Editor) Stage(edits textnode.EditSet) error {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return ErrNoDocument
    }
    refs, err := e.scanner.Extract(e.doc)
    if err != nil {
        return err
    }
    known := make(map[string]bool, len(refs))
    for _, r := range refs {
        known[r.Address] = true
    }
    for key := range edits {
        a, err := address.Parse(key)
        if err != nil {
            return err
        }
        switch {
        case a.Kind == address.KindText && !known[a.String()]:
            return fmt.Errorf("%w: %s", ErrUnknownField, key)
        case a.Kind == address.KindStatus && !e.scanner.Status.Known(a.Status):
            return fmt.Errorf("%w: %s", ErrUnknownField, key)
        }
    }
    e.store.Stage(e.state, e.path, edits)
    return e.store.Save(e.state)
}

// Pending returns the staged edits of the open document.
func (e *Editor) Pending() textnode.EditSet {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return textnode.EditSet{}
    }
    return textnode.EditSet(e.state.PendingFor(e.path))
}

// Save applies the staged edits, writes the result to out (the open path
// when empty), makes it the new snapshot and clears the staged set.
func (e *Editor) Save(out string) (string, error) {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return "", ErrNoDocument
    }
    pending := e.state.PendingFor(e.path)
    next, err := e.scanner.Apply(e.doc, pending)
    if err != nil {
        return "", err
    }
    if out == "" {
        out = e.path
    }
    if err := writeDoc(out, next); err != nil {
        return "", err
    }
    e.state.Clear(e.path)
    if err := e.store.Save(e.state); err != nil {
        log.Warn().Err(err).Msg("session save failed")
    }
    log.Info().Str("path", out).Int("edits", len(pending)).Msg("document saved")
    e.doc = next
    return out, nil
}

// ReplaceImage swaps image id for the PNG/JPEG file at imagePath and writes
// the document to out (the open path when empty).
func (e *Editor) ReplaceImage(id, imagePath, out string) (images.Entry, error) {
    dataURL, _, err := images.DataURLFromFile(imagePath)
    if err != nil {
        return images.Entry{}, err
    }
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return images.Entry{}, ErrNoDocument
    }
    entries, err := images.Extract(e.doc)
    if err != nil {
        return images.Entry{}, err
    }
    entry, ok := images.Find(entries, id)
    if !ok {
        return images.Entry{}, fmt.Errorf("%w: %s", ErrUnknownImage, id)
    }
    next, err := images.Replace(e.doc, entry.Locator, dataURL)
    if err != nil {
        return images.Entry{}, err
    }
    if out == "" {
        out = e.path
    }
    if err := writeDoc(out, next); err != nil {
        return images.Entry{}, err
    }
    log.Info().Str("id", entry.ID).Str("locator", entry.Locator.String()).Str("path", out).Msg("image replaced")
    e.doc = next
    return entry, nil
}

// Inspect builds an inspection report of the snapshot.
func (e *Editor) Inspect(title string) (*report.Report, error) {
    e.mu.Lock()
    defer e.mu.Unlock()
    if e.path == "" {
        return nil, ErrNoDocument
    }
    if title == "" {
        title = "Inspection: " + filepath.Base(e.path)
    }
    opts := report.Options{
        Title:       title,
        Status:      e.cfg.StatusBlock(),
        ThumbWidth:  e.cfg.ThumbWidth,
        ThumbHeight: e.cfg.ThumbHeight,
    }
    if e.cfg.CacheDir != "" {
        opts.Thumbs = &cache.Store{Dir: filepath.Join(e.cfg.CacheDir, "thumbs"), Ext: ".png", StrictPerms: e.cfg.CacheStrictPerms}
    }
    return report.Build(e.doc, opts)
}

// Suggest asks the model for a rewrite of the field at key. The result is
// returned, not staged.
func (e *Editor) Suggest(ctx context.Context, key, instruction string) (string, error) {
    e.mu.Lock()
    if e.path == "" {
        e.mu.Unlock()
        return "", ErrNoDocument
    }
    refs, err := e.scanner.Extract(e.doc)
    client := e.clientLocked()
    e.mu.Unlock()
    if err != nil {
        return "", err
    }
    var ref *textnode.Ref
    for i := range refs {
        if refs[i].Address == strings.TrimSpace(key) {
            ref = &refs[i]
            break
        }
    }
    if ref == nil {
        return "", fmt.Errorf("%w: %s", ErrUnknownField, key)
    }
    s := &suggest.Suggester{Client: client, Model: e.cfg.LLMModel, Language: e.cfg.Language, CacheOnly: e.cfg.LLMCacheOnly}
    if e.cfg.CacheDir != "" {
        s.Cache = &cache.Store{Dir: filepath.Join(e.cfg.CacheDir, "suggest"), StrictPerms: e.cfg.CacheStrictPerms}
    }
    return s.Suggest(ctx, *ref, instruction)
}

// Models returns the sorted model IDs offered by the configured server.
func (e *Editor) Models(ctx context.Context) ([]string, error) {
    e.mu.Lock()
    client := e.clientLocked()
    e.mu.Unlock()
    lister, ok := client.(llm.ModelLister)
    if !ok {
        return nil, ErrNoModelList
    }
    list, err := lister.ListModels(ctx)
    if err != nil {
        return nil, fmt.Errorf("list models: %w", err)
    }
    ids := make([]string, 0, len(list.Models))
    for _, m := range list.Models {
        ids = append(ids, m.ID)
    }
    sort.Strings(ids)
    return ids, nil
}

// clientLocked returns the injected client or builds one from cfg.
// e.mu must be held.
func (e *Editor) clientLocked() llm.Client {
    if e.llmc != nil {
        return e.llmc
    }
    timeout := e.cfg.LLMTimeout
    if timeout <= 0 {
        timeout = 60 * time.Second
    }
    e.llmc = llm.New(e.cfg.LLMBaseURL, e.cfg.LLMAPIKey, timeout)
    return e.llmc
}

func writeDoc(path, doc string) error {
    if dir := filepath.Dir(path); dir != "" {
        if err := os.MkdirAll(dir, 0o755); err != nil {
            return fmt.Errorf("create output dir: %w", err)
        }
    }
    if err := cache.WriteFileAtomic(path, []byte(doc), 0o644); err != nil {
        return fmt.Errorf("write document: %w", err)
    }
    return nil
}
