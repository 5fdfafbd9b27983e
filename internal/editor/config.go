package editor

import (
    "time"

    "github.com/hyperifyio/htmledit/internal/conditional"
)

// Defaults applied by the CLI flag set. ApplyFileConfig treats a field still
// holding its default as unset.
const (
    WorkDirDefault  = ".htmledit"
    CacheDirDefault = ".htmledit/cache"
    LLMModelDefault = "gpt-4o-mini"
)

// Config holds runtime configuration for the editor.
type Config struct {
    // WorkDir holds session state.
    WorkDir string

    // Status block
    StatusTag      string
    StatusClass    string
    StatusVariable string
    Statuses       []string

    // Previews
    ThumbWidth  int
    ThumbHeight int

    // LLM
    LLMBaseURL string
    LLMModel   string
    LLMAPIKey  string
    LLMTimeout time.Duration
    Language   string

    // Cache
    CacheDir         string
    CacheMaxAge      time.Duration
    CacheMaxEntries  int
    CacheMaxBytes    int64
    CacheClear       bool
    CacheStrictPerms bool
    LLMCacheOnly     bool

    Verbose bool
}

// StatusBlock returns the conditional block described by cfg, falling back
// to conditional.Default per field.
func (c Config) StatusBlock() conditional.Block {
    return conditional.Block{
        Tag:      c.StatusTag,
        Class:    c.StatusClass,
        Variable: c.StatusVariable,
        Statuses: append([]string(nil), c.Statuses...),
    }
}
