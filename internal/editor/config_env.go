package editor

import (
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/dustin/go-humanize"
)

// EnvPrefix is prepended to every environment variable the editor reads.
const EnvPrefix = "HTMLEDIT_"

func getenv(key string) string { return strings.TrimSpace(os.Getenv(EnvPrefix + key)) }

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}

// ApplyEnvToConfig populates unset fields of cfg from HTMLEDIT_* variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
    if cfg == nil { return }

    setStr := func(dst *string, key string) {
        if *dst == "" { *dst = getenv(key) }
    }
    setStr(&cfg.WorkDir, "WORKDIR")
    setStr(&cfg.StatusTag, "STATUS_TAG")
    setStr(&cfg.StatusClass, "STATUS_CLASS")
    setStr(&cfg.StatusVariable, "STATUS_VARIABLE")
    setStr(&cfg.LLMBaseURL, "LLM_BASE_URL")
    setStr(&cfg.LLMModel, "LLM_MODEL")
    setStr(&cfg.LLMAPIKey, "LLM_API_KEY")
    setStr(&cfg.Language, "LANGUAGE")
    setStr(&cfg.CacheDir, "CACHE_DIR")
    if cfg.LLMAPIKey == "" {
        // common fallback for OpenAI-compatible tooling
        cfg.LLMAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
    }

    if len(cfg.Statuses) == 0 {
        cfg.Statuses = splitList(getenv("STATUSES"))
    }

    // THUMBNAIL can be "<w>x<h>"
    if cfg.ThumbWidth == 0 && cfg.ThumbHeight == 0 {
        if w, h, ok := parseBox(getenv("THUMBNAIL")); ok {
            cfg.ThumbWidth, cfg.ThumbHeight = w, h
        }
    }

    setDur := func(dst *time.Duration, key string) {
        if *dst != 0 { return }
        if d, err := time.ParseDuration(getenv(key)); err == nil {
            *dst = d
        }
    }
    setDur(&cfg.CacheMaxAge, "CACHE_MAX_AGE")
    setDur(&cfg.LLMTimeout, "LLM_TIMEOUT")

    if cfg.CacheMaxEntries == 0 {
        if n, err := strconv.Atoi(getenv("CACHE_MAX_ENTRIES")); err == nil && n > 0 {
            cfg.CacheMaxEntries = n
        }
    }
    if cfg.CacheMaxBytes == 0 {
        if n, ok := ParseSize(getenv("CACHE_MAX_BYTES")); ok {
            cfg.CacheMaxBytes = n
        }
    }

    setBool := func(dst *bool, key string) {
        if *dst { return }
        switch strings.ToLower(getenv(key)) {
        case "1", "true", "yes", "on":
            *dst = true
        }
    }
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
    setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// that are set. Used so env wins over a config file while flags stay highest.
func ApplyEnvOverrides(cfg *Config) {
    if cfg == nil { return }

    set := func(dst *string, key string) {
        if v := getenv(key); v != "" { *dst = v }
    }
    set(&cfg.WorkDir, "WORKDIR")
    set(&cfg.StatusTag, "STATUS_TAG")
    set(&cfg.StatusClass, "STATUS_CLASS")
    set(&cfg.StatusVariable, "STATUS_VARIABLE")
    set(&cfg.LLMBaseURL, "LLM_BASE_URL")
    set(&cfg.LLMModel, "LLM_MODEL")
    set(&cfg.LLMAPIKey, "LLM_API_KEY")
    set(&cfg.Language, "LANGUAGE")
    set(&cfg.CacheDir, "CACHE_DIR")

    if v := splitList(getenv("STATUSES")); len(v) > 0 { cfg.Statuses = v }
    if w, h, ok := parseBox(getenv("THUMBNAIL")); ok { cfg.ThumbWidth, cfg.ThumbHeight = w, h }
    if d, err := time.ParseDuration(getenv("CACHE_MAX_AGE")); err == nil { cfg.CacheMaxAge = d }
    if d, err := time.ParseDuration(getenv("LLM_TIMEOUT")); err == nil { cfg.LLMTimeout = d }
    if n, err := strconv.Atoi(getenv("CACHE_MAX_ENTRIES")); err == nil && n > 0 { cfg.CacheMaxEntries = n }
    if n, ok := ParseSize(getenv("CACHE_MAX_BYTES")); ok { cfg.CacheMaxBytes = n }

    setBool := func(dst *bool, key string) {
        switch strings.ToLower(getenv(key)) {
        case "1", "true", "yes", "on":
            *dst = true
        case "0", "false", "no", "off":
            *dst = false
        }
    }
    setBool(&cfg.Verbose, "VERBOSE")
    setBool(&cfg.CacheClear, "CACHE_CLEAR")
    setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
    setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
}

// parseBox parses "<w>x<h>".
func parseBox(s string) (int, int, bool) {
    ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
    if !ok { return 0, 0, false }
    w, err1 := strconv.Atoi(strings.TrimSpace(ws))
    h, err2 := strconv.Atoi(strings.TrimSpace(hs))
    if err1 != nil || err2 != nil || w <= 0 || h <= 0 { return 0, 0, false }
    return w, h, true
}

// ParseSize parses a human readable byte size such as "64MB" or "1.5 GiB".
// A bare number is taken as bytes.
func ParseSize(s string) (int64, bool) {
    s = strings.TrimSpace(s)
    if s == "" { return 0, false }
    n, err := humanize.ParseBytes(s)
    if err != nil || n == 0 || n > 1<<62 { return 0, false }
    return int64(n), true
}
