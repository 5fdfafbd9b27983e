package editor

import (
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestLoadConfigFile_YAMLAndApply(t *testing.T) {
    dir := t.TempDir()
    p := filepath.Join(dir, "htmledit.yaml")
    content := `
workDir: /tmp/work
status:
  class: tier
  values: [Gold, Silver]
thumbnail: {width: 100, height: 80}
llm:
  base: http://localhost:8080/v1
  model: local-model
cache:
  dir: /tmp/c
  maxAge: 1h
  maxBytes: 10MB
  strictPerms: true
`
    if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    cfg := Config{WorkDir: WorkDirDefault, LLMModel: LLMModelDefault, CacheDir: CacheDirDefault, StatusClass: "explicit"}
    ApplyFileConfig(&cfg, fc)
    if cfg.WorkDir != "/tmp/work" || cfg.LLMModel != "local-model" || cfg.CacheDir != "/tmp/c" {
        t.Fatalf("file values not applied over defaults: %+v", cfg)
    }
    if cfg.StatusClass != "explicit" {
        t.Fatalf("explicit value overridden: %q", cfg.StatusClass)
    }
    if len(cfg.Statuses) != 2 || cfg.ThumbWidth != 100 || cfg.ThumbHeight != 80 || cfg.CacheMaxAge != time.Hour || !cfg.CacheStrictPerms {
        t.Fatalf("unexpected cfg: %+v", cfg)
    }
    if cfg.CacheMaxBytes != 10_000_000 {
        t.Fatalf("unexpected max bytes: %d", cfg.CacheMaxBytes)
    }
    b := cfg.StatusBlock()
    if b.Class != "explicit" || !b.Known("Silver") || b.Known("Bronze") {
        t.Fatalf("unexpected status block: %+v", b)
    }
}

func TestLoadConfigFile_JSON(t *testing.T) {
    p := filepath.Join(t.TempDir(), "c.json")
    if err := os.WriteFile(p, []byte(`{"language":"fi","llm":{"key":"abc"}}`), 0o600); err != nil {
        t.Fatalf("write: %v", err)
    }
    fc, err := LoadConfigFile(p)
    if err != nil {
        t.Fatalf("load: %v", err)
    }
    if fc.Language != "fi" || fc.LLM.APIKey != "abc" {
        t.Fatalf("unexpected file config: %+v", fc)
    }
}

func TestValidateConfig(t *testing.T) {
    if err := ValidateConfig(Config{WorkDir: "w"}); err != nil {
        t.Fatalf("unexpected error: %v", err)
    }
    if err := ValidateConfig(Config{}); err == nil {
        t.Fatal("expected error for empty work dir")
    }
    if err := ValidateConfig(Config{WorkDir: "w", Statuses: []string{"Go|ld"}}); err == nil {
        t.Fatal("expected error for invalid status value")
    }
}

func TestApplyEnvToConfig_FromEnv(t *testing.T) {
    t.Setenv("HTMLEDIT_WORKDIR", "/srv/work")
    t.Setenv("HTMLEDIT_STATUSES", "A, B ,C")
    t.Setenv("HTMLEDIT_THUMBNAIL", "120x90")
    t.Setenv("HTMLEDIT_CACHE_MAX_AGE", "30m")
    t.Setenv("HTMLEDIT_VERBOSE", "yes")
    t.Setenv("HTMLEDIT_LLM_API_KEY", "")
    t.Setenv("OPENAI_API_KEY", "fallback")

    cfg := Config{LLMModel: "keep"}
    ApplyEnvToConfig(&cfg)
    if cfg.WorkDir != "/srv/work" || cfg.ThumbWidth != 120 || cfg.ThumbHeight != 90 || cfg.CacheMaxAge != 30*time.Minute || !cfg.Verbose {
        t.Fatalf("unexpected cfg: %+v", cfg)
    }
    if len(cfg.Statuses) != 3 || cfg.Statuses[1] != "B" {
        t.Fatalf("unexpected statuses: %q", cfg.Statuses)
    }
    if cfg.LLMAPIKey != "fallback" || cfg.LLMModel != "keep" {
        t.Fatalf("unexpected llm settings: %+v", cfg)
    }
}

func TestApplyEnvOverrides_WinsOverFile(t *testing.T) {
    t.Setenv("HTMLEDIT_LLM_MODEL", "env-model")
    t.Setenv("HTMLEDIT_CACHE_STRICT_PERMS", "off")
    cfg := Config{LLMModel: "file-model", CacheStrictPerms: true}
    ApplyEnvOverrides(&cfg)
    if cfg.LLMModel != "env-model" || cfg.CacheStrictPerms {
        t.Fatalf("env did not override: %+v", cfg)
    }
}

func TestParseBox(t *testing.T) {
    if w, h, ok := parseBox("264X200"); !ok || w != 264 || h != 200 {
        t.Fatalf("unexpected box %d %d %v", w, h, ok)
    }
    for _, bad := range []string{"", "10", "0x5", "ax1"} {
        if _, _, ok := parseBox(bad); ok {
            t.Fatalf("expected %q to be rejected", bad)
        }
    }
}

func TestParseSize(t *testing.T) {
    cases := []struct {
        in   string
        want int64
        ok   bool
    }{
        {"64MB", 64_000_000, true},
        {"1 KiB", 1024, true},
        {"512", 512, true},
        {"", 0, false},
        {"lots", 0, false},
        {"0", 0, false},
    }
    for _, c := range cases {
        got, ok := ParseSize(c.in)
        if got != c.want || ok != c.ok {
            t.Fatalf("ParseSize(%q) = %d, %v; want %d, %v", c.in, got, ok, c.want, c.ok)
        }
    }
}

func TestApplyEnvToConfig_CacheLimits(t *testing.T) {
    t.Setenv("HTMLEDIT_CACHE_MAX_BYTES", "2MiB")
    t.Setenv("HTMLEDIT_CACHE_MAX_ENTRIES", "50")
    cfg := Config{}
    ApplyEnvToConfig(&cfg)
    if cfg.CacheMaxBytes != 2<<20 || cfg.CacheMaxEntries != 50 {
        t.Fatalf("unexpected cache limits: %d bytes, %d entries", cfg.CacheMaxBytes, cfg.CacheMaxEntries)
    }
    cfg = Config{CacheMaxBytes: 1, CacheMaxEntries: 1}
    ApplyEnvOverrides(&cfg)
    if cfg.CacheMaxBytes != 2<<20 || cfg.CacheMaxEntries != 50 {
        t.Fatalf("env did not override: %d bytes, %d entries", cfg.CacheMaxBytes, cfg.CacheMaxEntries)
    }
}
