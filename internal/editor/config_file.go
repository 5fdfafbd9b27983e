package editor

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
    WorkDir string `yaml:"workDir" json:"workDir"`

    Status struct {
        Tag      string   `yaml:"tag" json:"tag"`
        Class    string   `yaml:"class" json:"class"`
        Variable string   `yaml:"variable" json:"variable"`
        Values   []string `yaml:"values" json:"values"`
    } `yaml:"status" json:"status"`

    Thumbnail struct {
        Width  int `yaml:"width" json:"width"`
        Height int `yaml:"height" json:"height"`
    } `yaml:"thumbnail" json:"thumbnail"`

    LLM struct {
        BaseURL string        `yaml:"base" json:"base"`
        Model   string        `yaml:"model" json:"model"`
        APIKey  string        `yaml:"key" json:"key"`
        Timeout time.Duration `yaml:"timeout" json:"timeout"`
    } `yaml:"llm" json:"llm"`

    Language string `yaml:"language" json:"language"`
    Verbose  bool   `yaml:"verbose" json:"verbose"`

    Cache struct {
        Dir         string        `yaml:"dir" json:"dir"`
        MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
        MaxEntries  int           `yaml:"maxEntries" json:"maxEntries"`
        MaxBytes    string        `yaml:"maxBytes" json:"maxBytes"`
        Clear       bool          `yaml:"clear" json:"clear"`
        StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
        LLMOnly     bool          `yaml:"llmOnly" json:"llmOnly"`
    } `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
    var fc FileConfig
    b, err := os.ReadFile(path)
    if err != nil {
        return fc, err
    }
    switch ext := filepath.Ext(path); ext {
    case ".yaml", ".yml":
        if err := yaml.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse yaml: %w", err)
        }
    case ".json":
        if err := json.Unmarshal(b, &fc); err != nil {
            return fc, fmt.Errorf("parse json: %w", err)
        }
    default:
        // Try YAML then JSON
        if err := yaml.Unmarshal(b, &fc); err != nil {
            if jerr := json.Unmarshal(b, &fc); jerr != nil {
                return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
            }
        }
    }
    return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are currently unset or still hold their flag default.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
    if cfg == nil { return }

    if (cfg.WorkDir == "" || cfg.WorkDir == WorkDirDefault) && fc.WorkDir != "" { cfg.WorkDir = fc.WorkDir }

    if cfg.StatusTag == "" && fc.Status.Tag != "" { cfg.StatusTag = fc.Status.Tag }
    if cfg.StatusClass == "" && fc.Status.Class != "" { cfg.StatusClass = fc.Status.Class }
    if cfg.StatusVariable == "" && fc.Status.Variable != "" { cfg.StatusVariable = fc.Status.Variable }
    if len(cfg.Statuses) == 0 && len(fc.Status.Values) > 0 { cfg.Statuses = append([]string{}, fc.Status.Values...) }

    if cfg.ThumbWidth == 0 && fc.Thumbnail.Width > 0 { cfg.ThumbWidth = fc.Thumbnail.Width }
    if cfg.ThumbHeight == 0 && fc.Thumbnail.Height > 0 { cfg.ThumbHeight = fc.Thumbnail.Height }

    if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" { cfg.LLMBaseURL = fc.LLM.BaseURL }
    if (cfg.LLMModel == "" || cfg.LLMModel == LLMModelDefault) && fc.LLM.Model != "" { cfg.LLMModel = fc.LLM.Model }
    if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" { cfg.LLMAPIKey = fc.LLM.APIKey }
    if cfg.LLMTimeout == 0 && fc.LLM.Timeout > 0 { cfg.LLMTimeout = fc.LLM.Timeout }
    if cfg.Language == "" && fc.Language != "" { cfg.Language = fc.Language }
    if !cfg.Verbose && fc.Verbose { cfg.Verbose = true }

    if (cfg.CacheDir == "" || cfg.CacheDir == CacheDirDefault) && fc.Cache.Dir != "" { cfg.CacheDir = fc.Cache.Dir }
    if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 { cfg.CacheMaxAge = fc.Cache.MaxAge }
    if cfg.CacheMaxEntries == 0 && fc.Cache.MaxEntries > 0 { cfg.CacheMaxEntries = fc.Cache.MaxEntries }
    if cfg.CacheMaxBytes == 0 {
        if n, ok := ParseSize(fc.Cache.MaxBytes); ok { cfg.CacheMaxBytes = n }
    }
    if !cfg.CacheClear && fc.Cache.Clear { cfg.CacheClear = true }
    if !cfg.CacheStrictPerms && fc.Cache.StrictPerms { cfg.CacheStrictPerms = true }
    if !cfg.LLMCacheOnly && fc.Cache.LLMOnly { cfg.LLMCacheOnly = true }
}

// ValidateConfig performs minimal validation of settings.
func ValidateConfig(cfg Config) error {
    if strings.TrimSpace(cfg.WorkDir) == "" {
        return errors.New("config: work dir is required")
    }
    if cfg.ThumbWidth < 0 || cfg.ThumbHeight < 0 || cfg.CacheMaxEntries < 0 || cfg.CacheMaxBytes < 0 {
        return errors.New("config: negative limits are not allowed")
    }
    for _, s := range cfg.Statuses {
        if strings.TrimSpace(s) == "" || strings.ContainsAny(s, "|\"'") {
            return fmt.Errorf("config: invalid status value %q", s)
        }
    }
    return nil
}
