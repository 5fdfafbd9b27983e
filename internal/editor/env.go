package editor

import (
    "bufio"
    "errors"
    "fmt"
    "os"
    "strings"
)

// LoadEnvFiles loads dotenv files of KEY=VALUE pairs into the process
// environment. Later files override earlier ones; missing files are skipped.
// An optional "export " prefix is accepted and unquoted values may carry a
// trailing " # comment". Values are not expanded.
func LoadEnvFiles(paths ...string) error {
    for _, p := range paths {
        if strings.TrimSpace(p) == "" {
            continue
        }
        if err := loadEnvFile(p); err != nil {
            if errors.Is(err, os.ErrNotExist) {
                continue
            }
            return err
        }
    }
    return nil
}

func loadEnvFile(path string) error {
    f, err := os.Open(path)
    if err != nil {
        return err
    }
    defer f.Close()

    scanner := bufio.NewScanner(f)
    lineNo := 0
    for scanner.Scan() {
        lineNo++
        key, val, ok := parseEnvLine(scanner.Text())
        if !ok {
            continue
        }
        if err := os.Setenv(key, val); err != nil {
            return fmt.Errorf("%s:%d: %w", path, lineNo, err)
        }
    }
    return scanner.Err()
}

// parseEnvLine returns ok=false for blanks, comments and lines without a key.
func parseEnvLine(line string) (string, string, bool) {
    line = strings.TrimSpace(line)
    if line == "" || strings.HasPrefix(line, "#") {
        return "", "", false
    }
    line = strings.TrimPrefix(line, "export ")
    key, val, found := strings.Cut(line, "=")
    key = strings.TrimSpace(key)
    if !found || key == "" || strings.ContainsAny(key, " \t") {
        return "", "", false
    }
    val = strings.TrimSpace(val)
    if n := len(val); n >= 2 && (val[0] == '"' || val[0] == '\'') && val[n-1] == val[0] {
        return key, val[1 : n-1], true
    }
    if i := strings.Index(val, " #"); i >= 0 {
        val = strings.TrimSpace(val[:i])
    }
    return key, val, true
}
