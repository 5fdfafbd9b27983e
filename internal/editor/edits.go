package editor

import (
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"

    yaml "gopkg.in/yaml.v3"

    "github.com/hyperifyio/htmledit/internal/textnode"
)

// LoadEdits reads an edit set from a YAML or JSON file mapping addresses to
// replacement text.
func LoadEdits(path string) (textnode.EditSet, error) {
    b, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read edits: %w", err)
    }
    edits := textnode.EditSet{}
    if filepath.Ext(path) == ".json" {
        err = json.Unmarshal(b, &edits)
    } else {
        err = yaml.Unmarshal(b, &edits)
    }
    if err != nil {
        return nil, fmt.Errorf("parse edits %s: %w", path, err)
    }
    return edits, nil
}

// WriteEdits stores an edit set as YAML.
func WriteEdits(path string, edits textnode.EditSet) error {
    b, err := yaml.Marshal(map[string]string(edits))
    if err != nil {
        return fmt.Errorf("encode edits: %w", err)
    }
    return os.WriteFile(path, b, 0o644)
}
