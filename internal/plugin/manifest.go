package plugin

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
)

// ManifestFile is the entry every package carries at its root.
const ManifestFile = "addon.json"

var entryPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// Manifest describes an addon package.
type Manifest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Main        string `json:"main"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
}

// ParseManifest decodes and validates a manifest.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: %w", err)
	}
	m.ID = strings.TrimSpace(m.ID)
	m.Main = strings.TrimSpace(m.Main)
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	if m.Name == "" {
		m.Name = m.ID
	}
	return m, nil
}

// Validate checks required fields.
func (m Manifest) Validate() error {
	if m.ID == "" {
		return ErrManifestID
	}
	if !entryPattern.MatchString(m.Main) {
		return fmt.Errorf("%w: %q", ErrManifestMain, m.Main)
	}
	return nil
}

func readManifest(fsys fs.FS) (Manifest, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return Manifest{}, err
	}
	return ParseManifest(data)
}

// ScriptPath maps a dotted entry point to its script path on the load path.
func ScriptPath(entry string) string {
	return strings.ReplaceAll(entry, ".", "/") + ".lua"
}
