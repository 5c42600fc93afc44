package addonconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/pretty"
)

// FileName is the per-addon config file inside the addon's directory.
const FileName = "config.json"

// ConfigError describes an unreadable or unwritable addon document.
type ConfigError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Store maps addon config names to documents under a root directory:
// <root>/<name>/config.json. Names are used verbatim; callers derive them
// with addon.ConfigName.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at dir. A nil logger uses slog.Default().
func NewStore(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

// Root returns the addons root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory holding the named addon's files.
func (s *Store) Dir(name string) string {
	return filepath.Join(s.root, name)
}

// Path returns the config file path for the named addon.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir(name), FileName)
}

// Load reads the named addon's document. The returned document is never nil:
// a missing file yields an empty document and no error, an unreadable or
// malformed file yields an empty document and a *ConfigError.
func (s *Store) Load(name string) (*Document, error) {
	path := s.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(), nil
		}
		cerr := &ConfigError{Op: "load", Path: path, Err: err}
		s.logger.Warn("addon config unreadable, using empty document", "addon", name, "error", cerr)
		return NewDocument(), cerr
	}

	doc, err := Parse(data)
	if err != nil {
		cerr := &ConfigError{Op: "load", Path: path, Err: err}
		s.logger.Warn("addon config malformed, using empty document", "addon", name, "error", cerr)
		return NewDocument(), cerr
	}
	return doc, nil
}

// Save writes the whole document, pretty-printed, replacing the file atomically.
// Callers serialize saves per addon.
func (s *Store) Save(name string, doc *Document) error {
	path := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}

	data := pretty.PrettyOptions(doc.Bytes(), &pretty.Options{
		Width:  80,
		Prefix: "",
		Indent: "  ",
	})

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+FileName+".*")
	if err != nil {
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &ConfigError{Op: "save", Path: path, Err: err}
	}
	return nil
}
