// Package addonconfig holds per-addon JSON documents: reads with default
// seeding, in-place reloads and whole-document saves.
package addonconfig

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ModulesKey is the reserved top-level section holding per-module state.
const ModulesKey = "modules"

// Document is a mutable JSON object. The handle is stable: Replace swaps the
// contents so sections held by addons keep pointing at live data.
type Document struct {
	mu  sync.Mutex
	raw []byte
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{raw: []byte("{}")}
}

// Parse builds a document from JSON. The top level must be an object.
func Parse(data []byte) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return NewDocument(), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("top-level value must be an object")
	}
	raw := make([]byte, len(data))
	copy(raw, data)
	return &Document{raw: raw}, nil
}

// Bytes returns a copy of the current JSON.
func (d *Document) Bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

// Replace swaps in the contents of other.
func (d *Document) Replace(other *Document) {
	data := other.Bytes()
	d.mu.Lock()
	d.raw = data
	d.mu.Unlock()
}

// Root returns the top-level section.
func (d *Document) Root() Section {
	return Section{doc: d}
}

// Module returns the reserved per-module section for key.
func (d *Document) Module(key string) Section {
	return d.Root().Section(ModulesKey).Section(key)
}

func (d *Document) get(path string) gjson.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gjson.GetBytes(d.raw, path)
}

func (d *Document) set(path string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLocked(path, value)
}

func (d *Document) setLocked(path string, value any) error {
	out, err := sjson.SetBytes(d.raw, path, value)
	if err != nil {
		return fmt.Errorf("set %q: %w", path, err)
	}
	d.raw = out
	return nil
}

// Section is a view of one object inside a document. The zero path is the root.
type Section struct {
	doc  *Document
	path string
}

// Section returns the child object at key. It is created lazily on first write.
func (s Section) Section(key string) Section {
	return Section{doc: s.doc, path: s.join(key)}
}

// Path returns the dotted path of the section, for diagnostics.
func (s Section) Path() string { return s.path }

// Has reports whether key is present.
func (s Section) Has(key string) bool {
	return s.doc.get(s.join(key)).Exists()
}

// Get returns the raw value at key.
func (s Section) Get(key string) gjson.Result {
	return s.doc.get(s.join(key))
}

// Set writes value at key, creating intermediate objects.
func (s Section) Set(key string, value any) error {
	return s.doc.set(s.join(key), value)
}

// Delete removes key.
func (s Section) Delete(key string) error {
	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()
	out, err := sjson.DeleteBytes(s.doc.raw, s.join(key))
	if err != nil {
		return fmt.Errorf("delete %q: %w", s.join(key), err)
	}
	s.doc.raw = out
	return nil
}

// Keys lists the keys of the section object in document order.
func (s Section) Keys() []string {
	var res gjson.Result
	if s.path == "" {
		res = gjson.ParseBytes(s.doc.Bytes())
	} else {
		res = s.doc.get(s.path)
	}
	var keys []string
	res.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// String returns the string at key, seeding def when absent.
func (s Section) String(key, def string) string { return GetOrDefault(s, key, def) }

// Int returns the integer at key, seeding def when absent.
func (s Section) Int(key string, def int) int { return GetOrDefault(s, key, def) }

// Float returns the number at key, seeding def when absent.
func (s Section) Float(key string, def float64) float64 { return GetOrDefault(s, key, def) }

// Bool returns the boolean at key, seeding def when absent.
func (s Section) Bool(key string, def bool) bool { return GetOrDefault(s, key, def) }

// GetOrDefault returns the value at key decoded as T. An absent key is set to
// def in the document and def is returned, so it persists on the next save.
// A present value that does not decode as T yields def and is left untouched.
// Integer types accept any integral JSON number, so 100.0 reads as 100.
func GetOrDefault[T any](s Section, key string, def T) T {
	path := s.join(key)

	s.doc.mu.Lock()
	defer s.doc.mu.Unlock()

	res := gjson.GetBytes(s.doc.raw, path)
	if !res.Exists() {
		_ = s.doc.setLocked(path, def)
		return def
	}

	var out T
	switch p := any(&out).(type) {
	case *int:
		n, ok := integral(res)
		if !ok {
			return def
		}
		*p = int(n)
	case *int64:
		n, ok := integral(res)
		if !ok {
			return def
		}
		*p = n
	case *float64:
		if res.Type != gjson.Number {
			return def
		}
		*p = res.Float()
	default:
		if err := json.Unmarshal([]byte(res.Raw), &out); err != nil {
			return def
		}
	}
	return out
}

// integral reads a JSON number with no fractional part.
func integral(res gjson.Result) (int64, bool) {
	if res.Type != gjson.Number {
		return 0, false
	}
	if f := res.Float(); f != math.Trunc(f) {
		return 0, false
	}
	return res.Int(), true
}

func (s Section) join(key string) string {
	key = escapeKey(key)
	if s.path == "" {
		return key
	}
	return s.path + "." + key
}

// escapeKey escapes gjson/sjson path syntax so keys are taken literally.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%', ':':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
