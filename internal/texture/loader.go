// Package texture decodes images from the addon load path.
package texture

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"path"
	"strings"
	"sync"
)

// Loader decodes and caches images found in a filesystem.
type Loader struct {
	fsys fs.FS

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader creates a loader over fsys.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys, cache: make(map[string]image.Image)}
}

// Load returns the decoded image at name. Names are slash-separated and
// relative to the load path; a leading slash is ignored.
func (l *Loader) Load(name string) (image.Image, error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(clean) {
		return nil, fmt.Errorf("texture %q: invalid path", name)
	}

	l.mu.Lock()
	if img, ok := l.cache[clean]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	f, err := l.fsys.Open(clean)
	if err != nil {
		return nil, fmt.Errorf("texture %q: %w", name, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture %q: decode: %w", name, err)
	}

	l.mu.Lock()
	l.cache[clean] = img
	l.mu.Unlock()
	return img, nil
}
