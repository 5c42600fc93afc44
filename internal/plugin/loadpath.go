package plugin

import (
	"errors"
	"io/fs"
	"sync"
)

// LoadPath is an ordered list of package roots searched for scripts and
// textures. Roots are only ever added. Later roots shadow earlier ones, so a
// name present in two packages resolves to the most recently mounted.
type LoadPath struct {
	mu    sync.RWMutex
	roots []loadRoot
}

type loadRoot struct {
	name string
	fsys fs.FS
}

// Global is the process-wide load path.
var Global = &LoadPath{}

var _ fs.FS = (*LoadPath)(nil)

// Extend mounts fsys under name. Mounting the same name twice is a no-op.
func (p *LoadPath) Extend(name string, fsys fs.FS) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.roots {
		if r.name == name {
			return false
		}
	}
	p.roots = append(p.roots, loadRoot{name: name, fsys: fsys})
	return true
}

// Mounted reports whether name is on the path.
func (p *LoadPath) Mounted(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, r := range p.roots {
		if r.name == name {
			return true
		}
	}
	return false
}

// Entries returns the mounted root names in mount order.
func (p *LoadPath) Entries() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.roots))
	for i, r := range p.roots {
		out[i] = r.name
	}
	return out
}

// Open implements fs.FS, searching the most recent root first.
func (p *LoadPath) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	p.mu.RLock()
	roots := append([]loadRoot(nil), p.roots...)
	p.mu.RUnlock()

	var firstErr error
	for i := len(roots) - 1; i >= 0; i-- {
		f, err := roots[i].fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Locate returns the root name that would serve name.
func (p *LoadPath) Locate(name string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for i := len(p.roots) - 1; i >= 0; i-- {
		if _, err := fs.Stat(p.roots[i].fsys, name); err == nil {
			return p.roots[i].name, true
		}
	}
	return "", false
}
